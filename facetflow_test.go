package facetflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/facetflow/coordinator"
	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/storage"
	"github.com/poiesic/facetflow/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProducts() []*core.Document {
	return []*core.Document{
		{ID: "1", Fields: map[string]string{"title": "Red lamp"}, Facets: map[string][]string{"brand": {"acme"}}, Numbers: map[string]float64{"price": 10}},
		{ID: "2", Fields: map[string]string{"title": "Blue lamp"}, Facets: map[string][]string{"brand": {"acme"}}, Numbers: map[string]float64{"price": 30}},
		{ID: "3", Fields: map[string]string{"title": "Blue chair"}, Facets: map[string][]string{"brand": {"zeta"}}, Numbers: map[string]float64{"price": 50}},
	}
}

func testArticles() []*core.Document {
	return []*core.Document{
		{ID: "a1", Fields: map[string]string{"title": "Lamp buying guide"}},
		{ID: "a2", Fields: map[string]string{"title": "Chair care"}},
	}
}

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := Open("", InMemory())
	require.NoError(t, err)
	t.Cleanup(func() {
		engine.Close()
	})
	return engine
}

func ingest(t *testing.T, engine *Engine, index string, docs []*core.Document) {
	t.Helper()
	pipeline, err := engine.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.Ingest(context.Background(), index, docs)
	require.NoError(t, err)
}

func TestOpen(t *testing.T) {
	t.Run("on disk", func(t *testing.T) {
		engine, err := Open(filepath.Join(t.TempDir(), "test_db"))
		require.NoError(t, err)
		require.NotNil(t, engine)
		defer engine.Close()

		assert.NotNil(t, engine.Documents())
		assert.NotNil(t, engine.Indices())
		assert.NotNil(t, engine.Searcher())
		assert.NotNil(t, engine.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		engine, err := Open(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, engine)
	})

	t.Run("in memory ignores path", func(t *testing.T) {
		engine, err := Open("/does/not/matter", InMemory(), WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, engine.logger)
		assert.NoError(t, engine.Close())
	})
}

func TestEngine_Close(t *testing.T) {
	engine, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, engine.Close())
}

func TestEngine_IngestAndList(t *testing.T) {
	engine := openTestEngine(t)
	ingest(t, engine, "products", testProducts())

	info, err := engine.Indices().GetIndexInfo(context.Background(), "products")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Documents)

	_, err = engine.Indices().GetIndexInfo(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrIndexNotFound)
}

func TestEngine_CoordinatorRoundTrip(t *testing.T) {
	engine := openTestEngine(t)
	ingest(t, engine, "products", testProducts())
	ingest(t, engine, "articles", testArticles())

	state := core.SearchState{
		"query":        "lamp",
		"brand":        []string{"acme"},
		"articleQuery": "guide",
	}
	c, err := engine.NewCoordinator("products", coordinator.WithInitialState(state))
	require.NoError(t, err)
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.Registry().RegisterAll(
		widget.SearchBox(""),
		widget.RefinementList(widget.RefinementListProps{Attribute: "brand", IndexName: "products"}),
		widget.Scope("articles", widget.SearchBox("articleQuery"))[0],
	)
	require.NoError(t, c.WaitIdle(ctx))

	st := c.Store().GetState()
	require.NoError(t, st.Error)
	require.True(t, st.Results.IsMultiIndex())

	products := st.Results.For("products")
	require.NotNil(t, products)
	assert.Equal(t, 2, products.NbHits)
	assert.Equal(t, map[string]int{"acme": 2}, products.Facets["brand"])

	articles := st.Results.For("articles")
	require.NotNil(t, articles)
	assert.Equal(t, 1, articles.NbHits)
	assert.Equal(t, "a1", articles.Hits[0].ObjectID)

	require.NoError(t, c.OnSearchForFacetValues("brand", "ac", 0))
	require.NoError(t, c.WaitIdle(ctx))

	st = c.Store().GetState()
	require.Contains(t, st.ResultsFacetValues, "brand")
	assert.Equal(t, "ac", st.ResultsFacetValues["brand"].Query)
	require.Len(t, st.ResultsFacetValues["brand"].Hits, 1)
	assert.Equal(t, "acme", st.ResultsFacetValues["brand"].Hits[0].Value)
	assert.Equal(t, 2, st.ResultsFacetValues["brand"].Hits[0].Count)
}

func TestEngine_UnknownIndexIsSearchError(t *testing.T) {
	engine := openTestEngine(t)

	c, err := engine.NewCoordinator("missing")
	require.NoError(t, err)
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.Registry().Register(widget.SearchBox(""))
	require.NoError(t, c.WaitIdle(ctx))

	st := c.Store().GetState()
	assert.ErrorIs(t, st.Error, storage.ErrIndexNotFound)
	assert.False(t, st.Searching)
}
