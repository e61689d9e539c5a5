package search

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/storage"
	"github.com/poiesic/facetflow/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const products = "products"

func product(id, title, brand, color string, price float64) *core.Document {
	return &core.Document{
		ID:      id,
		Fields:  map[string]string{"title": title},
		Facets:  map[string][]string{"brand": {brand}, "color": {color}},
		Numbers: map[string]float64{"price": price},
	}
}

func newTestSearcher(t *testing.T, opts ...Option) (*Searcher, storage.DocumentRepository) {
	t.Helper()
	docs, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		backend.Close()
	})

	_, err = docs.PutDocuments(context.Background(), products,
		product("1", "Red lamp", "acme", "red", 10),
		product("2", "Blue lamp", "acme", "blue", 30),
		product("3", "Blue chair", "zeta", "blue", 50),
		product("4", "Green table", "zeta", "green", 80),
	)
	require.NoError(t, err)

	searcher, err := NewSearcher(docs, opts...)
	require.NoError(t, err)
	t.Cleanup(searcher.Release)
	return searcher, docs
}

func hitIDs(r *core.SearchResults) []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ObjectID
	}
	return ids
}

func searchOne(t *testing.T, s *Searcher, p core.SearchParameters) *core.SearchResults {
	t.Helper()
	results, err := s.Search(context.Background(), []core.SearchParameters{p})
	require.NoError(t, err)
	require.Len(t, results, 1)
	return results[0]
}

// countingMonitor counts executed queries and cache hits.
type countingMonitor struct {
	noopMonitor
	started atomic.Int32
	hits    atomic.Int32
}

func (m *countingMonitor) Start(_ core.SearchParameters)    { m.started.Add(1) }
func (m *countingMonitor) CacheHit(_ core.SearchParameters) { m.hits.Add(1) }

func TestNewSearcher(t *testing.T) {
	docs, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(docs)
		require.NoError(t, err)
		defer searcher.Release()
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(docs, WithLogger(nil), WithPoolSize(0))
		require.NoError(t, err)
		defer searcher.Release()
		assert.Equal(t, slog.Default(), searcher.logger)
	})

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewSearcher(nil)
		assert.Equal(t, ErrRepositoryRequired, err)
	})

	t.Run("invalid hits per page", func(t *testing.T) {
		_, err := NewSearcher(docs, WithHitsPerPage(0))
		assert.Error(t, err)
	})
}

func TestSearch_QueryMatching(t *testing.T) {
	s, _ := newTestSearcher(t)

	t.Run("empty query matches everything", func(t *testing.T) {
		r := searchOne(t, s, core.NewSearchParameters(products))
		assert.Equal(t, []string{"1", "2", "3", "4"}, hitIDs(r))
		assert.Equal(t, 4, r.NbHits)
		assert.Equal(t, DefaultHitsPerPage, r.HitsPerPage)
	})

	t.Run("prefix match", func(t *testing.T) {
		r := searchOne(t, s, core.NewSearchParameters(products).SetQuery("la"))
		assert.Equal(t, []string{"1", "2"}, hitIDs(r))
	})

	t.Run("every word must match", func(t *testing.T) {
		r := searchOne(t, s, core.NewSearchParameters(products).SetQuery("blue lamp"))
		assert.Equal(t, []string{"2"}, hitIDs(r))
	})

	t.Run("stop words are ignored", func(t *testing.T) {
		r := searchOne(t, s, core.NewSearchParameters(products).SetQuery("the chair"))
		assert.Equal(t, []string{"3"}, hitIDs(r))
	})

	t.Run("highlights use parameter tags", func(t *testing.T) {
		p := core.NewSearchParameters(products).SetQuery("lam").SetHighlightTags("<em>", "</em>")
		r := searchOne(t, s, p)
		require.Len(t, r.Hits, 2)
		assert.Equal(t, "Red <em>lam</em>p", r.Hits[0].Highlights["title"])
	})
}

func TestSearch_Refinements(t *testing.T) {
	s, _ := newTestSearcher(t)

	t.Run("conjunctive refinement", func(t *testing.T) {
		p := core.NewSearchParameters(products).AddFacetRefinement("brand", "zeta")
		r := searchOne(t, s, p)
		assert.Equal(t, []string{"3", "4"}, hitIDs(r))
		assert.Equal(t, map[string]int{"zeta": 2}, r.Facets["brand"])
	})

	t.Run("disjunctive counts ignore own refinements", func(t *testing.T) {
		p := core.NewSearchParameters(products).AddDisjunctiveFacetRefinement("color", "blue")
		r := searchOne(t, s, p)
		assert.Equal(t, []string{"2", "3"}, hitIDs(r))
		assert.Equal(t, map[string]int{"red": 1, "blue": 2, "green": 1}, r.Facets["color"])
	})

	t.Run("disjunctive values are alternatives", func(t *testing.T) {
		p := core.NewSearchParameters(products).
			AddDisjunctiveFacetRefinement("color", "red").
			AddDisjunctiveFacetRefinement("color", "green")
		r := searchOne(t, s, p)
		assert.Equal(t, []string{"1", "4"}, hitIDs(r))
	})

	t.Run("numeric range with disjunctive stats", func(t *testing.T) {
		p := core.NewSearchParameters(products).
			AddDisjunctiveFacet("price").
			AddNumericRefinement("price", core.OpGreaterOrEqual, 20).
			AddNumericRefinement("price", core.OpLessOrEqual, 60)
		r := searchOne(t, s, p)
		assert.Equal(t, []string{"2", "3"}, hitIDs(r))

		stats, ok := r.FacetStatsFor("price")
		require.True(t, ok)
		assert.Equal(t, core.FacetStats{Min: 10, Max: 80, Avg: 42.5, Sum: 170}, stats)
	})

	t.Run("conjunctive stats cover matching documents", func(t *testing.T) {
		p := core.NewSearchParameters(products).
			AddFacet("price").
			AddNumericRefinement("price", core.OpGreater, 20)
		r := searchOne(t, s, p)

		stats, ok := r.FacetStatsFor("price")
		require.True(t, ok)
		assert.Equal(t, 30.0, stats.Min)
		assert.Equal(t, 80.0, stats.Max)
	})
}

func TestSearch_Pagination(t *testing.T) {
	s, _ := newTestSearcher(t)

	p := core.NewSearchParameters(products).SetHitsPerPage(3).SetPage(1)
	r := searchOne(t, s, p)
	assert.Equal(t, []string{"4"}, hitIDs(r))
	assert.Equal(t, 2, r.NbPages)
	assert.Equal(t, 1, r.Page)

	r = searchOne(t, s, p.SetPage(5))
	assert.Empty(t, r.Hits)
	assert.Equal(t, 4, r.NbHits)
}

func TestSearch_Batch(t *testing.T) {
	s, docs := newTestSearcher(t)
	_, err := docs.PutDocuments(context.Background(), "articles",
		&core.Document{ID: "a1", Fields: map[string]string{"title": "Lamp buying guide"}})
	require.NoError(t, err)

	t.Run("results are aligned with requests", func(t *testing.T) {
		results, err := s.Search(context.Background(), []core.SearchParameters{
			core.NewSearchParameters(products).SetQuery("lamp"),
			core.NewSearchParameters("articles").SetQuery("lamp"),
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, products, results[0].Index)
		assert.Equal(t, 2, results[0].NbHits)
		assert.Equal(t, "articles", results[1].Index)
		assert.Equal(t, []string{"a1"}, hitIDs(results[1]))
	})

	t.Run("one failure fails the batch", func(t *testing.T) {
		results, err := s.Search(context.Background(), []core.SearchParameters{
			core.NewSearchParameters(products),
			core.NewSearchParameters("missing"),
		})
		assert.Nil(t, results)
		assert.True(t, errors.Is(err, storage.ErrIndexNotFound))
	})

	t.Run("invalid parameters", func(t *testing.T) {
		_, err := s.Search(context.Background(), []core.SearchParameters{{}})
		assert.ErrorIs(t, err, core.ErrEmptyIndexName)
	})
}

func TestSearch_Cache(t *testing.T) {
	t.Run("hit returns the cached payload", func(t *testing.T) {
		monitor := &countingMonitor{}
		s, _ := newTestSearcher(t, WithMonitor(monitor))
		p := core.NewSearchParameters(products).SetQuery("lamp")

		first := searchOne(t, s, p)
		second := searchOne(t, s, p)
		assert.Same(t, first, second)
		assert.Equal(t, int32(1), monitor.started.Load())
		assert.Equal(t, int32(1), monitor.hits.Load())

		require.NoError(t, s.ClearCache())
		third := searchOne(t, s, p)
		assert.NotSame(t, first, third)
		assert.Equal(t, int32(2), monitor.started.Load())
	})

	t.Run("disabled cache", func(t *testing.T) {
		s, _ := newTestSearcher(t, WithCacheSize(0))
		p := core.NewSearchParameters(products)
		assert.NotSame(t, searchOne(t, s, p), searchOne(t, s, p))
	})

	t.Run("eviction", func(t *testing.T) {
		c := newResultCache(2)
		c.put("a", &core.SearchResults{})
		c.put("b", &core.SearchResults{})
		c.put("c", &core.SearchResults{})
		assert.Equal(t, 2, c.len())
		_, ok := c.get("a")
		assert.False(t, ok)
	})
}

func TestSearchForFacetValues(t *testing.T) {
	s, _ := newTestSearcher(t)
	base := core.NewSearchParameters(products).AddDisjunctiveFacet("color").SetHighlightTags("<em>", "</em>")

	t.Run("prefix and highlight", func(t *testing.T) {
		hits, err := s.SearchForFacetValues(context.Background(), base, "color", "bl", 10)
		require.NoError(t, err)
		assert.Equal(t, []core.FacetHit{{Value: "blue", Highlighted: "<em>bl</em>ue", Count: 2}}, hits)
	})

	t.Run("own refinements are ignored", func(t *testing.T) {
		p := base.AddDisjunctiveFacetRefinement("color", "red")
		hits, err := s.SearchForFacetValues(context.Background(), p, "color", "", 10)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "blue", hits[0].Value)
		assert.Equal(t, "green", hits[1].Value)
		assert.Equal(t, "red", hits[2].Value)
	})

	t.Run("other refinements apply", func(t *testing.T) {
		p := base.AddFacetRefinement("brand", "acme")
		hits, err := s.SearchForFacetValues(context.Background(), p, "color", "", 10)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("limit", func(t *testing.T) {
		hits, err := s.SearchForFacetValues(context.Background(), base, "color", "", 1)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("undeclared facet", func(t *testing.T) {
		_, err := s.SearchForFacetValues(context.Background(), base, "brand", "", 10)
		assert.ErrorIs(t, err, ErrUnknownFacet)
	})
}

func TestSearcher_Release(t *testing.T) {
	s, _ := newTestSearcher(t)
	s.Release()

	_, err := s.Search(context.Background(), []core.SearchParameters{core.NewSearchParameters(products)})
	assert.Equal(t, ErrClientClosed, err)
	assert.Equal(t, ErrClientClosed, s.ClearCache())
}
