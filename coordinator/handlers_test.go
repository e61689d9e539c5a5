package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/search/mock"
	"github.com/poiesic/facetflow/store"
	"github.com/poiesic/facetflow/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer records arming and lets a test fire the expiry by hand.
type fakeTimer struct {
	delay   time.Duration
	fire    func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.stopped = true
	return true
}

type harness struct {
	c      *Coordinator
	client *mock.MockClient
	timers []*fakeTimer
}

func newHarness(t *testing.T, client *mock.MockClient, opts ...Option) *harness {
	t.Helper()
	if client == nil {
		client = mock.NewMockClient()
	}
	c, err := newCoordinator("P", client, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Stop)

	h := &harness{c: c, client: client}
	c.afterFunc = func(d time.Duration, f func()) stopper {
		ft := &fakeTimer{delay: d, fire: f}
		h.timers = append(h.timers, ft)
		return ft
	}
	return h
}

// step waits for the next queued event and handles it.
func (h *harness) step(t *testing.T) event {
	t.Helper()
	var ev event
	require.Eventually(t, func() bool {
		var ok bool
		ev, ok = h.c.tryNext()
		return ok
	}, time.Second, time.Millisecond, "no event queued")
	h.c.handle(ev)
	return ev
}

// expect handles the next event and checks its kind.
func (h *harness) expect(t *testing.T, kind eventKind) event {
	t.Helper()
	ev := h.step(t)
	require.Equal(t, kind, ev.kind, "got %s, want %s", ev.kind, kind)
	return ev
}

// settle runs a full search cycle: the update, the trigger and the response.
func (h *harness) settle(t *testing.T, kind eventKind) {
	t.Helper()
	h.expect(t, kind)
	h.expect(t, evSearchTriggered)
	h.expect(t, evSearchResponse)
}

func (h *harness) state() store.State {
	return h.c.Store().GetState()
}

func numericWidget(id, index string, value float64) *core.Widget {
	return &core.Widget{
		ID:        id,
		IndexName: index,
		GetSearchParameters: func(p core.SearchParameters, _ core.SearchState) core.SearchParameters {
			return p.AddNumericRefinement("price", core.OpGreaterOrEqual, value)
		},
		GetMetadata: func(core.SearchState) core.Metadata {
			return core.Metadata{ID: id, Index: index}
		},
	}
}

func indicesOf(requests []core.SearchParameters) []string {
	out := make([]string, len(requests))
	for i, r := range requests {
		out[i] = r.Index
	}
	return out
}

func TestNewCoordinator(t *testing.T) {
	client := mock.NewMockClient()

	t.Run("requires index", func(t *testing.T) {
		_, err := newCoordinator("", client)
		assert.Equal(t, ErrIndexNameRequired, err)
	})

	t.Run("requires client", func(t *testing.T) {
		_, err := newCoordinator("P", nil)
		assert.Equal(t, ErrClientRequired, err)
	})

	t.Run("rejects negative delay", func(t *testing.T) {
		_, err := newCoordinator("P", client, WithStalledSearchDelay(-time.Second))
		assert.Error(t, err)
	})

	t.Run("initial snapshot", func(t *testing.T) {
		seeded := core.FlatResults(&core.SearchResults{Index: "P"})
		h := newHarness(t, client,
			WithInitialState(core.SearchState{"query": "lamp"}),
			WithResultsState(seeded))

		st := h.state()
		assert.True(t, st.IsSearchStalled)
		assert.False(t, st.Searching)
		assert.False(t, st.SearchingForFacetValues)
		assert.Equal(t, "lamp", st.Widgets["query"])
		assert.Equal(t, seeded, st.Results)
		assert.Empty(t, st.Metadata)
	})

	t.Run("baseline keeps index and highlight tags", func(t *testing.T) {
		h := newHarness(t, client, WithBaseParameters(core.SearchParameters{Index: "other", HitsPerPage: 5}))
		assert.Equal(t, "P", h.c.baseline.Index)
		assert.Equal(t, 5, h.c.baseline.HitsPerPage)
		assert.Equal(t, core.DefaultHighlightPreTag, h.c.baseline.HighlightPreTag)
	})
}

func TestWidgetsUpdate_Coalesced(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Registry().Register(widget.SearchBox(""))
	h.c.Registry().Register(widget.Pagination(""))
	h.c.Registry().Register(widget.Configure("config", nil))

	h.c.qmu.Lock()
	queued := len(h.c.queue)
	h.c.qmu.Unlock()
	assert.Equal(t, 1, queued)

	h.expect(t, evWidgetsUpdate)
	assert.True(t, h.state().Searching)
	assert.Equal(t, []string{"query"}, h.c.GetWidgetsIDs())
}

func TestSearch_FlatResults(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Registry().Register(widget.SearchBox(""))
	h.settle(t, evWidgetsUpdate)

	require.NoError(t, h.c.OnExternalStateUpdate(core.SearchState{"query": "lamp"}))
	h.settle(t, evExternalStateUpdate)

	st := h.state()
	require.NotNil(t, st.Results.Flat())
	assert.False(t, st.Results.IsMultiIndex())
	assert.Equal(t, "lamp", st.Results.Flat().Query)
	assert.False(t, st.Searching)
	assert.False(t, st.IsSearchStalled)
	assert.NoError(t, st.Error)
	assert.Equal(t, 0, h.c.pending)

	calls := h.client.SearchCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"P"}, indicesOf(calls[1]))
	assert.Equal(t, core.DefaultHighlightPreTag, calls[1][0].HighlightPreTag)
}

func TestSearch_FanOut(t *testing.T) {
	h := newHarness(t, nil)
	reg := h.c.Registry()
	reg.Register(numericWidget("shared", "", 1))
	reg.Register(numericWidget("s", "S", 2))
	unregisterT := reg.Register(numericWidget("t", "T", 3))
	reg.Register(numericWidget("s2", "S", 4))

	h.settle(t, evWidgetsUpdate)
	require.Len(t, h.c.derived, 2)
	assert.Equal(t, "S", h.c.derived[0].index)
	assert.Equal(t, "T", h.c.derived[1].index)
	first := append([]*binding(nil), h.c.derived...)

	calls := h.client.SearchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"P", "S", "T"}, indicesOf(calls[0]))
	// Shared refinements apply to every index.
	assert.Len(t, calls[0][0].NumericRefinements, 1)
	assert.Len(t, calls[0][1].NumericRefinements, 3)
	assert.Len(t, calls[0][2].NumericRefinements, 2)

	unregisterT()
	h.settle(t, evWidgetsUpdate)

	require.Len(t, h.c.derived, 1)
	assert.Equal(t, "S", h.c.derived[0].index)
	assert.NotSame(t, first[0], h.c.derived[0], "bindings are rebuilt on every pass")
	for _, b := range first {
		assert.True(t, b.detached)
	}
	assert.Equal(t, []string{"P", "S"}, indicesOf(h.client.SearchCalls()[1]))
}

func TestSearch_ResultsShape(t *testing.T) {
	h := newHarness(t, nil, WithResultsState(core.FlatResults(&core.SearchResults{Index: "P"})))
	reg := h.c.Registry()
	reg.Register(numericWidget("main", "", 1))
	unregister := reg.Register(numericWidget("s", "S", 2))

	h.settle(t, evWidgetsUpdate)
	st := h.state()
	require.True(t, st.Results.IsMultiIndex(), "flat results reset to a mapping")
	assert.Nil(t, st.Results.Flat())
	assert.Equal(t, []string{"P", "S"}, st.Results.Indices())
	assert.Equal(t, "S", st.Results.For("S").Index)
	assert.Equal(t, "P", st.Results.For("P").Index)
	assert.Same(t, h.c.derived[0].lastResults, st.Results.For("S"))

	unregister()
	h.settle(t, evWidgetsUpdate)
	st = h.state()
	assert.False(t, st.Results.IsMultiIndex())
	require.NotNil(t, st.Results.Flat())
	assert.Equal(t, "P", st.Results.Flat().Index)
}

func TestSearch_SubscriberPanicKeepsOtherPayloads(t *testing.T) {
	deferred := make(chan error, 2)
	h := newHarness(t, nil, WithDeferredErrorHandler(func(err error) { deferred <- err }))

	panicked := false
	h.c.Store().Subscribe(func(st store.State) {
		if st.Results.IsMultiIndex() && !panicked {
			panicked = true
			panic(errors.New("render failed"))
		}
	})

	h.c.Registry().RegisterAll(widget.SearchBox(""), widget.Scope("S", widget.SearchBox("sq"))[0])
	h.settle(t, evWidgetsUpdate)

	select {
	case err := <-deferred:
		var de *core.DeferredError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "search", de.Op)
	case <-time.After(time.Second):
		t.Fatal("deferred error not reported")
	}

	st := h.state()
	assert.Equal(t, []string{"P", "S"}, st.Results.Indices())
	assert.NotNil(t, st.Results.For("S"))
	assert.Equal(t, 0, h.c.pending)
	assert.False(t, st.Searching)
}

func TestSearch_OutOfOrderResponses(t *testing.T) {
	var mu sync.Mutex
	gates := map[int]chan struct{}{0: make(chan struct{}), 1: make(chan struct{})}
	calls := 0
	client := mock.NewMockClient().WithSearchFunc(func(ctx context.Context, reqs []core.SearchParameters) ([]*core.SearchResults, error) {
		mu.Lock()
		gate := gates[calls]
		calls++
		mu.Unlock()
		if gate != nil {
			<-gate
		}
		return mock.Echo(reqs), nil
	})

	h := newHarness(t, client)
	h.c.Registry().Register(widget.SearchBox(""))
	h.c.Registry().Register(widget.Scope("S", widget.SearchBox("sq"))[0])

	h.expect(t, evWidgetsUpdate)
	h.expect(t, evSearchTriggered)
	require.Eventually(t, func() bool { return h.client.SearchCallCount() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, h.c.OnExternalStateUpdate(core.SearchState{"query": "new", "sq": "new"}))
	h.expect(t, evExternalStateUpdate)
	h.expect(t, evSearchTriggered)
	assert.Equal(t, 2, h.c.pending)

	// The second round trip answers first.
	close(gates[1])
	h.expect(t, evSearchResponse)
	st := h.state()
	assert.Equal(t, "new", st.Results.For("S").Query)
	assert.Equal(t, "new", st.Results.For("P").Query)
	assert.True(t, st.IsSearchStalled, "a round trip is still pending")

	// The stale round trip only reaches the primary binding; its derived
	// binding was detached.
	close(gates[0])
	h.expect(t, evSearchResponse)
	st = h.state()
	assert.Equal(t, "", st.Results.For("P").Query)
	assert.Equal(t, "new", st.Results.For("S").Query)
	assert.False(t, st.IsSearchStalled)
	assert.Equal(t, 0, h.c.pending)
}

func TestStallDetection(t *testing.T) {
	release := make(chan struct{})
	client := mock.NewMockClient().WithSearchFunc(func(ctx context.Context, reqs []core.SearchParameters) ([]*core.SearchResults, error) {
		<-release
		return mock.Echo(reqs), nil
	})
	h := newHarness(t, client, WithStalledSearchDelay(50*time.Millisecond))
	h.c.Registry().Register(widget.SearchBox(""))

	h.expect(t, evWidgetsUpdate)
	h.expect(t, evSearchTriggered)
	require.Len(t, h.timers, 1)
	assert.Equal(t, 50*time.Millisecond, h.timers[0].delay)

	// A second trigger while the timer is armed does not arm another one.
	require.NoError(t, h.c.OnExternalStateUpdate(core.SearchState{"query": "x"}))
	h.expect(t, evExternalStateUpdate)
	h.expect(t, evSearchTriggered)
	assert.Len(t, h.timers, 1)

	// Settle the initial stall flag so the expiry is observable.
	st := h.state()
	st.IsSearchStalled = false
	h.c.Store().SetState(st)

	h.timers[0].fire()
	h.expect(t, evStallExpired)
	assert.True(t, h.state().IsSearchStalled)

	close(release)
	h.expect(t, evSearchResponse)
	assert.True(t, h.state().IsSearchStalled, "one round trip still pending")
	assert.False(t, h.timers[0].stopped)

	h.expect(t, evSearchResponse)
	assert.False(t, h.state().IsSearchStalled)
	assert.True(t, h.timers[0].stopped)
	assert.Nil(t, h.c.stallTimer)
}

func TestStallDetection_StaleExpiry(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Registry().Register(widget.SearchBox(""))
	h.settle(t, evWidgetsUpdate)
	require.Len(t, h.timers, 1)
	assert.True(t, h.timers[0].stopped)

	// An expiry racing with the settle must not mark a settled search stalled.
	h.timers[0].fire()
	h.expect(t, evStallExpired)
	assert.False(t, h.state().IsSearchStalled)

	// The next trigger arms a fresh timer.
	require.NoError(t, h.c.ClearCache())
	h.settle(t, evClearCache)
	assert.Len(t, h.timers, 2)
}

func TestSearchError(t *testing.T) {
	boom := errors.New("backend unavailable")
	fail := true
	client := mock.NewMockClient().WithSearchFunc(func(ctx context.Context, reqs []core.SearchParameters) ([]*core.SearchResults, error) {
		if fail {
			return nil, boom
		}
		return mock.Echo(reqs), nil
	})
	seeded := core.FlatResults(&core.SearchResults{Index: "P", Query: "seed"})
	h := newHarness(t, client, WithResultsState(seeded))
	h.c.Registry().Register(widget.SearchBox(""))

	h.settle(t, evWidgetsUpdate)
	st := h.state()
	assert.Same(t, boom, st.Error)
	assert.Equal(t, seeded, st.Results, "results are left untouched")
	assert.False(t, st.Searching)
	assert.False(t, st.IsSearchStalled)
	assert.True(t, h.timers[0].stopped)

	fail = false
	require.NoError(t, h.c.OnExternalStateUpdate(core.SearchState{"query": "ok"}))
	h.settle(t, evExternalStateUpdate)
	st = h.state()
	assert.NoError(t, st.Error)
	assert.Equal(t, "ok", st.Results.Flat().Query)
}

func TestSearch_IncompleteResponse(t *testing.T) {
	client := mock.NewMockClient().WithSearchFunc(func(ctx context.Context, reqs []core.SearchParameters) ([]*core.SearchResults, error) {
		return []*core.SearchResults{nil}, nil
	})
	h := newHarness(t, client)
	h.c.Registry().Register(widget.SearchBox(""))
	h.settle(t, evWidgetsUpdate)
	assert.ErrorIs(t, h.state().Error, ErrIncompleteResponse)
}

func TestSearchForFacetValues_Clamp(t *testing.T) {
	h := newHarness(t, nil)
	tests := []struct{ in, want int }{
		{500, 100},
		{0, 1},
		{-3, 1},
		{DefaultMaxFacetHits, 10},
		{100, 100},
	}

	for _, tt := range tests {
		require.NoError(t, h.c.OnSearchForFacetValues("color", "bl", tt.in))
		h.expect(t, evSearchForFacetValues)
		h.expect(t, evFacetResponse)
	}

	calls := h.client.FacetSearchCalls()
	require.Len(t, calls, len(tests))
	for i, tt := range tests {
		assert.Equal(t, tt.want, calls[i].MaxFacetHits, "input %d", tt.in)
	}
}

func TestSearchForFacetValues(t *testing.T) {
	boom := errors.New("facet failure")
	fail := false
	hits := []core.FacetHit{{Value: "blue", Highlighted: "blue", Count: 2}}
	client := mock.NewMockClient().WithSearchForFacetValuesFunc(
		func(ctx context.Context, params core.SearchParameters, facet, query string, n int) ([]core.FacetHit, error) {
			if fail {
				return nil, boom
			}
			return hits, nil
		})
	h := newHarness(t, client)
	h.c.Registry().Register(widget.SearchBox(""))
	h.settle(t, evWidgetsUpdate)
	require.NoError(t, h.c.OnExternalStateUpdate(core.SearchState{"query": "lamp"}))
	h.settle(t, evExternalStateUpdate)

	t.Run("success stores hits with the query", func(t *testing.T) {
		require.NoError(t, h.c.OnSearchForFacetValues("color", "bl", 10))
		h.expect(t, evSearchForFacetValues)
		assert.True(t, h.state().SearchingForFacetValues)

		h.expect(t, evFacetResponse)
		st := h.state()
		assert.False(t, st.SearchingForFacetValues)
		assert.NoError(t, st.Error)
		assert.Equal(t, store.FacetValuesResult{Query: "bl", Hits: hits}, st.ResultsFacetValues["color"])

		calls := h.client.FacetSearchCalls()
		assert.Equal(t, "lamp", calls[len(calls)-1].Params.Query, "uses the primary parameters")
	})

	t.Run("failure stores the error", func(t *testing.T) {
		fail = true
		require.NoError(t, h.c.OnSearchForFacetValues("brand", "ac", 10))
		h.expect(t, evSearchForFacetValues)
		h.expect(t, evFacetResponse)
		st := h.state()
		assert.False(t, st.SearchingForFacetValues)
		assert.Same(t, boom, st.Error)
		assert.Contains(t, st.ResultsFacetValues, "color")
	})

	t.Run("search results drop facet values", func(t *testing.T) {
		require.NoError(t, h.c.ClearCache())
		h.settle(t, evClearCache)
		assert.Nil(t, h.state().ResultsFacetValues)
	})
}

func TestSearchForFacetValues_DeferredRethrow(t *testing.T) {
	deferred := make(chan error, 1)
	h := newHarness(t, nil, WithDeferredErrorHandler(func(err error) { deferred <- err }))

	h.c.Store().Subscribe(func(st store.State) {
		if st.ResultsFacetValues != nil {
			panic(errors.New("render failed"))
		}
	})

	require.NoError(t, h.c.OnSearchForFacetValues("color", "", 10))
	h.expect(t, evSearchForFacetValues)
	h.expect(t, evFacetResponse)

	select {
	case err := <-deferred:
		var de *core.DeferredError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "facet values", de.Op)
		assert.EqualError(t, de.Err, "render failed")
	case <-time.After(time.Second):
		t.Fatal("deferred error not reported")
	}

	// The response itself was applied before the subscriber failed.
	assert.Equal(t, 0, h.c.facetPending)
	assert.False(t, h.state().SearchingForFacetValues)
}

func TestSkipSearch(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Registry().Register(widget.SearchBox(""))
	h.settle(t, evWidgetsUpdate)

	require.NoError(t, h.c.SkipSearch())
	require.NoError(t, h.c.OnExternalStateUpdate(core.SearchState{"query": "bulk"}))
	h.expect(t, evSkipSearch)
	h.expect(t, evExternalStateUpdate)
	assert.Equal(t, 1, h.client.SearchCallCount())
	assert.Equal(t, "bulk", h.state().Widgets["query"], "state is still applied")

	require.NoError(t, h.c.OnExternalStateUpdate(core.SearchState{"query": "after"}))
	h.settle(t, evExternalStateUpdate)
	assert.Equal(t, 2, h.client.SearchCallCount(), "skip is consumed by one search")
}

func TestUpdateIndex(t *testing.T) {
	h := newHarness(t, nil)
	reg := h.c.Registry()
	reg.Register(numericWidget("p", "P", 1))
	reg.Register(numericWidget("q", "Q", 2))
	h.settle(t, evWidgetsUpdate)
	assert.Equal(t, []string{"P", "Q"}, indicesOf(h.client.SearchCalls()[0]))

	require.ErrorIs(t, h.c.UpdateIndex(""), ErrIndexNameRequired)
	require.NoError(t, h.c.UpdateIndex("Q"))
	h.settle(t, evUpdateIndex)

	calls := h.client.SearchCalls()
	assert.Equal(t, []string{"Q", "P"}, indicesOf(calls[1]))
	assert.Equal(t, "Q", h.c.primary.index)
	require.Len(t, h.c.derived, 1)
	assert.Equal(t, "P", h.c.derived[0].index)
}

func TestUpdateClientAndClearCache(t *testing.T) {
	h := newHarness(t, nil)
	h.c.Registry().Register(widget.SearchBox(""))
	h.settle(t, evWidgetsUpdate)

	next := mock.NewMockClient()
	require.ErrorIs(t, h.c.UpdateClient(nil), ErrClientRequired)
	require.NoError(t, h.c.UpdateClient(next))
	h.settle(t, evUpdateClient)
	assert.Equal(t, 1, h.client.SearchCallCount())
	assert.Equal(t, 1, next.SearchCallCount())

	require.NoError(t, h.c.ClearCache())
	h.settle(t, evClearCache)
	assert.Equal(t, 1, next.ClearCacheCount())
	assert.Equal(t, 2, next.SearchCallCount())
}

func TestTransitionState(t *testing.T) {
	h := newHarness(t, nil, WithInitialState(core.SearchState{"page": 3, "query": "lamp"}))
	h.c.Registry().Register(widget.SearchBox(""))
	h.c.Registry().Register(widget.Pagination(""))

	next := h.c.TransitionState(core.SearchState{"page": 3, "query": "chair"})
	_, hasPage := next["page"]
	assert.False(t, hasPage)
	assert.Equal(t, "lamp", h.state().Widgets["query"], "the store is not modified")
}

func TestGetWidgetsIDs(t *testing.T) {
	h := newHarness(t, nil)
	reg := h.c.Registry()
	reg.Register(widget.SearchBox(""))
	reg.Register(&core.Widget{GetMetadata: func(core.SearchState) core.Metadata { return core.Metadata{} }})
	reg.Register(widget.Range(widget.RangeProps{Attribute: "price"}))

	assert.Empty(t, h.c.GetWidgetsIDs(), "metadata is computed on update")
	h.expect(t, evWidgetsUpdate)
	assert.Equal(t, []string{"query", "price"}, h.c.GetWidgetsIDs())
	assert.Len(t, h.state().Metadata, 3)
}
