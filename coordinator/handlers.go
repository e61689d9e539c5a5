package coordinator

import (
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/facetflow/compose"
	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/store"
)

// handle applies one event. A panic raised while handling, typically by a
// store subscriber, is reported through the deferred error handler.
func (c *Coordinator) handle(ev event) {
	defer c.releaseIdleWaiters()
	defer c.recoverDeferred(ev.kind)

	switch ev.kind {
	case evWidgetsUpdate:
		st := c.store.GetState()
		st.Metadata = compose.Metadata(c.registry.Widgets(), st.Widgets)
		st.Searching = true
		c.store.SetState(st)
		c.search()

	case evExternalStateUpdate:
		st := c.store.GetState()
		st.Widgets = ev.state
		st.Metadata = compose.Metadata(c.registry.Widgets(), ev.state)
		st.Searching = true
		c.store.SetState(st)
		c.search()

	case evSearchForFacetValues:
		c.searchForFacetValues(ev.facet, ev.query, ev.maxFacetHits)

	case evUpdateClient:
		c.client = ev.client
		c.search()

	case evUpdateIndex:
		c.baseline = c.baseline.SetIndex(ev.index)
		c.primary.index = ev.index
		c.search()

	case evClearCache:
		if err := c.client.ClearCache(); err != nil {
			c.logger.Warn("failed to clear client cache", "err", err)
		}
		c.search()

	case evSkipSearch:
		c.skip = true

	case evSearchTriggered:
		c.armStallTimer()

	case evStallExpired:
		c.onStallExpired(ev.gen)

	case evSearchResponse:
		c.pending--
		if ev.err != nil {
			c.logger.Debug("search failed", "dispatch", ev.dispatch, "err", ev.err)
			c.onSearchError(ev.err)
			return
		}
		c.logger.Debug("search settled", "dispatch", ev.dispatch, "pending", c.pending)
		for i, b := range ev.bindings {
			if b.detached {
				continue
			}
			c.applySearchResult(b, ev.results[i])
		}

	case evFacetResponse:
		c.facetPending--
		c.onFacetResponse(ev)

	case evFlush:
		close(ev.done)

	case evWaitIdle:
		c.idleWaiters = append(c.idleWaiters, ev.done)
	}
}

// search recomposes parameters, rebuilds the derived bindings and dispatches
// one batch for the primary and every derived binding.
func (c *Coordinator) search() {
	if c.skip {
		c.skip = false
		c.logger.Debug("search skipped")
		return
	}

	composition := compose.Compose(c.registry.Widgets(), c.store.GetState().Widgets, c.baseline)

	for _, b := range c.derived {
		b.detach()
	}
	c.derived = make([]*binding, 0, len(composition.Derived))
	for _, group := range composition.Derived {
		c.derived = append(c.derived, &binding{index: group.TargetedIndex, params: group.Parameters})
	}
	c.primary.params = composition.Main

	c.dispatch()
}

func (c *Coordinator) dispatch() {
	bindings := make([]*binding, 0, 1+len(c.derived))
	bindings = append(bindings, c.primary)
	bindings = append(bindings, c.derived...)

	requests := make([]core.SearchParameters, len(bindings))
	for i, b := range bindings {
		requests[i] = b.params
	}

	id := uuid.NewString()
	client := c.client
	ctx := c.ctx

	c.pending++
	c.logger.Debug("dispatching search", "dispatch", id, "queries", len(requests), "index", c.primary.index)
	if err := c.enqueue(event{kind: evSearchTriggered}); err != nil {
		return
	}

	submitErr := c.submit(func() {
		results, err := client.Search(ctx, requests)
		if err == nil {
			err = checkResponse(results, len(requests))
		}
		if qErr := c.enqueue(event{
			kind:     evSearchResponse,
			dispatch: id,
			bindings: bindings,
			results:  results,
			err:      err,
		}); qErr != nil {
			c.logger.Debug("search response dropped", "dispatch", id, "err", qErr)
		}
	})
	if submitErr != nil {
		c.enqueue(event{
			kind:     evSearchResponse,
			dispatch: id,
			err:      fmt.Errorf("failed to submit search: %w", submitErr),
		})
	}
}

// submit hands task to the pool without blocking. Round trips beyond the
// pool's capacity run on their own goroutine.
func (c *Coordinator) submit(task func()) error {
	err := c.pool.Submit(task)
	if errors.Is(err, ants.ErrPoolOverload) {
		c.logger.Debug("dispatch pool saturated, running round trip outside the pool", "capacity", c.pool.Cap())
		go task()
		return nil
	}
	return err
}

func checkResponse(results []*core.SearchResults, want int) error {
	if len(results) != want {
		return fmt.Errorf("%w: got %d payloads for %d queries", ErrIncompleteResponse, len(results), want)
	}
	for i, r := range results {
		if r == nil {
			return fmt.Errorf("%w: payload %d is nil", ErrIncompleteResponse, i)
		}
	}
	return nil
}

// applySearchResult stores the payload of one binding. A failure while
// applying it does not prevent the other bindings of the batch from landing.
func (c *Coordinator) applySearchResult(b *binding, payload *core.SearchResults) {
	defer c.recoverDeferred(evSearchResponse)
	b.lastResults = payload
	c.onSearchResult(payload)
}

// recoverDeferred must be deferred directly. It reports a panic raised while
// handling kind through the deferred error handler.
func (c *Coordinator) recoverDeferred(kind eventKind) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("%v", r)
	}
	c.rethrow(&core.DeferredError{Op: kind.String(), Err: err})
}

// onSearchResult stores one payload in the results state.
func (c *Coordinator) onSearchResult(payload *core.SearchResults) {
	st := c.store.GetState()

	if len(c.derived) > 0 {
		index := c.primary.index
		for _, b := range c.derived {
			if b.lastResults == payload {
				index = b.index
				break
			}
		}
		st.Results = st.Results.WithIndex(index, payload)
	} else {
		st.Results = core.FlatResults(payload)
	}

	if c.pending == 0 {
		c.clearStallTimer()
		st.IsSearchStalled = false
	}
	st.Searching = false
	st.Error = nil
	st.ResultsFacetValues = nil
	c.store.SetState(st)
}

// onSearchError records err, leaving the results untouched.
func (c *Coordinator) onSearchError(err error) {
	st := c.store.GetState()
	if c.pending == 0 {
		c.clearStallTimer()
		st.IsSearchStalled = false
	}
	st.Error = err
	st.Searching = false
	st.ResultsFacetValues = nil
	c.store.SetState(st)
}

func (c *Coordinator) armStallTimer() {
	if c.stallTimer != nil {
		return
	}
	c.stallGen++
	gen := c.stallGen
	c.stallTimer = c.afterFunc(c.stallDelay, func() {
		c.enqueue(event{kind: evStallExpired, gen: gen})
	})
}

// clearStallTimer disarms the timer. An expiry already queued becomes stale.
func (c *Coordinator) clearStallTimer() {
	if c.stallTimer == nil {
		return
	}
	c.stallTimer.Stop()
	c.stallTimer = nil
}

func (c *Coordinator) onStallExpired(gen uint64) {
	if c.stallTimer == nil || gen != c.stallGen {
		c.logger.Debug("ignoring stale stall timer", "gen", gen)
		return
	}
	// The expired timer stays armed until the search settles, so no second
	// timer starts in between.
	st := c.store.GetState()
	st.IsSearchStalled = true
	st.ResultsFacetValues = nil
	c.store.SetState(st)
}

func (c *Coordinator) searchForFacetValues(facet, query string, maxHits int) {
	maxHits = max(minFacetHits, min(maxHits, maxFacetHits))

	st := c.store.GetState()
	st.SearchingForFacetValues = true
	c.store.SetState(st)

	params := c.primary.params
	client := c.client
	ctx := c.ctx

	c.facetPending++
	submitErr := c.submit(func() {
		hits, err := client.SearchForFacetValues(ctx, params, facet, query, maxHits)
		if qErr := c.enqueue(event{kind: evFacetResponse, facet: facet, query: query, hits: hits, err: err}); qErr != nil {
			c.logger.Debug("facet response dropped", "facet", facet, "err", qErr)
		}
	})
	if submitErr != nil {
		c.enqueue(event{kind: evFacetResponse, facet: facet, query: query,
			err: fmt.Errorf("failed to submit facet search: %w", submitErr)})
	}
}

func (c *Coordinator) onFacetResponse(ev event) {
	st := c.store.GetState()
	st.SearchingForFacetValues = false

	if ev.err != nil {
		st.Error = ev.err
		c.store.SetState(st)
		return
	}

	values := make(map[string]store.FacetValuesResult, len(st.ResultsFacetValues)+1)
	maps.Copy(values, st.ResultsFacetValues)
	values[ev.facet] = store.FacetValuesResult{Query: ev.query, Hits: ev.hits}
	st.ResultsFacetValues = values
	st.Error = nil
	c.store.SetState(st)
}

// rethrow reports err outside the current update cycle.
func (c *Coordinator) rethrow(err error) {
	handler := c.deferredErrors
	go handler(err)
}

func (c *Coordinator) releaseIdleWaiters() {
	if c.pending > 0 || c.facetPending > 0 || len(c.idleWaiters) == 0 {
		return
	}
	for _, done := range c.idleWaiters {
		close(done)
	}
	c.idleWaiters = nil
}
