package coordinator

import (
	"context"

	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/search"
)

type eventKind int

const (
	evWidgetsUpdate eventKind = iota
	evExternalStateUpdate
	evSearchForFacetValues
	evUpdateClient
	evUpdateIndex
	evClearCache
	evSkipSearch
	evSearchTriggered
	evStallExpired
	evSearchResponse
	evFacetResponse
	evFlush
	evWaitIdle
)

var eventNames = [...]string{
	evWidgetsUpdate:        "widgets update",
	evExternalStateUpdate:  "external state update",
	evSearchForFacetValues: "search for facet values",
	evUpdateClient:         "update client",
	evUpdateIndex:          "update index",
	evClearCache:           "clear cache",
	evSkipSearch:           "skip search",
	evSearchTriggered:      "search triggered",
	evStallExpired:         "stall expired",
	evSearchResponse:       "search",
	evFacetResponse:        "facet values",
	evFlush:                "flush",
	evWaitIdle:             "wait idle",
}

func (k eventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// event is one unit of work for the coordinator loop. Only the fields
// relevant to kind are set.
type event struct {
	kind eventKind

	state  core.SearchState
	client search.Client
	index  string

	facet        string
	query        string
	maxFacetHits int

	// Search responses
	dispatch string
	bindings []*binding
	results  []*core.SearchResults
	hits     []core.FacetHit
	err      error

	// Stall timer generation
	gen uint64

	// Closed once the event has been handled (flush) or the coordinator is idle.
	done chan struct{}
}

// enqueue appends ev to the queue. Widget updates are coalesced: while one is
// queued, further ones are dropped since the handler reads the registry's
// latest state anyway.
func (c *Coordinator) enqueue(ev event) error {
	c.qmu.Lock()
	if c.closed {
		c.qmu.Unlock()
		return ErrStopped
	}
	if ev.kind == evWidgetsUpdate {
		if c.widgetsQueued {
			c.qmu.Unlock()
			return nil
		}
		c.widgetsQueued = true
	}
	c.queue = append(c.queue, ev)
	c.qmu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// tryNext pops the oldest event without blocking.
func (c *Coordinator) tryNext() (event, bool) {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	if len(c.queue) == 0 {
		return event{}, false
	}
	ev := c.queue[0]
	c.queue[0] = event{}
	c.queue = c.queue[1:]
	if ev.kind == evWidgetsUpdate {
		c.widgetsQueued = false
	}
	return ev, true
}

// next blocks until an event is available or ctx is done.
func (c *Coordinator) next(ctx context.Context) (event, bool) {
	for {
		if ev, ok := c.tryNext(); ok {
			return ev, true
		}
		select {
		case <-ctx.Done():
			return event{}, false
		case <-c.wake:
		}
	}
}
