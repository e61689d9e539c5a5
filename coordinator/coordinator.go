// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/facetflow/compose"
	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/search"
	"github.com/poiesic/facetflow/store"
	"github.com/poiesic/facetflow/widget"
)

// stopper is the part of *time.Timer the stall logic needs.
type stopper interface {
	Stop() bool
}

// Coordinator orchestrates search for the widgets of one registry.
type Coordinator struct {
	registry *widget.Registry
	store    *store.Store
	pool     *ants.Pool
	logger   *slog.Logger

	stallDelay     time.Duration
	poolSize       int
	initialState   core.SearchState
	initialResults core.ResultsState
	deferredErrors func(error)
	afterFunc      func(time.Duration, func()) stopper

	ctx    context.Context
	cancel context.CancelFunc

	qmu           sync.Mutex
	queue         []event
	wake          chan struct{}
	widgetsQueued bool
	closed        bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}

	// Owned by the loop goroutine.
	client       search.Client
	baseline     core.SearchParameters
	primary      *binding
	derived      []*binding
	pending      int
	facetPending int
	stallTimer   stopper
	stallGen     uint64
	skip         bool
	idleWaiters  []chan struct{}
}

// New creates a coordinator searching indexName through client and starts
// its event loop. Call Stop to release it.
func New(indexName string, client search.Client, opts ...Option) (*Coordinator, error) {
	c, err := newCoordinator(indexName, client, opts...)
	if err != nil {
		return nil, err
	}
	c.start()
	return c, nil
}

// newCoordinator builds a coordinator without starting its loop.
func newCoordinator(indexName string, client search.Client, opts ...Option) (*Coordinator, error) {
	if indexName == "" {
		return nil, ErrIndexNameRequired
	}
	if client == nil {
		return nil, ErrClientRequired
	}

	c := &Coordinator{
		registry:   widget.NewRegistry(),
		logger:     slog.Default(),
		stallDelay: DefaultStalledSearchDelay,
		poolSize:   DefaultPoolSize,
		client:     client,
		baseline:   core.NewSearchParameters(indexName),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.baseline = c.baseline.SetIndex(indexName)
	if c.baseline.HighlightPreTag == "" && c.baseline.HighlightPostTag == "" {
		c.baseline = c.baseline.SetHighlightTags(core.DefaultHighlightPreTag, core.DefaultHighlightPostTag)
	}
	c.primary = &binding{index: indexName, params: c.baseline}

	if c.deferredErrors == nil {
		logger := c.logger
		c.deferredErrors = func(err error) {
			logger.Error("error applying response", "err", err)
		}
	}

	// Submitting runs on the event loop, so the pool must never block it.
	pool, err := ants.NewPool(c.poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	c.pool = pool

	widgets := c.initialState
	if widgets == nil {
		widgets = core.SearchState{}
	}
	c.store = store.New(store.State{
		Widgets:         widgets,
		Metadata:        []core.Metadata{},
		Results:         c.initialResults,
		IsSearchStalled: true,
	})

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.registry.OnUpdate(func() {
		if err := c.enqueue(event{kind: evWidgetsUpdate}); err != nil {
			c.logger.Debug("widgets update dropped", "err", err)
		}
	})

	return c, nil
}

func (c *Coordinator) start() {
	c.startOnce.Do(func() {
		go c.run()
	})
}

func (c *Coordinator) run() {
	defer close(c.done)
	for {
		ev, ok := c.next(c.ctx)
		if !ok {
			return
		}
		c.handle(ev)
	}
}

// Stop ends the event loop and releases the worker pool. Queued events are
// discarded and in-flight round trips are cancelled. Stop is idempotent.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		c.qmu.Lock()
		c.closed = true
		c.queue = nil
		c.qmu.Unlock()

		c.cancel()
		started := true
		c.startOnce.Do(func() { started = false })
		if started {
			<-c.done
		}

		if c.stallTimer != nil {
			c.stallTimer.Stop()
			c.stallTimer = nil
		}
		c.pool.Release()
	})
}

// Store returns the state store the coordinator writes to.
func (c *Coordinator) Store() *store.Store {
	return c.store
}

// Registry returns the widget registry driving the coordinator.
func (c *Coordinator) Registry() *widget.Registry {
	return c.registry
}

// OnExternalStateUpdate replaces the search state and searches.
func (c *Coordinator) OnExternalStateUpdate(next core.SearchState) error {
	return c.enqueue(event{kind: evExternalStateUpdate, state: next})
}

// TransitionState folds every widget's transition over next, starting from
// the current search state. It does not modify the store.
func (c *Coordinator) TransitionState(next core.SearchState) core.SearchState {
	return compose.Transition(c.registry.Widgets(), c.store.GetState().Widgets, next)
}

// OnSearchForFacetValues searches the values of facet matching query with the
// primary binding's parameters. maxFacetHits is clamped to [1, 100].
func (c *Coordinator) OnSearchForFacetValues(facet, query string, maxFacetHits int) error {
	return c.enqueue(event{kind: evSearchForFacetValues, facet: facet, query: query, maxFacetHits: maxFacetHits})
}

// UpdateClient switches to client and searches.
func (c *Coordinator) UpdateClient(client search.Client) error {
	if client == nil {
		return ErrClientRequired
	}
	return c.enqueue(event{kind: evUpdateClient, client: client})
}

// UpdateIndex retargets the primary index and searches.
func (c *Coordinator) UpdateIndex(index string) error {
	if index == "" {
		return ErrIndexNameRequired
	}
	return c.enqueue(event{kind: evUpdateIndex, index: index})
}

// ClearCache clears the client's cached responses and searches.
func (c *Coordinator) ClearCache() error {
	return c.enqueue(event{kind: evClearCache})
}

// SkipSearch makes the next search pass a no-op.
func (c *Coordinator) SkipSearch() error {
	return c.enqueue(event{kind: evSkipSearch})
}

// GetWidgetsIDs returns the ids of the widgets reporting metadata, in
// registration order. An empty id counts as no id, so such metadata is
// skipped rather than reported as "".
func (c *Coordinator) GetWidgetsIDs() []string {
	metadata := c.store.GetState().Metadata
	ids := make([]string, 0, len(metadata))
	for _, md := range metadata {
		if md.ID != "" {
			ids = append(ids, md.ID)
		}
	}
	return ids
}

// Flush waits until every event queued before the call has been handled.
func (c *Coordinator) Flush(ctx context.Context) error {
	return c.await(ctx, evFlush)
}

// WaitIdle waits until the queue has been drained up to the call and no
// round trip is pending.
func (c *Coordinator) WaitIdle(ctx context.Context) error {
	return c.await(ctx, evWaitIdle)
}

func (c *Coordinator) await(ctx context.Context, kind eventKind) error {
	done := make(chan struct{})
	if err := c.enqueue(event{kind: kind, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrStopped
	}
}
