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


package store

import (
	"sync"

	"github.com/poiesic/facetflow/core"
)

// FacetValuesResult holds the hits of the last facet-value search together
// with the query that produced them.
type FacetValuesResult struct {
	Query string
	Hits  []core.FacetHit
}

// State is one snapshot of application state.
type State struct {
	Widgets  core.SearchState
	Metadata []core.Metadata
	Results  core.ResultsState

	// Error holds the last backend failure verbatim, nil after a success.
	Error error

	Searching               bool
	IsSearchStalled         bool
	SearchingForFacetValues bool

	// ResultsFacetValues maps a facet name to its last facet-value search.
	ResultsFacetValues map[string]FacetValuesResult
}

// Listener is called with the new snapshot after every SetState.
type Listener func(State)

// Store is a synchronous state container. It is safe for concurrent use;
// listeners run on the writer's goroutine after the write is visible.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[uint64]Listener
	order     []uint64
	nextID    uint64
}

// New creates a store holding initial.
func New(initial State) *Store {
	return &Store{
		state:     initial,
		listeners: make(map[uint64]Listener),
	}
}

// GetState returns the current snapshot.
func (s *Store) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState replaces the snapshot and notifies subscribers in subscription order.
func (s *Store) SetState(next State) {
	s.mu.Lock()
	s.state = next
	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
}

// Update applies fn to the current snapshot and stores the result.
func (s *Store) Update(fn func(State) State) {
	s.SetState(fn(s.GetState()))
}

// Subscribe registers l and returns a function removing it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.listeners[id]; !ok {
			return
		}
		delete(s.listeners, id)
		for i, existing := range s.order {
			if existing == id {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
}
