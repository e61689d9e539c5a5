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


package widget

import (
	"slices"
	"sync"

	"github.com/poiesic/facetflow/core"
)

// Registry holds the currently mounted widgets.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	widgets  []*core.Widget
	onUpdate func()
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// OnUpdate sets the function called after every registration change.
// The handler runs on the caller's goroutine, outside the registry lock.
func (r *Registry) OnUpdate(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUpdate = fn
}

// Register mounts w at the end of the registration order and returns a
// function that unmounts it. Registering a nil or already mounted widget
// does nothing.
func (r *Registry) Register(w *core.Widget) (unregister func()) {
	if w == nil {
		return func() {}
	}

	r.mu.Lock()
	for _, existing := range r.widgets {
		if existing == w {
			r.mu.Unlock()
			return func() { r.Unregister(w) }
		}
	}
	r.widgets = append(r.widgets, w)
	fn := r.onUpdate
	r.mu.Unlock()

	notify(fn)
	return func() { r.Unregister(w) }
}

// RegisterAll mounts ws in order with a single update notification.
// The returned function unmounts the widgets it mounted.
func (r *Registry) RegisterAll(ws ...*core.Widget) (unregister func()) {
	r.mu.Lock()
	var added []*core.Widget
	for _, w := range ws {
		if w == nil || slices.Contains(r.widgets, w) {
			continue
		}
		r.widgets = append(r.widgets, w)
		added = append(added, w)
	}
	fn := r.onUpdate
	r.mu.Unlock()

	if len(added) > 0 {
		notify(fn)
	}
	return func() {
		for _, w := range added {
			r.Unregister(w)
		}
	}
}

// Unregister unmounts w. Returns false if w was not mounted.
func (r *Registry) Unregister(w *core.Widget) bool {
	r.mu.Lock()
	idx := -1
	for i, existing := range r.widgets {
		if existing == w {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	next := make([]*core.Widget, 0, len(r.widgets)-1)
	next = append(next, r.widgets[:idx]...)
	next = append(next, r.widgets[idx+1:]...)
	r.widgets = next
	fn := r.onUpdate
	r.mu.Unlock()

	notify(fn)
	return true
}

// Update signals that a mounted widget changed without a membership change.
func (r *Registry) Update() {
	r.mu.RLock()
	fn := r.onUpdate
	r.mu.RUnlock()
	notify(fn)
}

// Widgets returns the mounted widgets in registration order.
// The returned slice is a copy.
func (r *Registry) Widgets() []*core.Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Widget, len(r.widgets))
	copy(out, r.widgets)
	return out
}

// Len returns the number of mounted widgets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.widgets)
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}
