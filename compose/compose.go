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


package compose

import (
	"github.com/poiesic/facetflow/core"
)

// DerivedGroup holds the widgets targeting one non-primary index and the
// parameters they compose.
type DerivedGroup struct {
	TargetedIndex string
	Widgets       []*core.Widget
	Parameters    core.SearchParameters
}

// Composition is the output of one composition pass.
type Composition struct {
	Shared  core.SearchParameters
	Main    core.SearchParameters
	Derived []DerivedGroup
}

// Compose folds widgets over baseline. The primary index is the baseline's
// index. Derived groups appear in the order their index was first targeted.
func Compose(widgets []*core.Widget, state core.SearchState, baseline core.SearchParameters) Composition {
	primary := baseline.Index

	var shared, main []*core.Widget
	var derived []DerivedGroup
	groupOf := make(map[string]int)

	for _, w := range widgets {
		if w == nil || w.GetSearchParameters == nil {
			continue
		}
		target, ok := w.TargetedIndex()
		switch {
		case !ok:
			shared = append(shared, w)
		case target == primary:
			main = append(main, w)
		default:
			idx, seen := groupOf[target]
			if !seen {
				idx = len(derived)
				groupOf[target] = idx
				derived = append(derived, DerivedGroup{TargetedIndex: target})
			}
			derived[idx].Widgets = append(derived[idx].Widgets, w)
		}
	}

	c := Composition{
		Shared: Fold(shared, state, baseline),
	}
	c.Main = Fold(main, state, c.Shared)
	for i := range derived {
		derived[i].Parameters = Fold(derived[i].Widgets, state, c.Shared.SetIndex(derived[i].TargetedIndex))
	}
	c.Derived = derived
	return c
}

// Fold applies every widget's contribution to params in order.
func Fold(widgets []*core.Widget, state core.SearchState, params core.SearchParameters) core.SearchParameters {
	out := params
	for _, w := range widgets {
		if w == nil || w.GetSearchParameters == nil {
			continue
		}
		out = w.GetSearchParameters(out, state)
	}
	return out
}

// Metadata collects the metadata of every widget reporting one, in order.
func Metadata(widgets []*core.Widget, state core.SearchState) []core.Metadata {
	out := make([]core.Metadata, 0, len(widgets))
	for _, w := range widgets {
		if w == nil || w.GetMetadata == nil {
			continue
		}
		out = append(out, w.GetMetadata(state))
	}
	return out
}

// Transition folds every widget's TransitionState over next, in order.
// Each widget sees the previous widget's output.
func Transition(widgets []*core.Widget, prev, next core.SearchState) core.SearchState {
	out := next
	for _, w := range widgets {
		if w == nil || w.TransitionState == nil {
			continue
		}
		out = w.TransitionState(prev, out)
	}
	return out
}
