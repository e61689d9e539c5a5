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
	"github.com/poiesic/facetflow/core"
)

// RangeValue is a possibly open numeric interval. A nil bound is unset.
type RangeValue struct {
	Min *float64
	Max *float64
}

// Bound returns a pointer to v, for building RangeValue literals.
func Bound(v float64) *float64 {
	return &v
}

// RangeProps configures a Range widget.
type RangeProps struct {
	ID        string // Defaults to Attribute
	Attribute string
	IndexName string

	// Min and Max fix the display bounds. Unset bounds come from the
	// attribute's facet statistics.
	Min *float64
	Max *float64

	// DefaultValue applies while the state holds no value for the widget.
	DefaultValue *RangeValue
}

func (p RangeProps) id() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Attribute
}

// RangeView is what a range slider displays.
type RangeView struct {
	Min   float64
	Max   float64
	Value RangeValue // Always has both bounds set
}

// RangeValueOf returns the interval currently selected for props in state.
// State values may be a RangeValue, a *RangeValue, or a map with "min" and
// "max" entries holding numbers or numeric strings.
func RangeValueOf(props RangeProps, state core.SearchState) RangeValue {
	raw, ok := state[props.id()]
	if !ok {
		if props.DefaultValue != nil {
			return *props.DefaultValue
		}
		return RangeValue{}
	}

	switch v := raw.(type) {
	case RangeValue:
		return v
	case *RangeValue:
		if v != nil {
			return *v
		}
	case map[string]any:
		var out RangeValue
		if n, ok := number(v["min"]); ok {
			out.Min = Bound(n)
		}
		if n, ok := number(v["max"]); ok {
			out.Max = Bound(n)
		}
		return out
	}
	return RangeValue{}
}

// RefineRange returns state with the interval of props replaced by value.
func RefineRange(props RangeProps, state core.SearchState, value RangeValue) core.SearchState {
	return state.With(props.id(), value)
}

// ViewRange computes what the slider shows. It returns false while a display
// bound is neither configured nor reported by the facet statistics of results.
func ViewRange(props RangeProps, state core.SearchState, results *core.SearchResults) (RangeView, bool) {
	var view RangeView

	if props.Min == nil || props.Max == nil {
		stats, ok := results.FacetStatsFor(props.Attribute)
		if !ok {
			return RangeView{}, false
		}
		view.Min, view.Max = stats.Min, stats.Max
	}
	if props.Min != nil {
		view.Min = *props.Min
	}
	if props.Max != nil {
		view.Max = *props.Max
	}

	value := RangeValueOf(props, state)
	view.Value = RangeValue{Min: Bound(view.Min), Max: Bound(view.Max)}
	if value.Min != nil {
		view.Value.Min = Bound(*value.Min)
	}
	if value.Max != nil {
		view.Value.Max = Bound(*value.Max)
	}
	return view, true
}

// Range creates a widget restricting Attribute to the selected interval.
// The attribute is declared as a disjunctive facet so the backend reports
// statistics over the whole range regardless of the current selection.
func Range(props RangeProps) *core.Widget {
	id := props.id()
	attr := props.Attribute

	w := &core.Widget{ID: id, IndexName: props.IndexName}
	w.GetSearchParameters = func(params core.SearchParameters, state core.SearchState) core.SearchParameters {
		value := RangeValueOf(props, state)
		next := params.AddDisjunctiveFacet(attr)
		if value.Min != nil {
			next = next.AddNumericRefinement(attr, core.OpGreaterOrEqual, *value.Min)
		}
		if value.Max != nil {
			next = next.AddNumericRefinement(attr, core.OpLessOrEqual, *value.Max)
		}
		return keepPage(params, next)
	}
	w.GetMetadata = func(state core.SearchState) core.Metadata {
		md := core.Metadata{ID: id, Index: targetOf(w)}
		value := RangeValueOf(props, state)
		if value.Min == nil && value.Max == nil {
			return md
		}

		label := ""
		if value.Min != nil {
			label += formatNumber(*value.Min) + " <= "
		}
		label += attr
		if value.Max != nil {
			label += " <= " + formatNumber(*value.Max)
		}
		md.Filters = []core.Filter{{
			Key:   id + "." + label,
			Label: label,
			Clear: func(next core.SearchState) core.SearchState {
				return next.With(id, RangeValue{})
			},
		}}
		return md
	}
	return w
}
