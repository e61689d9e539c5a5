package widget

import (
	"reflect"
	"slices"

	"github.com/poiesic/facetflow/core"
)

// SearchBox creates a widget applying the query string stored under id.
// id defaults to "query".
func SearchBox(id string) *core.Widget {
	if id == "" {
		id = "query"
	}
	w := &core.Widget{ID: id}
	w.GetSearchParameters = func(params core.SearchParameters, state core.SearchState) core.SearchParameters {
		return keepPage(params, params.SetQuery(stringValue(state, id)))
	}
	w.GetMetadata = func(state core.SearchState) core.Metadata {
		md := core.Metadata{ID: id, Index: targetOf(w)}
		if q := stringValue(state, id); q != "" {
			md.Filters = []core.Filter{{
				Key:   id + "." + q,
				Label: id + ": " + q,
				Clear: func(next core.SearchState) core.SearchState {
					return next.With(id, "")
				},
			}}
		}
		return md
	}
	return w
}

// Operator combines the refined values of a refinement list.
type Operator string

const (
	OperatorOr  Operator = "or"
	OperatorAnd Operator = "and"
)

// RefinementListProps configures a RefinementList.
type RefinementListProps struct {
	ID        string // Defaults to Attribute
	Attribute string
	Operator  Operator // Defaults to OperatorOr
	IndexName string
}

// RefinementList creates a widget refining Attribute with the values stored
// under its id as a []string.
func RefinementList(props RefinementListProps) *core.Widget {
	id := props.ID
	if id == "" {
		id = props.Attribute
	}
	attr := props.Attribute
	disjunctive := props.Operator != OperatorAnd

	w := &core.Widget{ID: id, IndexName: props.IndexName}
	w.GetSearchParameters = func(params core.SearchParameters, state core.SearchState) core.SearchParameters {
		next := params
		if disjunctive {
			next = next.AddDisjunctiveFacet(attr)
		} else {
			next = next.AddFacet(attr)
		}
		for _, value := range stringsValue(state, id) {
			if disjunctive {
				next = next.AddDisjunctiveFacetRefinement(attr, value)
			} else {
				next = next.AddFacetRefinement(attr, value)
			}
		}
		return keepPage(params, next)
	}
	w.GetMetadata = func(state core.SearchState) core.Metadata {
		md := core.Metadata{ID: id, Index: targetOf(w)}
		for _, value := range stringsValue(state, id) {
			md.Filters = append(md.Filters, core.Filter{
				Key:   id + "." + value,
				Label: attr + ": " + value,
				Clear: func(next core.SearchState) core.SearchState {
					remaining := slices.DeleteFunc(slices.Clone(stringsValue(next, id)), func(v string) bool {
						return v == value
					})
					return next.With(id, remaining)
				},
			})
		}
		return md
	}
	return w
}

// Pagination creates a widget applying the 1-based page number stored under id.
// id defaults to "page". When any other part of the state changes while the
// page stays put, the page is dropped so results restart from the first page.
func Pagination(id string) *core.Widget {
	if id == "" {
		id = "page"
	}
	w := &core.Widget{ID: id}
	w.GetSearchParameters = func(params core.SearchParameters, state core.SearchState) core.SearchParameters {
		page, ok := intValue(state, id)
		if !ok || page < 1 {
			return params
		}
		return params.SetPage(page - 1)
	}
	w.TransitionState = func(prev, next core.SearchState) core.SearchState {
		if _, ok := next[id]; !ok {
			return next
		}
		if !reflect.DeepEqual(prev[id], next[id]) {
			return next
		}
		if reflect.DeepEqual(prev.Without(id), next.Without(id)) {
			return next
		}
		return next.Without(id)
	}
	return w
}

// HitsPerPage creates a widget applying the page size stored under id,
// falling back to defaultValue when the state holds none.
func HitsPerPage(id string, defaultValue int) *core.Widget {
	if id == "" {
		id = "hitsPerPage"
	}
	return &core.Widget{
		ID: id,
		GetSearchParameters: func(params core.SearchParameters, state core.SearchState) core.SearchParameters {
			n, ok := intValue(state, id)
			if !ok || n < 1 {
				n = defaultValue
			}
			if n < 1 {
				return params
			}
			return keepPage(params, params.SetHitsPerPage(n))
		},
	}
}

// Configure creates a widget applying a fixed transformation to the parameters.
// It reports no metadata.
func Configure(id string, fn func(core.SearchParameters) core.SearchParameters) *core.Widget {
	return &core.Widget{
		ID: id,
		GetSearchParameters: func(params core.SearchParameters, _ core.SearchState) core.SearchParameters {
			if fn == nil {
				return params
			}
			return fn(params)
		},
	}
}

// Refine returns state with the value of id replaced.
func Refine(state core.SearchState, id string, value any) core.SearchState {
	return state.With(id, value)
}
