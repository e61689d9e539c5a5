package core

import "maps"

// SearchState maps a widget id to that widget's value (a query string, a
// page number, refined values, a range...). Treat it as immutable: use With
// and Without to derive new states.
type SearchState map[string]any

// With returns a copy of s with id set to value.
func (s SearchState) With(id string, value any) SearchState {
	next := make(SearchState, len(s)+1)
	maps.Copy(next, s)
	next[id] = value
	return next
}

// Without returns a copy of s without id.
func (s SearchState) Without(id string) SearchState {
	next := make(SearchState, len(s))
	maps.Copy(next, s)
	delete(next, id)
	return next
}

// MultiIndexContext is set on widgets mounted inside an index scope.
type MultiIndexContext struct {
	TargetedIndex string
}

// Filter is one active refinement reported in widget metadata.
type Filter struct {
	Key   string
	Label string
	// Clear returns the search state with this refinement removed.
	Clear func(state SearchState) SearchState
}

// Metadata describes the refinements a widget currently applies.
type Metadata struct {
	ID      string
	Index   string
	Filters []Filter
}

// Widget is a declarative contributor of query parameters and state.
//
// Every operation is optional; a nil slot means the widget does not take part
// in that pass.
type Widget struct {
	// ID names the widget in metadata. Optional.
	ID string

	// IndexName targets the widget at an index other than the primary one.
	IndexName string

	// MultiIndex is set when the widget lives inside an index scope. It takes
	// precedence over IndexName.
	MultiIndex *MultiIndexContext

	// GetSearchParameters folds the widget's contribution into params.
	GetSearchParameters func(params SearchParameters, state SearchState) SearchParameters

	// GetMetadata reports the widget's active refinements.
	GetMetadata func(state SearchState) Metadata

	// TransitionState rewrites next as state moves away from prev.
	TransitionState func(prev, next SearchState) SearchState
}

// TargetedIndex returns the index the widget explicitly targets, if any.
// A multi-index context with an empty target does not count as a target.
func (w *Widget) TargetedIndex() (string, bool) {
	if w.MultiIndex != nil && w.MultiIndex.TargetedIndex != "" {
		return w.MultiIndex.TargetedIndex, true
	}
	if w.IndexName != "" {
		return w.IndexName, true
	}
	return "", false
}
