package core

import (
	"maps"
	"slices"
	"sort"
	"time"
)

// Hit is a single matching document as returned by a backend.
type Hit struct {
	ObjectID   string
	Fields     map[string]string
	Facets     map[string][]string
	Numbers    map[string]float64
	Highlights map[string]string // Field values with matched words wrapped in highlight tags
}

// FacetStats summarizes a numeric attribute over the matching documents.
type FacetStats struct {
	Min float64
	Max float64
	Avg float64
	Sum float64
}

// FacetValue is a facet value with the number of matching documents carrying it.
type FacetValue struct {
	Value string
	Count int
}

// FacetHit is a facet value found by a facet-value search.
type FacetHit struct {
	Value       string
	Highlighted string
	Count       int
}

// SearchResults is the payload a backend returns for one query.
// Payloads are compared by identity: the coordinator matches a payload to the
// binding that produced it by pointer equality.
type SearchResults struct {
	Index          string
	Query          string
	Params         SearchParameters
	Hits           []Hit
	NbHits         int
	Page           int
	NbPages        int
	HitsPerPage    int
	Facets         map[string]map[string]int
	FacetStats     map[string]FacetStats
	ProcessingTime time.Duration
}

// FacetStatsFor returns the statistics the backend reported for attribute.
func (r *SearchResults) FacetStatsFor(attribute string) (FacetStats, bool) {
	if r == nil || r.FacetStats == nil {
		return FacetStats{}, false
	}
	stats, ok := r.FacetStats[attribute]
	return stats, ok
}

// FacetValues returns the counted values of attribute, most frequent first.
// Ties are ordered by value.
func (r *SearchResults) FacetValues(attribute string) []FacetValue {
	if r == nil {
		return nil
	}
	counts, ok := r.Facets[attribute]
	if !ok {
		return nil
	}
	values := make([]FacetValue, 0, len(counts))
	for v, c := range counts {
		values = append(values, FacetValue{Value: v, Count: c})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})
	return values
}

// ResultsState holds the latest results in one of two mutually exclusive
// shapes: a flat payload while a single index is searched, or a mapping from
// index id to payload while derived indices are active. The zero value holds
// no results.
type ResultsState struct {
	flat    *SearchResults
	byIndex map[string]*SearchResults
}

// FlatResults returns a single-index results state.
func FlatResults(r *SearchResults) ResultsState {
	return ResultsState{flat: r}
}

// IndexedResults returns a multi-index results state holding a copy of m.
func IndexedResults(m map[string]*SearchResults) ResultsState {
	byIndex := make(map[string]*SearchResults, len(m))
	maps.Copy(byIndex, m)
	return ResultsState{byIndex: byIndex}
}

// IsEmpty reports whether no results have been stored.
func (s ResultsState) IsEmpty() bool {
	return s.flat == nil && s.byIndex == nil
}

// IsMultiIndex reports whether the state uses the per-index shape.
func (s ResultsState) IsMultiIndex() bool {
	return s.byIndex != nil
}

// Flat returns the single-index payload, or nil in the per-index shape.
func (s ResultsState) Flat() *SearchResults {
	return s.flat
}

// Index returns the payload stored for index in the per-index shape.
func (s ResultsState) Index(index string) (*SearchResults, bool) {
	r, ok := s.byIndex[index]
	return r, ok
}

// Indices returns the index ids present in the per-index shape, sorted.
func (s ResultsState) Indices() []string {
	return slices.Sorted(maps.Keys(s.byIndex))
}

// For returns the payload relevant to index regardless of shape. In the flat
// shape the payload is returned when it was produced for index.
func (s ResultsState) For(index string) *SearchResults {
	if s.byIndex != nil {
		return s.byIndex[index]
	}
	if s.flat != nil && s.flat.Index == index {
		return s.flat
	}
	return nil
}

// WithIndex returns a per-index state with r stored under index. A flat or
// empty state is reset to an empty mapping before the insertion.
func (s ResultsState) WithIndex(index string, r *SearchResults) ResultsState {
	byIndex := make(map[string]*SearchResults, len(s.byIndex)+1)
	maps.Copy(byIndex, s.byIndex)
	byIndex[index] = r
	return ResultsState{byIndex: byIndex}
}
