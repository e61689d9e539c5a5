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


package core

import (
	"slices"
)

// Default highlight tags. Backends wrap matched text with these unless the
// parameters carry their own.
const (
	DefaultHighlightPreTag  = "<ais-highlight-0000000000>"
	DefaultHighlightPostTag = "</ais-highlight-0000000000>"
)

// NumericOperator is a comparison used by a numeric refinement.
type NumericOperator string

const (
	OpLess           NumericOperator = "<"
	OpLessOrEqual    NumericOperator = "<="
	OpEqual          NumericOperator = "="
	OpNotEqual       NumericOperator = "!="
	OpGreaterOrEqual NumericOperator = ">="
	OpGreater        NumericOperator = ">"
)

// Compare reports whether value satisfies the operator against bound.
func (op NumericOperator) Compare(value, bound float64) bool {
	switch op {
	case OpLess:
		return value < bound
	case OpLessOrEqual:
		return value <= bound
	case OpEqual:
		return value == bound
	case OpNotEqual:
		return value != bound
	case OpGreaterOrEqual:
		return value >= bound
	case OpGreater:
		return value > bound
	}
	return false
}

// FacetRefinement selects one value of a facet attribute.
type FacetRefinement struct {
	Attribute string
	Value     string
}

// NumericRefinement constrains a numeric attribute.
type NumericRefinement struct {
	Attribute string
	Operator  NumericOperator
	Value     float64
}

// SearchParameters is a composed query specification.
//
// Values are immutable by convention: every setter returns a new value and
// never writes through to slices shared with the receiver. Refinements keep
// insertion order, so two folds over the same widgets in the same order
// produce identical parameters.
type SearchParameters struct {
	Index       string
	Query       string
	Page        int
	HitsPerPage int

	Facets            []string
	DisjunctiveFacets []string

	FacetRefinements            []FacetRefinement
	DisjunctiveFacetRefinements []FacetRefinement
	NumericRefinements          []NumericRefinement

	HighlightPreTag  string
	HighlightPostTag string
}

// NewSearchParameters returns baseline parameters targeting index with the
// default highlight tags.
func NewSearchParameters(index string) SearchParameters {
	return SearchParameters{
		Index:            index,
		HighlightPreTag:  DefaultHighlightPreTag,
		HighlightPostTag: DefaultHighlightPostTag,
	}
}

// Clone returns a deep copy of the parameters.
func (p SearchParameters) Clone() SearchParameters {
	p.Facets = slices.Clone(p.Facets)
	p.DisjunctiveFacets = slices.Clone(p.DisjunctiveFacets)
	p.FacetRefinements = slices.Clone(p.FacetRefinements)
	p.DisjunctiveFacetRefinements = slices.Clone(p.DisjunctiveFacetRefinements)
	p.NumericRefinements = slices.Clone(p.NumericRefinements)
	return p
}

// SetIndex returns parameters targeting index.
func (p SearchParameters) SetIndex(index string) SearchParameters {
	next := p.Clone()
	next.Index = index
	return next
}

// SetQuery returns parameters with the full-text query set. The page is reset.
func (p SearchParameters) SetQuery(query string) SearchParameters {
	next := p.Clone()
	next.Query = query
	next.Page = 0
	return next
}

// SetPage returns parameters requesting the given 0-based page.
func (p SearchParameters) SetPage(page int) SearchParameters {
	if page < 0 {
		page = 0
	}
	next := p.Clone()
	next.Page = page
	return next
}

// SetHitsPerPage returns parameters with the page size set.
func (p SearchParameters) SetHitsPerPage(n int) SearchParameters {
	next := p.Clone()
	next.HitsPerPage = n
	next.Page = 0
	return next
}

// SetHighlightTags returns parameters using the given highlight tags.
func (p SearchParameters) SetHighlightTags(pre, post string) SearchParameters {
	next := p.Clone()
	next.HighlightPreTag = pre
	next.HighlightPostTag = post
	return next
}

// AddFacet declares a conjunctive facet. Declaring it twice is a no-op.
func (p SearchParameters) AddFacet(attribute string) SearchParameters {
	if slices.Contains(p.Facets, attribute) {
		return p
	}
	next := p.Clone()
	next.Facets = append(next.Facets, attribute)
	return next
}

// AddDisjunctiveFacet declares a disjunctive facet. Declaring it twice is a no-op.
func (p SearchParameters) AddDisjunctiveFacet(attribute string) SearchParameters {
	if slices.Contains(p.DisjunctiveFacets, attribute) {
		return p
	}
	next := p.Clone()
	next.DisjunctiveFacets = append(next.DisjunctiveFacets, attribute)
	return next
}

// AddFacetRefinement requires documents to carry value for attribute.
func (p SearchParameters) AddFacetRefinement(attribute, value string) SearchParameters {
	ref := FacetRefinement{Attribute: attribute, Value: value}
	if slices.Contains(p.FacetRefinements, ref) {
		return p
	}
	next := p.AddFacet(attribute).Clone()
	next.FacetRefinements = append(next.FacetRefinements, ref)
	next.Page = 0
	return next
}

// AddDisjunctiveFacetRefinement accepts documents carrying value or any other
// disjunctive value refined for attribute.
func (p SearchParameters) AddDisjunctiveFacetRefinement(attribute, value string) SearchParameters {
	ref := FacetRefinement{Attribute: attribute, Value: value}
	if slices.Contains(p.DisjunctiveFacetRefinements, ref) {
		return p
	}
	next := p.AddDisjunctiveFacet(attribute).Clone()
	next.DisjunctiveFacetRefinements = append(next.DisjunctiveFacetRefinements, ref)
	next.Page = 0
	return next
}

// AddNumericRefinement appends a numeric constraint. Refinements accumulate
// in call order; an identical constraint is only kept once.
func (p SearchParameters) AddNumericRefinement(attribute string, op NumericOperator, value float64) SearchParameters {
	ref := NumericRefinement{Attribute: attribute, Operator: op, Value: value}
	if slices.Contains(p.NumericRefinements, ref) {
		return p
	}
	next := p.Clone()
	next.NumericRefinements = append(next.NumericRefinements, ref)
	next.Page = 0
	return next
}

// ClearRefinements drops every facet and numeric refinement on attribute.
func (p SearchParameters) ClearRefinements(attribute string) SearchParameters {
	next := p.Clone()
	byAttr := func(r FacetRefinement) bool { return r.Attribute == attribute }
	next.FacetRefinements = slices.DeleteFunc(next.FacetRefinements, byAttr)
	next.DisjunctiveFacetRefinements = slices.DeleteFunc(next.DisjunctiveFacetRefinements, byAttr)
	next.NumericRefinements = slices.DeleteFunc(next.NumericRefinements, func(r NumericRefinement) bool {
		return r.Attribute == attribute
	})
	return next
}

// IsDisjunctiveFacet reports whether attribute is declared disjunctive.
func (p SearchParameters) IsDisjunctiveFacet(attribute string) bool {
	return slices.Contains(p.DisjunctiveFacets, attribute)
}

// RefinedValues returns the conjunctive and disjunctive values refined for attribute.
func (p SearchParameters) RefinedValues(attribute string) (conjunctive, disjunctive []string) {
	for _, r := range p.FacetRefinements {
		if r.Attribute == attribute {
			conjunctive = append(conjunctive, r.Value)
		}
	}
	for _, r := range p.DisjunctiveFacetRefinements {
		if r.Attribute == attribute {
			disjunctive = append(disjunctive, r.Value)
		}
	}
	return conjunctive, disjunctive
}

// NumericRefinementsFor returns the numeric refinements on attribute in insertion order.
func (p SearchParameters) NumericRefinementsFor(attribute string) []NumericRefinement {
	var out []NumericRefinement
	for _, r := range p.NumericRefinements {
		if r.Attribute == attribute {
			out = append(out, r)
		}
	}
	return out
}

// Equal reports whether both parameter sets encode identically.
func (p SearchParameters) Equal(other SearchParameters) bool {
	return slices.Equal(p.Encode(), other.Encode())
}
