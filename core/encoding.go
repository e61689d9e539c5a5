package core

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the domain types. Field order is part of the wire
// format; append new fields at the end.
var (
	SearchParametersMUS  = searchParametersMUS{}
	FacetRefinementMUS   = facetRefinementMUS{}
	NumericRefinementMUS = numericRefinementMUS{}

	stringSliceMUS        = ord.NewSliceSer[string](ord.String)
	facetRefinementsMUS   = ord.NewSliceSer[FacetRefinement](FacetRefinementMUS)
	numericRefinementsMUS = ord.NewSliceSer[NumericRefinement](NumericRefinementMUS)
)

// Encode returns the canonical binary form of the parameters. Identical
// parameters always encode to identical bytes.
func (p SearchParameters) Encode() []byte {
	buf := make([]byte, SearchParametersMUS.Size(p))
	SearchParametersMUS.Marshal(p, buf)
	return buf
}

// Fingerprint returns a stable hash of the encoded parameters, suitable as a
// cache key.
func (p SearchParameters) Fingerprint() string {
	h, _ := blake2b.New(32, nil)
	h.Write(p.Encode())
	return hex.EncodeToString(h.Sum(nil))
}

type facetRefinementMUS struct{}

func (facetRefinementMUS) Marshal(v FacetRefinement, bs []byte) (n int) {
	n = ord.String.Marshal(v.Attribute, bs)
	return n + ord.String.Marshal(v.Value, bs[n:])
}

func (facetRefinementMUS) Unmarshal(bs []byte) (v FacetRefinement, n int, err error) {
	v.Attribute, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Value, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (facetRefinementMUS) Size(v FacetRefinement) (size int) {
	return ord.String.Size(v.Attribute) + ord.String.Size(v.Value)
}

func (facetRefinementMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return
}

type numericRefinementMUS struct{}

func (numericRefinementMUS) Marshal(v NumericRefinement, bs []byte) (n int) {
	n = ord.String.Marshal(v.Attribute, bs)
	n += ord.String.Marshal(string(v.Operator), bs[n:])
	return n + raw.Float64.Marshal(v.Value, bs[n:])
}

func (numericRefinementMUS) Unmarshal(bs []byte) (v NumericRefinement, n int, err error) {
	v.Attribute, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1 int
		op string
	)
	op, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Operator = NumericOperator(op)
	v.Value, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	return
}

func (numericRefinementMUS) Size(v NumericRefinement) (size int) {
	return ord.String.Size(v.Attribute) + ord.String.Size(string(v.Operator)) + raw.Float64.Size(v.Value)
}

func (numericRefinementMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.Float64.Skip(bs[n:])
	n += n1
	return
}

type searchParametersMUS struct{}

func (searchParametersMUS) Marshal(v SearchParameters, bs []byte) (n int) {
	n = ord.String.Marshal(v.Index, bs)
	n += ord.String.Marshal(v.Query, bs[n:])
	n += varint.Int.Marshal(v.Page, bs[n:])
	n += varint.Int.Marshal(v.HitsPerPage, bs[n:])
	n += stringSliceMUS.Marshal(v.Facets, bs[n:])
	n += stringSliceMUS.Marshal(v.DisjunctiveFacets, bs[n:])
	n += facetRefinementsMUS.Marshal(v.FacetRefinements, bs[n:])
	n += facetRefinementsMUS.Marshal(v.DisjunctiveFacetRefinements, bs[n:])
	n += numericRefinementsMUS.Marshal(v.NumericRefinements, bs[n:])
	n += ord.String.Marshal(v.HighlightPreTag, bs[n:])
	return n + ord.String.Marshal(v.HighlightPostTag, bs[n:])
}

func (searchParametersMUS) Unmarshal(bs []byte) (v SearchParameters, n int, err error) {
	v.Index, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Query, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Page, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.HitsPerPage, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Facets, n1, err = stringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DisjunctiveFacets, n1, err = stringSliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FacetRefinements, n1, err = facetRefinementsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DisjunctiveFacetRefinements, n1, err = facetRefinementsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.NumericRefinements, n1, err = numericRefinementsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.HighlightPreTag, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.HighlightPostTag, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (searchParametersMUS) Size(v SearchParameters) (size int) {
	size = ord.String.Size(v.Index)
	size += ord.String.Size(v.Query)
	size += varint.Int.Size(v.Page)
	size += varint.Int.Size(v.HitsPerPage)
	size += stringSliceMUS.Size(v.Facets)
	size += stringSliceMUS.Size(v.DisjunctiveFacets)
	size += facetRefinementsMUS.Size(v.FacetRefinements)
	size += facetRefinementsMUS.Size(v.DisjunctiveFacetRefinements)
	size += numericRefinementsMUS.Size(v.NumericRefinements)
	size += ord.String.Size(v.HighlightPreTag)
	return size + ord.String.Size(v.HighlightPostTag)
}

func (searchParametersMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = SearchParametersMUS.Unmarshal(bs)
	return
}
