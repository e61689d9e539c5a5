package core

import (
	"encoding/binary"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Document is a searchable record stored in an index.
type Document struct {
	ID      string
	Fields  map[string]string   // Searchable text attributes
	Facets  map[string][]string // Facet values, refinable and countable
	Numbers map[string]float64  // Numeric attributes, usable in numeric refinements and facet statistics
}

// IndexInfo describes a stored index.
type IndexInfo struct {
	Name      string
	Documents int
	UpdatedAt time.Time
}

// IDFromContent generates a deterministic document ID from its attributes
// using BLAKE2b hashing. Attribute order does not affect the result.
func IDFromContent(doc *Document) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	for _, k := range slices.Sorted(maps.Keys(doc.Fields)) {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(doc.Fields[k]))
		h.Write([]byte{0})
	}
	for _, k := range slices.Sorted(maps.Keys(doc.Facets)) {
		h.Write([]byte(k))
		h.Write([]byte{0})
		for _, v := range doc.Facets[k] {
			h.Write([]byte(v))
			h.Write([]byte{1})
		}
		h.Write([]byte{0})
	}
	for _, k := range slices.Sorted(maps.Keys(doc.Numbers)) {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatFloat(doc.Numbers[k], 'g', -1, 64)))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return strconv.FormatUint(binary.LittleEndian.Uint64(sum), 16)
}

var (
	DocumentMUS  = documentMUS{}
	IndexInfoMUS = indexInfoMUS{}

	fieldsMUS  = ord.NewMapSer[string, string](ord.String, ord.String)
	facetsMUS  = ord.NewMapSer[string, []string](ord.String, stringSliceMUS)
	numbersMUS = ord.NewMapSer[string, float64](ord.String, raw.Float64)
)

type documentMUS struct{}

func (documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += fieldsMUS.Marshal(v.Fields, bs[n:])
	n += facetsMUS.Marshal(v.Facets, bs[n:])
	return n + numbersMUS.Marshal(v.Numbers, bs[n:])
}

func (documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Fields, n1, err = fieldsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Facets, n1, err = facetsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Numbers, n1, err = numbersMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (documentMUS) Size(v Document) (size int) {
	size = ord.String.Size(v.ID)
	size += fieldsMUS.Size(v.Fields)
	size += facetsMUS.Size(v.Facets)
	return size + numbersMUS.Size(v.Numbers)
}

func (documentMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = DocumentMUS.Unmarshal(bs)
	return
}

type indexInfoMUS struct{}

func (indexInfoMUS) Marshal(v IndexInfo, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Int.Marshal(v.Documents, bs[n:])
	return n + varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
}

func (indexInfoMUS) Unmarshal(bs []byte) (v IndexInfo, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Documents, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt = time.UnixMicro(micros).UTC()
	return
}

func (indexInfoMUS) Size(v IndexInfo) (size int) {
	return ord.String.Size(v.Name) + varint.Int.Size(v.Documents) + varint.Int64.Size(v.UpdatedAt.UnixMicro())
}

func (indexInfoMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = IndexInfoMUS.Unmarshal(bs)
	return
}
