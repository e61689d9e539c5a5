package ingestion

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/facetflow/core"
)

// record is the JSON shape of one input line.
type record struct {
	ID      string              `json:"id"`
	Fields  map[string]string   `json:"fields"`
	Facets  map[string][]string `json:"facets"`
	Numbers map[string]float64  `json:"numbers"`
}

// ReadDocuments decodes one JSON document per line of r. Blank lines are skipped.
//
//	{"id":"1","fields":{"title":"Red lamp"},"facets":{"color":["red"]},"numbers":{"price":10}}
func ReadDocuments(r io.Reader) ([]*core.Document, error) {
	var docs []*core.Document

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidInput, line, err)
		}
		docs = append(docs, &core.Document{
			ID:      rec.ID,
			Fields:  rec.Fields,
			Facets:  rec.Facets,
			Numbers: rec.Numbers,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	return docs, nil
}
