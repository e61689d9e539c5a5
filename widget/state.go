package widget

import (
	"math"
	"strconv"
	"strings"

	"github.com/poiesic/facetflow/core"
)

// targetOf returns the index a widget reports in its metadata.
func targetOf(w *core.Widget) string {
	index, _ := w.TargetedIndex()
	return index
}

// keepPage carries the page of prev over to next. Setters on
// core.SearchParameters reset the page; connectors leave paging to Pagination.
func keepPage(prev, next core.SearchParameters) core.SearchParameters {
	next.Page = prev.Page
	return next
}

func stringValue(state core.SearchState, id string) string {
	switch v := state[id].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func stringsValue(state core.SearchState, id string) []string {
	switch v := state[id].(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// number converts a state value to a float. Strings are parsed as integers,
// dropping any fraction.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return math.Trunc(f), true
	}
	return 0, false
}

func intValue(state core.SearchState, id string) (int, bool) {
	f, ok := number(state[id])
	if !ok {
		return 0, false
	}
	return int(f), true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
