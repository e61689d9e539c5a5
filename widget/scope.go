package widget

import "github.com/poiesic/facetflow/core"

// Scope mounts widgets inside an index scope targeting index.
// The widgets are modified in place and returned for convenience.
func Scope(index string, widgets ...*core.Widget) []*core.Widget {
	for _, w := range widgets {
		w.MultiIndex = &core.MultiIndexContext{TargetedIndex: index}
	}
	return widgets
}
