package search

import (
	"github.com/poiesic/facetflow/core"
)

// QueryMonitor provides hooks to observe query execution.
// Implement this interface to track cache behavior and per-query work.
type QueryMonitor interface {
	Start(params core.SearchParameters)
	CacheHit(params core.SearchParameters)
	AfterScan(scanned, matched int)
	Finish(results *core.SearchResults)
}

// noopMonitor is a no-op implementation of QueryMonitor
type noopMonitor struct{}

var _ QueryMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.SearchParameters)    {}
func (n *noopMonitor) CacheHit(_ core.SearchParameters) {}
func (n *noopMonitor) AfterScan(_, _ int)               {}
func (n *noopMonitor) Finish(_ *core.SearchResults)     {}
