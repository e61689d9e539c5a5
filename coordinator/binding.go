package coordinator

import "github.com/poiesic/facetflow/core"

// binding ties composed parameters to an index and remembers the last
// payload received for them.
type binding struct {
	index       string
	params      core.SearchParameters
	lastResults *core.SearchResults
	detached    bool
}

// detach stops the binding from receiving responses. Idempotent.
func (b *binding) detach() {
	b.detached = true
}
