package coordinator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/facetflow/core"
)

const (
	// DefaultStalledSearchDelay is how long a search may stay unsettled
	// before it is reported as stalled.
	DefaultStalledSearchDelay = 200 * time.Millisecond

	// DefaultPoolSize is the number of round trips that may run at once.
	DefaultPoolSize = 8

	// DefaultMaxFacetHits is the facet-value count callers use when they
	// have no preference.
	DefaultMaxFacetHits = 10

	minFacetHits = 1
	maxFacetHits = 100
)

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithStalledSearchDelay sets the stall detection delay.
// Default is DefaultStalledSearchDelay.
func WithStalledSearchDelay(d time.Duration) Option {
	return func(c *Coordinator) error {
		if d < 0 {
			return fmt.Errorf("stalled search delay must not be negative, got %s", d)
		}
		c.stallDelay = d
		return nil
	}
}

// WithInitialState sets the search state held before any update.
func WithInitialState(state core.SearchState) Option {
	return func(c *Coordinator) error {
		c.initialState = state
		return nil
	}
}

// WithResultsState seeds the store with results computed elsewhere,
// for example on a server before handing over to a client.
func WithResultsState(results core.ResultsState) Option {
	return func(c *Coordinator) error {
		c.initialResults = results
		return nil
	}
}

// WithBaseParameters sets the baseline parameters widgets fold over.
// The baseline index is always the coordinator's index.
func WithBaseParameters(params core.SearchParameters) Option {
	return func(c *Coordinator) error {
		c.baseline = params
		return nil
	}
}

// WithPoolSize sets how many round trips run on pooled workers. Round trips
// beyond that run on their own goroutines rather than waiting for a worker.
// Default is DefaultPoolSize.
func WithPoolSize(size int) Option {
	return func(c *Coordinator) error {
		if size < 1 {
			size = 1
		}
		c.poolSize = size
		return nil
	}
}

// WithDeferredErrorHandler sets the function receiving errors raised while a
// successful response was being applied. It runs on its own goroutine.
// Default logs the error.
func WithDeferredErrorHandler(fn func(error)) Option {
	return func(c *Coordinator) error {
		c.deferredErrors = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}
