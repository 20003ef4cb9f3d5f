package filter

import (
	"context"

	"github.com/utabox/utabox/internal/domain/guest"
	"github.com/utabox/utabox/internal/domain/song"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence and returns immediately if any
// filter rejects the submission.
func (c *Chain) Execute(ctx context.Context, sub Submission, s song.Song, g *guest.Guest) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, sub, s, g)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
