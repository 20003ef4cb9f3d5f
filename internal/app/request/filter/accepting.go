package filter

import (
	"context"

	"github.com/utabox/utabox/internal/domain/guest"
	"github.com/utabox/utabox/internal/domain/song"
)

// AcceptingFilter rejects submissions while the operator has paused
// request intake.
type AcceptingFilter struct {
	isAccepting func() bool
}

// NewAcceptingFilter creates a new accepting filter.
func NewAcceptingFilter(isAccepting func() bool) *AcceptingFilter {
	return &AcceptingFilter{isAccepting: isAccepting}
}

func (f *AcceptingFilter) Name() string {
	return "accepting_filter"
}

func (f *AcceptingFilter) Description() string {
	return "Checks if the session is currently accepting song requests"
}

func (f *AcceptingFilter) ReturnCodes() []string {
	return []string{"not_accepting"}
}

func (f *AcceptingFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *AcceptingFilter) Check(ctx context.Context, sub Submission, s song.Song, g *guest.Guest) Result {
	if !f.isAccepting() {
		return Reject("not_accepting")
	}
	return Accept()
}
