package filter

import (
	"context"

	"github.com/utabox/utabox/internal/domain/guest"
	"github.com/utabox/utabox/internal/domain/song"
)

// GuestPendingFilter limits guests to one outstanding request at a time.
type GuestPendingFilter struct{}

func (f *GuestPendingFilter) Name() string {
	return "guest_pending_filter"
}

func (f *GuestPendingFilter) Description() string {
	return "Checks if the guest already has a request waiting to be queued"
}

func (f *GuestPendingFilter) ReturnCodes() []string {
	return []string{"guest_pending"}
}

func (f *GuestPendingFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *GuestPendingFilter) Check(ctx context.Context, sub Submission, s song.Song, g *guest.Guest) Result {
	if g == nil {
		return Accept()
	}

	// VIP guests bypass this check.
	if g.VIP {
		return Accept()
	}

	if g.PendingRequests > 0 {
		return Reject("guest_pending")
	}
	return Accept()
}

func init() {
	Register("guest_pending_filter", func() Filter {
		return &GuestPendingFilter{}
	})
}
