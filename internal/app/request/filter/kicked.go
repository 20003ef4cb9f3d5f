package filter

import (
	"context"

	"github.com/utabox/utabox/internal/domain/guest"
	"github.com/utabox/utabox/internal/domain/song"
)

// KickedFilter rejects submissions from kicked guests.
type KickedFilter struct{}

func (f *KickedFilter) Name() string {
	return "kicked_guest_filter"
}

func (f *KickedFilter) Description() string {
	return "Checks if the guest has been kicked from the session"
}

func (f *KickedFilter) ReturnCodes() []string {
	return []string{"kicked"}
}

func (f *KickedFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *KickedFilter) Check(ctx context.Context, sub Submission, s song.Song, g *guest.Guest) Result {
	if g != nil && g.IsKicked {
		return Reject("kicked")
	}
	return Accept()
}

func init() {
	Register("kicked_guest_filter", func() Filter {
		return &KickedFilter{}
	})
}
