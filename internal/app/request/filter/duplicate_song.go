package filter

import (
	"context"
	"strings"

	"github.com/utabox/utabox/internal/domain/guest"
	"github.com/utabox/utabox/internal/domain/song"
)

// DuplicateSongFilter rejects a submission when the song is already in
// the queue, is the current song, or has an undecided request.
type DuplicateSongFilter struct {
	queueContains func(songID string) bool
	hasOpenReq    func(songID string) bool
	currentSongID func() string
}

// NewDuplicateSongFilter creates a new duplicate song filter. The three
// lookups are injected so the filter carries no component references.
func NewDuplicateSongFilter(
	queueContains func(songID string) bool,
	hasOpenReq func(songID string) bool,
	currentSongID func() string,
) *DuplicateSongFilter {
	return &DuplicateSongFilter{
		queueContains: queueContains,
		hasOpenReq:    hasOpenReq,
		currentSongID: currentSongID,
	}
}

func (f *DuplicateSongFilter) Name() string {
	return "duplicate_song_filter"
}

func (f *DuplicateSongFilter) Description() string {
	return "Rejects songs already queued, playing, or awaiting a decision"
}

func (f *DuplicateSongFilter) ReturnCodes() []string {
	return []string{"duplicate_song"}
}

func (f *DuplicateSongFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *DuplicateSongFilter) Check(ctx context.Context, sub Submission, s song.Song, g *guest.Guest) Result {
	if f.queueContains(s.ID) {
		return Reject("duplicate_song")
	}
	if f.hasOpenReq(s.ID) {
		return Reject("duplicate_song")
	}
	if cur := f.currentSongID(); cur != "" && strings.EqualFold(cur, s.ID) {
		return Reject("duplicate_song")
	}
	return Accept()
}
