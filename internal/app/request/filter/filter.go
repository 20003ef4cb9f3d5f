// Package filter provides the admission filter chain for song requests.
package filter

import (
	"context"

	"github.com/utabox/utabox/internal/domain/guest"
	"github.com/utabox/utabox/internal/domain/song"
)

// Submission represents a song request to be validated.
type Submission struct {
	ClientID string
	SongID   string
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g. "guest_pending", "kicked", "duplicate_song"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for request admission filters. Admin queue
// adds bypass the chain entirely; only guest submissions pass through.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates the filter configuration.
	ValidateConfig(settings map[string]any) error
	// Check performs the filter check.
	Check(ctx context.Context, sub Submission, s song.Song, g *guest.Guest) Result
}

// registry holds registered filter factories.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}
