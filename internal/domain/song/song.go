// Package song provides the Song and QueueItem domain entities.
package song

import "time"

// Song represents an entry in the karaoke library.
// Contains only information produced by the library scanner.
type Song struct {
	ID       string  `json:"id"`       // Library song key
	Path     string  `json:"path"`     // Media file path
	Title    string  `json:"title"`    // Song title
	Artist   string  `json:"artist"`   // Artist name
	Duration float64 `json:"duration"` // Duration in seconds (0 if unknown)
	Language string  `json:"language"` // Language tag (optional)
	HasVocal bool    `json:"hasVocal"` // True if a vocal/guide track is available
}

// AddedVia records which surface put an item into the queue.
type AddedVia string

const (
	AddedViaAdmin      AddedVia = "admin"
	AddedViaWebRequest AddedVia = "web-request"
	AddedViaQueueAdd   AddedVia = "queue-add"
)

// QueueItem represents a song in the playback queue.
// The ID is assigned by the state store at insertion and is never reused.
type QueueItem struct {
	ID        string    `json:"id"`
	SongID    string    `json:"songId,omitempty"` // Library key (empty for ad-hoc adds)
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Duration  float64   `json:"duration,omitempty"` // Seconds (0 if unknown)
	Requester string    `json:"requester"`
	AddedVia  AddedVia  `json:"addedVia"`
	AddedAt   time.Time `json:"addedAt"`
}

// FromSong builds a queue item snapshot from a library song.
// The item ID is left empty; the state store assigns it at insertion.
func FromSong(s Song, requester string, via AddedVia) QueueItem {
	return QueueItem{
		SongID:    s.ID,
		Path:      s.Path,
		Title:     s.Title,
		Artist:    s.Artist,
		Duration:  s.Duration,
		Requester: requester,
		AddedVia:  via,
	}
}
