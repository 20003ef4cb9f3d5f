// Package queue provides operations over the session song queue.
package queue

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/utabox/utabox/internal/app/state"
	"github.com/utabox/utabox/internal/domain/song"
)

// Errors
var (
	ErrPathRequired = errors.New("queue item requires a path")
	ErrLoadFailed   = errors.New("failed to load media")
)

// Engine is the playback engine collaborator. Loading is the only
// operation the control plane consumes; mixing and decoding stay outside.
type Engine interface {
	// LoadMedia begins loading the media at path. The queue item id is
	// passed through so the engine can correlate "now playing" back to
	// its queue origin. An empty id means an out-of-queue load.
	LoadMedia(ctx context.Context, path, queueItemID string) (*song.Song, error)
}

// Manager performs queue operations through the state store.
type Manager struct {
	store  *state.Store
	engine Engine
}

// NewManager creates a new queue manager.
func NewManager(store *state.Store, engine Engine) *Manager {
	return &Manager{store: store, engine: engine}
}

// AddResult is returned by Add. WasEmpty reflects the queue length
// immediately before the item was appended; the caller uses it to decide
// whether to auto-start playback.
type AddResult struct {
	Item     song.QueueItem
	Queue    []song.QueueItem
	WasEmpty bool
}

// Add validates and appends an item. The item's identity is assigned by
// the store; any caller-set id is ignored.
func (m *Manager) Add(item song.QueueItem) (AddResult, error) {
	if item.Path == "" {
		return AddResult{}, ErrPathRequired
	}
	if item.AddedVia == "" {
		item.AddedVia = song.AddedViaQueueAdd
	}

	// Must be read before mutating: after a successful add the queue is
	// never empty, so the signal would be lost.
	wasEmpty := m.store.QueueLen() == 0

	added := m.store.AddToQueue(item)
	zlog.Debug().Str("item_id", added.ID).Str("path", added.Path).Bool("was_empty", wasEmpty).
		Msg("queue: item added")

	return AddResult{
		Item:     added,
		Queue:    m.store.GetQueue(),
		WasEmpty: wasEmpty,
	}, nil
}

// Remove removes the item with the given id.
func (m *Manager) Remove(id string) (song.QueueItem, error) {
	removed, ok := m.store.RemoveFromQueue(id)
	if !ok {
		return song.QueueItem{}, state.ErrItemNotFound
	}
	return removed, nil
}

// Clear removes all queued items.
func (m *Manager) Clear() {
	m.store.ClearQueue()
}

// Reorder moves the item with the given id to newIndex. The item is
// located by identity rather than position so a concurrent removal
// cannot move the wrong item; newIndex is clamped into the valid range.
func (m *Manager) Reorder(id string, newIndex int) error {
	return m.store.ReorderQueue(id, newIndex)
}

// List returns a copy of the queue.
func (m *Manager) List() []song.QueueItem {
	return m.store.GetQueue()
}

// LoadByID looks up a queued item and asks the engine to load it. The
// item is not removed; consuming it from the queue is a separate explicit
// step. On success the loaded song becomes the current song and the
// playback sub-state is reset to the head of the new media.
func (m *Manager) LoadByID(ctx context.Context, id string) (song.QueueItem, error) {
	item, ok := m.store.FindQueueItem(id)
	if !ok {
		return song.QueueItem{}, state.ErrItemNotFound
	}

	loaded, err := m.engine.LoadMedia(ctx, item.Path, item.ID)
	if err != nil {
		zlog.Warn().Err(err).Str("item_id", id).Str("path", item.Path).Msg("queue: engine load failed")
		return item, errors.Wrapf(ErrLoadFailed, "%s: %v", item.Path, err)
	}

	cur := currentSongFromLoad(item, loaded)
	m.store.SetCurrentSong(&cur)
	if err := m.store.Update(state.FieldPlayback, map[string]any{
		"isPlaying": false,
		"position":  0.0,
		"duration":  cur.Duration,
		"songPath":  cur.Path,
	}); err != nil {
		// The playback field names are fixed at compile time, so this
		// cannot reject; log rather than fail the load.
		zlog.Error().Err(err).Msg("queue: failed to reset playback state after load")
	}
	return item, nil
}

// currentSongFromLoad merges engine-reported metadata over the queue
// item snapshot. The engine's duration wins when it reports one.
func currentSongFromLoad(item song.QueueItem, loaded *song.Song) song.Song {
	cur := song.Song{
		ID:       item.SongID,
		Path:     item.Path,
		Title:    item.Title,
		Artist:   item.Artist,
		Duration: item.Duration,
	}
	if loaded != nil {
		if loaded.Duration > 0 {
			cur.Duration = loaded.Duration
		}
		if loaded.Title != "" && cur.Title == "" {
			cur.Title = loaded.Title
		}
		if loaded.Artist != "" && cur.Artist == "" {
			cur.Artist = loaded.Artist
		}
		cur.HasVocal = loaded.HasVocal
	}
	return cur
}
