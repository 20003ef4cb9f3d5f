package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/utabox/utabox/internal/domain/song"
)

// Errors
var (
	ErrUnknownField = errors.New("unknown state field")
	ErrUnknownBus   = errors.New("unknown mixer bus")
	ErrItemNotFound = errors.New("song not found in queue")
)

// Store is the canonical session state store. Every mutation applies its
// change and emits its event under one mutex, so no interleaving between
// mutations is observable and no event fires for a change that did not
// happen. Rejected updates leave the state untouched and emit nothing.
type Store struct {
	mu         sync.Mutex
	state      SessionState
	nextItemID uint64
	eventCh    chan Event
	now        func() time.Time
}

// New creates a new state store.
func New() *Store {
	return &Store{
		state:   defaultSessionState(),
		eventCh: make(chan Event, 64),
		now:     time.Now,
	}
}

// Events returns the change event channel. Events appear in mutation order.
func (s *Store) Events() <-chan Event {
	return s.eventCh
}

// GetSnapshot returns a deep copy of the session state.
func (s *Store) GetSnapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// GetQueue returns a copy of the queue.
func (s *Store) GetQueue() []song.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneQueue(s.state.Queue)
}

// GetCurrentSong returns a copy of the current song, or nil.
func (s *Store) GetCurrentSong() *song.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentSong == nil {
		return nil
	}
	cp := *s.state.CurrentSong
	return &cp
}

// GetCurrentPosition returns the interpolated playback position in seconds:
// the last reported position, extrapolated by wall clock while playing.
func (s *Store) GetCurrentPosition() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	pb := s.state.Playback
	if !pb.IsPlaying || pb.LastUpdate.IsZero() {
		return pb.Position
	}
	return pb.Position + s.now().Sub(pb.LastUpdate).Seconds()
}

// Update merges a named sub-object into the state and emits the matching
// change event. Unknown fields, unknown mixer buses and malformed update
// shapes are rejected with no mutation and no event.
func (s *Store) Update(field string, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch field {
	case FieldPlayback:
		next := s.state.Playback
		if err := decodeStrict(updates, &next); err != nil {
			return err
		}
		next.LastUpdate = s.now()
		s.state.Playback = next
		pb := next
		s.emitLocked(Event{Type: EventPlaybackChanged, Playback: &pb, Diff: updates})

	case FieldMixer:
		next := cloneMixer(s.state.Mixer)
		for name, raw := range updates {
			bus := Bus(name)
			cur, ok := next[bus]
			if !ok {
				return errors.Wrapf(ErrUnknownBus, "%q", name)
			}
			sub, ok := raw.(map[string]any)
			if !ok {
				return errors.Newf("mixer update for bus %q must be an object", name)
			}
			if err := decodeStrict(sub, &cur); err != nil {
				return err
			}
			next[bus] = cur
		}
		s.state.Mixer = next
		s.emitLocked(Event{Type: EventMixerChanged, Mixer: cloneMixer(next), Diff: updates})

	case FieldEffects:
		next := s.state.Effects
		next.DisabledEffectIDs = cloneStrings(next.DisabledEffectIDs)
		if err := decodeStrict(updates, &next); err != nil {
			return err
		}
		s.state.Effects = next
		fx := next
		fx.DisabledEffectIDs = cloneStrings(next.DisabledEffectIDs)
		s.emitLocked(Event{Type: EventEffectsChanged, Effects: &fx, Diff: updates})

	case FieldPreferences:
		next := s.state.Preferences
		if err := decodeStrict(updates, &next); err != nil {
			return err
		}
		s.state.Preferences = next
		prefs := next
		s.emitLocked(Event{Type: EventPreferencesChanged, Preferences: &prefs, Diff: updates})

	case FieldAudioDevices:
		next := cloneDevices(s.state.AudioDevices)
		for role, raw := range updates {
			id, ok := raw.(string)
			if !ok {
				return errors.Newf("audio device for role %q must be a string", role)
			}
			next[role] = id
		}
		s.state.AudioDevices = next
		s.emitLocked(Event{Type: EventAudioDevicesChanged, AudioDevices: cloneDevices(next), Diff: updates})

	default:
		return errors.Wrapf(ErrUnknownField, "%q", field)
	}

	return nil
}

// AddToQueue assigns identity to the item, appends it and emits a queue
// change. Item IDs are monotonic and never reused.
func (s *Store) AddToQueue(item song.QueueItem) song.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextItemID++
	item.ID = fmt.Sprintf("q-%d", s.nextItemID)
	item.AddedAt = s.now()
	s.state.Queue = append(s.state.Queue, item)
	s.emitQueueLocked()
	return item
}

// RemoveFromQueue removes the item with the given id.
// Returns the removed item, or false when the id is unknown.
func (s *Store) RemoveFromQueue(id string) (song.QueueItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.state.Queue {
		if it.ID == id {
			s.state.Queue = append(s.state.Queue[:i], s.state.Queue[i+1:]...)
			s.emitQueueLocked()
			return it, true
		}
	}
	return song.QueueItem{}, false
}

// ClearQueue removes every queued item.
func (s *Store) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.Queue) == 0 {
		return
	}
	s.state.Queue = make([]song.QueueItem, 0)
	s.emitQueueLocked()
}

// ReorderQueue moves the item with the given id to newIndex, clamped into
// the valid range. Unknown ids are rejected without mutation.
func (s *Store) ReorderQueue(id string, newIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := -1
	for i, it := range s.state.Queue {
		if it.ID == id {
			from = i
			break
		}
	}
	if from == -1 {
		return ErrItemNotFound
	}

	if newIndex < 0 {
		newIndex = 0
	}
	if max := len(s.state.Queue) - 1; newIndex > max {
		newIndex = max
	}
	if newIndex == from {
		return nil
	}

	item := s.state.Queue[from]
	rest := append(s.state.Queue[:from], s.state.Queue[from+1:]...)
	queue := make([]song.QueueItem, 0, len(rest)+1)
	queue = append(queue, rest[:newIndex]...)
	queue = append(queue, item)
	queue = append(queue, rest[newIndex:]...)
	s.state.Queue = queue
	s.emitQueueLocked()
	return nil
}

// FindQueueItem returns a copy of the queued item with the given id.
func (s *Store) FindQueueItem(id string) (song.QueueItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.state.Queue {
		if it.ID == id {
			return it, true
		}
	}
	return song.QueueItem{}, false
}

// QueueContains reports whether any queued item references the given
// library song id or media path.
func (s *Store) QueueContains(songID, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.state.Queue {
		if songID != "" && it.SongID == songID {
			return true
		}
		if path != "" && it.Path == path {
			return true
		}
	}
	return false
}

// QueueLen returns the queue length.
func (s *Store) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Queue)
}

// SetCurrentSong replaces the current song snapshot (nil clears it) and
// emits a current song change.
func (s *Store) SetCurrentSong(sng *song.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sng == nil {
		s.state.CurrentSong = nil
		s.emitLocked(Event{Type: EventCurrentSongChanged})
		return
	}
	cp := *sng
	s.state.CurrentSong = &cp
	out := cp
	s.emitLocked(Event{Type: EventCurrentSongChanged, CurrentSong: &out})
}

func (s *Store) emitQueueLocked() {
	s.emitLocked(Event{Type: EventQueueChanged, Queue: cloneQueue(s.state.Queue)})
}

// emitLocked sends an event without blocking. Must be called with the
// store mutex held so events stay in mutation order.
func (s *Store) emitLocked(e Event) {
	select {
	case s.eventCh <- e:
	default:
		// Channel full: the consumer has fallen far behind. Live state is
		// superseded by the next event, so dropping is safe.
		zlog.Warn().Str("event", e.Type.String()).Msg("state: event channel full, dropping event")
	}
}

// decodeStrict merges a map into the target struct, rejecting unknown keys
// and mismatched types so a malformed update never partially applies.
func decodeStrict(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := dec.Decode(in); err != nil {
		return errors.Wrap(err, "malformed update")
	}
	return nil
}
