package state

import "github.com/utabox/utabox/internal/domain/song"

// EventType represents a state change event type.
type EventType int

const (
	EventPlaybackChanged     EventType = iota // Playback sub-state changed
	EventMixerChanged                         // Mixer bus changed
	EventEffectsChanged                       // Effect selection changed
	EventPreferencesChanged                   // Preferences changed
	EventAudioDevicesChanged                  // Device assignment changed
	EventCurrentSongChanged                   // Current song replaced or cleared
	EventQueueChanged                         // Queue contents or order changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventPlaybackChanged:
		return "playback_changed"
	case EventMixerChanged:
		return "mixer_changed"
	case EventEffectsChanged:
		return "effects_changed"
	case EventPreferencesChanged:
		return "preferences_changed"
	case EventAudioDevicesChanged:
		return "audio_devices_changed"
	case EventCurrentSongChanged:
		return "current_song_changed"
	case EventQueueChanged:
		return "queue_changed"
	default:
		return "unknown"
	}
}

// Event represents one state change. Exactly one payload field is set,
// matching the Type; payloads are copies, never aliases into the store.
type Event struct {
	Type EventType

	Playback     *PlaybackState
	Mixer        map[Bus]BusState
	Effects      *EffectsState
	Preferences  *Preferences
	AudioDevices map[string]string
	CurrentSong  *song.Song // nil when the current song was cleared
	Queue        []song.QueueItem

	// Diff carries the raw update map for merge-style mutations,
	// so observers can tell what changed without diffing snapshots.
	Diff map[string]any
}
