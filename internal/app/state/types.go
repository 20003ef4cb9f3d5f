// Package state provides the canonical session state store.
package state

import (
	"time"

	"github.com/utabox/utabox/internal/domain/song"
)

// Updatable field names accepted by Store.Update.
const (
	FieldPlayback     = "playback"
	FieldMixer        = "mixer"
	FieldEffects      = "effects"
	FieldPreferences  = "preferences"
	FieldAudioDevices = "audioDevices"
)

// Bus identifies a mixer output bus.
type Bus string

const (
	BusPA  Bus = "PA"  // Front-of-house speakers
	BusIEM Bus = "IEM" // Performer in-ear monitors
	BusMic Bus = "mic" // Microphone channel
)

// Buses lists every known mixer bus.
var Buses = []Bus{BusPA, BusIEM, BusMic}

// PlaybackState holds the last reported playback position.
// Position is extrapolated from LastUpdate while playing, so the store
// never depends on the playback engine pushing ticks.
type PlaybackState struct {
	IsPlaying  bool      `json:"isPlaying" mapstructure:"isPlaying"`
	Position   float64   `json:"position" mapstructure:"position"` // Seconds
	Duration   float64   `json:"duration" mapstructure:"duration"` // Seconds
	SongPath   string    `json:"songPath" mapstructure:"songPath"`
	LastUpdate time.Time `json:"lastUpdate" mapstructure:"-"`
}

// BusState holds one mixer bus.
type BusState struct {
	GainDB float64 `json:"gainDb" mapstructure:"gainDb"`
	Muted  bool    `json:"muted" mapstructure:"muted"`
}

// EffectsState holds the visual effect selection.
type EffectsState struct {
	CurrentEffectID   string   `json:"currentEffectId" mapstructure:"currentEffectId"`
	DisabledEffectIDs []string `json:"disabledEffectIds" mapstructure:"disabledEffectIds"`
}

// AutoTunePrefs holds auto-tune preferences.
type AutoTunePrefs struct {
	Enabled  bool    `json:"enabled" mapstructure:"enabled"`
	Strength float64 `json:"strength" mapstructure:"strength"`
	Speed    float64 `json:"speed" mapstructure:"speed"`
}

// MicrophonePrefs holds microphone routing preferences.
type MicrophonePrefs struct {
	Enabled    bool    `json:"enabled" mapstructure:"enabled"`
	Gain       float64 `json:"gain" mapstructure:"gain"`
	ToSpeakers bool    `json:"toSpeakers" mapstructure:"toSpeakers"`
}

// VisualPrefs holds visual effect preferences.
type VisualPrefs struct {
	Enabled   bool    `json:"enabled" mapstructure:"enabled"`
	Intensity float64 `json:"intensity" mapstructure:"intensity"`
}

// Preferences holds performer-facing preferences.
type Preferences struct {
	AutoTune      AutoTunePrefs   `json:"autoTune" mapstructure:"autoTune"`
	Microphone    MicrophonePrefs `json:"microphone" mapstructure:"microphone"`
	VisualEffects VisualPrefs     `json:"visualEffects" mapstructure:"visualEffects"`
}

// SessionState is the canonical session state. The store is its sole
// writer; readers only ever see deep copies.
type SessionState struct {
	Playback     PlaybackState     `json:"playback"`
	Mixer        map[Bus]BusState  `json:"mixer"`
	Effects      EffectsState      `json:"effects"`
	Preferences  Preferences       `json:"preferences"`
	AudioDevices map[string]string `json:"audioDevices"` // role -> device id
	CurrentSong  *song.Song        `json:"currentSong"`
	Queue        []song.QueueItem  `json:"queue"`
}

func defaultSessionState() SessionState {
	mixer := make(map[Bus]BusState, len(Buses))
	for _, b := range Buses {
		mixer[b] = BusState{}
	}
	return SessionState{
		Mixer:        mixer,
		AudioDevices: make(map[string]string),
		Queue:        make([]song.QueueItem, 0),
		Preferences: Preferences{
			AutoTune:      AutoTunePrefs{Strength: 0.5, Speed: 0.5},
			Microphone:    MicrophonePrefs{Enabled: true, Gain: 1.0, ToSpeakers: true},
			VisualEffects: VisualPrefs{Enabled: true, Intensity: 0.5},
		},
	}
}

// Clone returns a deep copy of the session state.
func (s SessionState) Clone() SessionState {
	out := s
	out.Mixer = cloneMixer(s.Mixer)
	out.AudioDevices = cloneDevices(s.AudioDevices)
	out.Effects.DisabledEffectIDs = cloneStrings(s.Effects.DisabledEffectIDs)
	out.Queue = cloneQueue(s.Queue)
	if s.CurrentSong != nil {
		cp := *s.CurrentSong
		out.CurrentSong = &cp
	}
	return out
}

func cloneMixer(m map[Bus]BusState) map[Bus]BusState {
	out := make(map[Bus]BusState, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneDevices(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneQueue(in []song.QueueItem) []song.QueueItem {
	out := make([]song.QueueItem, len(in))
	copy(out, in)
	return out
}
