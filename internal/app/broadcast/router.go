package broadcast

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/utabox/utabox/internal/app/state"
	"github.com/utabox/utabox/internal/domain/song"
)

// Wire event names pushed to observer channels.
const (
	EventPlaybackState = "playbackStateChanged"
	EventCurrentSong   = "currentSongChanged"
	EventQueue         = "queueChanged"
	EventMixer         = "mixerChanged"
	EventEffects       = "effectsChanged"
	EventPreferences   = "preferencesChanged"
	EventAudioDevices  = "audioDevicesChanged"
	EventRequests      = "requestsChanged"
	EventPosition      = "positionUpdate"
)

// QueuePayload is the queueChanged payload, augmented with the current
// song so observers can render the full picture from one push.
type QueuePayload struct {
	Queue       []song.QueueItem `json:"queue"`
	CurrentSong *song.Song       `json:"currentSong"`
}

// route maps one state event to a wire event, its delivery scopes and a
// payload transform.
type route struct {
	event     string
	scopes    []Scope
	transform func(r *Router, ev state.Event) any
}

// routes is the static routing table. Playback, current song and queue
// go to everyone; mixer, effects, preferences and device assignments are
// operator concerns.
var routes = map[state.EventType]route{
	state.EventPlaybackChanged: {
		event:     EventPlaybackState,
		scopes:    []Scope{ScopeAll},
		transform: func(_ *Router, ev state.Event) any { return ev.Playback },
	},
	state.EventCurrentSongChanged: {
		event:  EventCurrentSong,
		scopes: []Scope{ScopeAll},
		// Flattened: song fields at the payload top level, null when cleared.
		transform: func(_ *Router, ev state.Event) any { return ev.CurrentSong },
	},
	state.EventQueueChanged: {
		event:  EventQueue,
		scopes: []Scope{ScopeAll},
		transform: func(r *Router, ev state.Event) any {
			return QueuePayload{Queue: ev.Queue, CurrentSong: r.store.GetCurrentSong()}
		},
	},
	state.EventMixerChanged: {
		event:     EventMixer,
		scopes:    []Scope{ScopeAdmin},
		transform: func(_ *Router, ev state.Event) any { return ev.Mixer },
	},
	state.EventEffectsChanged: {
		event:     EventEffects,
		scopes:    []Scope{ScopeAdmin},
		transform: func(_ *Router, ev state.Event) any { return ev.Effects },
	},
	state.EventPreferencesChanged: {
		event:     EventPreferences,
		scopes:    []Scope{ScopeAdmin},
		transform: func(_ *Router, ev state.Event) any { return ev.Preferences },
	},
	state.EventAudioDevicesChanged: {
		event:     EventAudioDevices,
		scopes:    []Scope{ScopeAdmin},
		transform: func(_ *Router, ev state.Event) any { return ev.AudioDevices },
	},
}

// Router fans events out to registered channels. It holds no per-channel
// state beyond membership; delivery is fire-and-forget and a failing
// channel never blocks the others.
type Router struct {
	mu       sync.RWMutex
	channels map[string]Channel
	store    *state.Store
}

// NewRouter creates a new broadcast router.
func NewRouter(store *state.Store) *Router {
	return &Router{
		channels: make(map[string]Channel),
		store:    store,
	}
}

// Register adds an observer channel.
func (r *Router) Register(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID()] = ch
	zlog.Debug().Str("channel_id", ch.ID()).Str("role", string(ch.Role())).Msg("broadcast: channel registered")
}

// Unregister removes an observer channel.
func (r *Router) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, id)
	zlog.Debug().Str("channel_id", id).Msg("broadcast: channel unregistered")
}

// ChannelCount returns the number of registered channels.
func (r *Router) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// HasLiveChannels reports whether any registered channel is alive.
func (r *Router) HasLiveChannels() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.channels {
		if ch.IsAlive() {
			return true
		}
	}
	return false
}

// Route dispatches one state event through the routing table.
func (r *Router) Route(ev state.Event) {
	rt, ok := routes[ev.Type]
	if !ok {
		return
	}
	r.Push(rt.event, rt.transform(r, ev), rt.scopes...)
}

// pushTimeout bounds how long one channel may hold up a broadcast.
const pushTimeout = 500 * time.Millisecond

// Push delivers one event to every live channel matching any of the
// given scopes. Each channel send runs in its own goroutine with a
// timeout, so a stalled channel never delays the others. Errors are
// logged and swallowed per channel; a missed push is superseded by the
// next one.
func (r *Router) Push(event string, payload any, scopes ...Scope) {
	r.mu.RLock()
	chans := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		chans = append(chans, ch)
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, ch := range chans {
		if !matchesAny(scopes, ch.Role()) {
			continue
		}
		if !ch.IsAlive() {
			continue
		}
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- ch.Push(event, payload)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Err(err).Str("channel_id", ch.ID()).Str("event", event).
						Msg("broadcast: push failed, skipping channel")
				}
			case <-ctx.Done():
				zlog.Debug().Str("channel_id", ch.ID()).Str("event", event).
					Msg("broadcast: push timed out, skipping channel")
			}
		}(ch)
	}
	wg.Wait()
}

func matchesAny(scopes []Scope, role Role) bool {
	for _, s := range scopes {
		if s.Matches(role) {
			return true
		}
	}
	return false
}
