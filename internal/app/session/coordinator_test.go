package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utabox/utabox/internal/app/broadcast"
	"github.com/utabox/utabox/internal/app/state"
	"github.com/utabox/utabox/internal/domain/song"
	"github.com/utabox/utabox/internal/infra/config"
)

// fakeEngine records load calls and returns the analyzed song.
type fakeEngine struct {
	mu    sync.Mutex
	loads []string
	err   error
}

func (e *fakeEngine) LoadMedia(ctx context.Context, path, queueItemID string) (*song.Song, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.loads = append(e.loads, path)
	return &song.Song{ID: "analyzed", Path: path, Title: "Analyzed", Duration: 180}, nil
}

func (e *fakeEngine) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loads)
}

type fakeLibrary struct {
	songs map[string]song.Song
}

func (l *fakeLibrary) FindSongByKey(id string) *song.Song {
	s, ok := l.songs[id]
	if !ok {
		return nil
	}
	return &s
}

// fakeSettings is an in-memory SettingsStore.
type fakeSettings struct {
	mu     sync.Mutex
	values map[string]json.RawMessage
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]json.RawMessage)}
}

func (s *fakeSettings) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (s *fakeSettings) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = raw
	return nil
}

func (s *fakeSettings) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

// recordChannel is a broadcast channel that records received events.
type recordChannel struct {
	mu     sync.Mutex
	events []string
}

func (c *recordChannel) ID() string           { return "rec" }
func (c *recordChannel) Role() broadcast.Role { return broadcast.RoleAdmin }
func (c *recordChannel) IsAlive() bool        { return true }

func (c *recordChannel) Push(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *recordChannel) received(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e == event {
			return true
		}
	}
	return false
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	var cfg config.Config
	require.NoError(t, defaults.Set(&cfg))
	cfg.Library.IndexPath = "/tmp/library.json"
	return &cfg
}

func newTestCoordinator(t *testing.T, cfg *config.Config, eng *fakeEngine, settings SettingsStore) *Coordinator {
	t.Helper()
	lib := &fakeLibrary{songs: map[string]song.Song{
		"s1": {ID: "s1", Path: "/music/a.mp3", Title: "Lemon", Artist: "Kenshi Yonezu", Duration: 255},
	}}
	c, err := New(cfg, eng, lib, settings)
	require.NoError(t, err)
	return c
}

func TestCoordinator_Add_AutoPlayLoadsFirstItem(t *testing.T) {
	eng := &fakeEngine{}
	c := newTestCoordinator(t, testConfig(t), eng, nil)
	c.Start()
	defer c.Close()

	res, err := c.Add(song.QueueItem{Path: "/music/a.mp3", Title: "Lemon"})
	require.NoError(t, err)
	assert.True(t, res.WasEmpty)

	require.Eventually(t, func() bool {
		return eng.loadCount() == 1 && c.Store().GetCurrentSong() != nil
	}, time.Second, 5*time.Millisecond)

	// The second add joins the queue without triggering a load.
	res2, err := c.Add(song.QueueItem{Path: "/music/b.mp3", Title: "Idol"})
	require.NoError(t, err)
	assert.False(t, res2.WasEmpty)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, eng.loadCount())
}

func TestCoordinator_Add_AutoPlayDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.AutoPlay = false
	eng := &fakeEngine{}
	c := newTestCoordinator(t, cfg, eng, nil)
	c.Start()
	defer c.Close()

	_, err := c.Add(song.QueueItem{Path: "/music/a.mp3"})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, eng.loadCount())
	assert.Nil(t, c.Store().GetCurrentSong())
}

func TestCoordinator_PumpRoutesEvents(t *testing.T) {
	eng := &fakeEngine{}
	cfg := testConfig(t)
	cfg.Session.AutoPlay = false
	c := newTestCoordinator(t, cfg, eng, nil)
	c.Start()
	defer c.Close()

	rec := &recordChannel{}
	c.Router().Register(rec)

	require.NoError(t, c.Store().Update(state.FieldPlayback, map[string]any{"isPlaying": true}))

	require.Eventually(t, func() bool {
		return rec.received(broadcast.EventPlaybackState)
	}, time.Second, 5*time.Millisecond)
}

func TestCoordinator_EffectSelectionPersists(t *testing.T) {
	eng := &fakeEngine{}
	cfg := testConfig(t)
	settings := newFakeSettings()
	c := newTestCoordinator(t, cfg, eng, settings)
	c.Start()
	defer c.Close()

	c.Store().SetCurrentSong(&song.Song{ID: "s1", Path: "/music/a.mp3"})
	require.NoError(t, c.Store().Update(state.FieldEffects, map[string]any{
		"disabledEffectIds": []string{"reverb"},
	}))

	require.Eventually(t, func() bool {
		return settings.has("disabled_effects:s1")
	}, time.Second, 5*time.Millisecond)

	var ids []string
	ok, err := settings.Get("disabled_effects:s1", &ids)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"reverb"}, ids)
}

func TestCoordinator_EffectSelectionRestored(t *testing.T) {
	eng := &fakeEngine{}
	cfg := testConfig(t)
	settings := newFakeSettings()
	require.NoError(t, settings.Set("disabled_effects:s1", []string{"chorus"}))

	c := newTestCoordinator(t, cfg, eng, settings)
	c.Start()
	defer c.Close()

	c.Store().SetCurrentSong(&song.Song{ID: "s1", Path: "/music/a.mp3"})

	require.Eventually(t, func() bool {
		return len(c.Store().GetSnapshot().Effects.DisabledEffectIDs) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"chorus"}, c.Store().GetSnapshot().Effects.DisabledEffectIDs)
}

func TestCoordinator_RequestApprovalReachesQueue(t *testing.T) {
	eng := &fakeEngine{}
	cfg := testConfig(t)
	c := newTestCoordinator(t, cfg, eng, nil)
	c.Start()
	defer c.Close()

	req, code, err := c.Requests().Submit(context.Background(), "s1", "Alice", "", "client-1")
	require.NoError(t, err)
	require.Empty(t, code)
	require.NotNil(t, req)

	_, err = c.Requests().Approve(req.ID)
	require.NoError(t, err)

	items := c.Queue().List()
	require.Len(t, items, 1)
	assert.Equal(t, "s1", items[0].SongID)
	assert.Equal(t, song.AddedViaWebRequest, items[0].AddedVia)

	// The queue was empty, so auto-play kicks in for the approved song.
	require.Eventually(t, func() bool {
		return eng.loadCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCoordinator_DisabledFilterStaysOut(t *testing.T) {
	eng := &fakeEngine{}
	cfg := testConfig(t)
	cfg.Filters = map[string]config.FilterConfig{
		"duration_limit_filter": {Enabled: false},
	}
	c := newTestCoordinator(t, cfg, eng, nil)
	defer c.Close()

	// Only the always-on filters should be present.
	// A song longer than any limit passes because the filter is off.
	req, code, err := c.Requests().Submit(context.Background(), "s1", "Bob", "", "client-2")
	require.NoError(t, err)
	assert.Empty(t, code)
	assert.NotNil(t, req)
}

func TestCoordinator_KickedGuestCannotSubmit(t *testing.T) {
	eng := &fakeEngine{}
	c := newTestCoordinator(t, testConfig(t), eng, nil)
	defer c.Close()

	id, err := c.Guests().Join("Mallory", "client-9")
	require.NoError(t, err)
	require.NoError(t, c.Guests().Kick(id))

	// The kick holds without any filter configuration.
	req, code, err := c.Requests().Submit(context.Background(), "s1", "Mallory", "", "client-9")
	require.NoError(t, err)
	assert.Nil(t, req)
	assert.Equal(t, "kicked", code)
}

func TestCoordinator_InvalidFilterConfig(t *testing.T) {
	eng := &fakeEngine{}
	cfg := testConfig(t)
	cfg.Filters = map[string]config.FilterConfig{
		"duration_limit_filter": {
			Enabled:  true,
			Settings: map[string]any{"min_seconds": 300, "max_seconds": 100},
		},
	}

	lib := &fakeLibrary{songs: map[string]song.Song{}}
	_, err := New(cfg, eng, lib, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration_limit_filter")
}
