// Package session wires the state store, queue, requests, guests, and
// broadcast router into one running karaoke session.
package session

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/utabox/utabox/internal/app/broadcast"
	"github.com/utabox/utabox/internal/app/guest"
	"github.com/utabox/utabox/internal/app/position"
	"github.com/utabox/utabox/internal/app/queue"
	"github.com/utabox/utabox/internal/app/request"
	"github.com/utabox/utabox/internal/app/request/filter"
	"github.com/utabox/utabox/internal/app/state"
	"github.com/utabox/utabox/internal/domain/song"
	"github.com/utabox/utabox/internal/infra/config"
)

// SettingsStore persists per-song operator settings across restarts.
type SettingsStore interface {
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
}

// Coordinator owns the session components and runs the event pump that
// fans state changes out to connected clients.
type Coordinator struct {
	cfg      *config.Config
	store    *state.Store
	queue    *queue.Manager
	guests   *guest.Registry
	requests *request.Manager
	router   *broadcast.Router
	position *position.Broadcaster
	settings SettingsStore

	loadTimeout time.Duration
	done        chan struct{}
}

// New creates a session coordinator. The settings store may be nil, in
// which case per-song effect selections are not persisted.
func New(cfg *config.Config, eng queue.Engine, library request.Library, settings SettingsStore) (*Coordinator, error) {
	store := state.New()
	router := broadcast.NewRouter(store)

	c := &Coordinator{
		cfg:         cfg,
		store:       store,
		queue:       queue.NewManager(store, eng),
		guests:      guest.NewRegistry(),
		router:      router,
		settings:    settings,
		loadTimeout: time.Duration(cfg.Engine.TimeoutMs) * time.Millisecond,
		done:        make(chan struct{}),
	}

	chain, err := c.setupFilters()
	if err != nil {
		return nil, err
	}

	c.requests = request.NewManager(
		request.Config{RequireApproval: cfg.Requests.RequireApproval},
		c.guests, library, chain, c, router,
	)

	interval := time.Duration(cfg.Position.IntervalMs) * time.Millisecond
	c.position = position.New(store, router, interval)

	return c, nil
}

// setupFilters builds the admission chain. The accepting, kicked, and
// duplicate filters are always present; the remaining registered
// filters join when enabled in the configuration, in name order.
func (c *Coordinator) setupFilters() (*filter.Chain, error) {
	chain := filter.NewChain()

	chain.Add(filter.NewAcceptingFilter(func() bool {
		return c.requests.IsAccepting()
	}))
	chain.Add(&filter.KickedFilter{})
	chain.Add(filter.NewDuplicateSongFilter(
		func(songID string) bool { return c.store.QueueContains(songID, "") },
		func(songID string) bool { return c.requests.HasOpenRequestFor(songID) },
		func() string {
			if s := c.store.GetCurrentSong(); s != nil {
				return s.ID
			}
			return ""
		},
	))

	registered := filter.GetRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	alwaysOn := (&filter.KickedFilter{}).Name()
	for _, name := range names {
		if name == alwaysOn || !c.cfg.IsFilterEnabled(name) {
			continue
		}
		f := registered[name]()
		if err := f.ValidateConfig(c.cfg.Filters[name].Settings); err != nil {
			return nil, errors.Wrapf(err, "invalid config for filter %s", name)
		}
		chain.Add(f)
		zlog.Info().Str("filter", name).Msg("Admission filter enabled")
	}

	return chain, nil
}

// Start launches the event pump and the position broadcaster.
func (c *Coordinator) Start() {
	go c.pump()
	c.position.Start()
	zlog.Info().Str("room", c.cfg.Session.RoomName).Msg("Session started")
}

// Close stops the position broadcaster and the event pump.
func (c *Coordinator) Close() {
	c.position.Stop()
	close(c.done)
}

// pump consumes store events in emission order, routes each to the
// connected clients, and applies persistence side effects.
func (c *Coordinator) pump() {
	for {
		select {
		case ev := <-c.store.Events():
			c.router.Route(ev)
			c.applySideEffects(ev)
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) applySideEffects(ev state.Event) {
	if c.settings == nil {
		return
	}

	switch ev.Type {
	case state.EventEffectsChanged:
		cur := c.store.GetCurrentSong()
		if cur == nil || ev.Effects == nil {
			return
		}
		if err := c.settings.Set(effectsKey(cur.ID), ev.Effects.DisabledEffectIDs); err != nil {
			zlog.Warn().Err(err).Str("songId", cur.ID).Msg("Failed to persist effect selection")
		}
	case state.EventCurrentSongChanged:
		if ev.CurrentSong == nil || ev.CurrentSong.ID == "" {
			return
		}
		var ids []string
		ok, err := c.settings.Get(effectsKey(ev.CurrentSong.ID), &ids)
		if err != nil {
			zlog.Warn().Err(err).Str("songId", ev.CurrentSong.ID).Msg("Failed to read effect selection")
			return
		}
		if !ok {
			return
		}
		if err := c.store.Update(state.FieldEffects, map[string]any{"disabledEffectIds": ids}); err != nil {
			zlog.Warn().Err(err).Msg("Failed to restore effect selection")
		}
	}
}

func effectsKey(songID string) string {
	return "disabled_effects:" + songID
}

// Add puts an item into the queue. When the queue was empty, nothing is
// playing, and auto-play is on, the new head is loaded in the background.
// Request approvals and admin adds both land here so the auto-advance
// decision lives in one place.
func (c *Coordinator) Add(item song.QueueItem) (queue.AddResult, error) {
	res, err := c.queue.Add(item)
	if err != nil {
		return res, err
	}

	if res.WasEmpty && c.cfg.Session.AutoPlay && c.store.GetCurrentSong() == nil {
		go c.autoLoad(res.Item.ID)
	}
	return res, nil
}

func (c *Coordinator) autoLoad(itemID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.loadTimeout)
	defer cancel()

	if _, err := c.queue.LoadByID(ctx, itemID); err != nil {
		zlog.Error().Err(err).Str("itemId", itemID).Msg("Auto-play load failed")
	}
}

// LoadItem loads the given queue item into the engine and makes it the
// current song.
func (c *Coordinator) LoadItem(ctx context.Context, itemID string) (song.QueueItem, error) {
	return c.queue.LoadByID(ctx, itemID)
}

// Store returns the session state store.
func (c *Coordinator) Store() *state.Store { return c.store }

// Queue returns the queue manager.
func (c *Coordinator) Queue() *queue.Manager { return c.queue }

// Requests returns the request manager.
func (c *Coordinator) Requests() *request.Manager { return c.requests }

// Guests returns the guest registry.
func (c *Coordinator) Guests() *guest.Registry { return c.guests }

// Router returns the broadcast router.
func (c *Coordinator) Router() *broadcast.Router { return c.router }

// RoomName returns the configured room name.
func (c *Coordinator) RoomName() string { return c.cfg.Session.RoomName }
