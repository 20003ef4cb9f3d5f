// Package position provides the periodic playback position broadcaster.
package position

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/utabox/utabox/internal/app/broadcast"
	"github.com/utabox/utabox/internal/app/state"
)

// DefaultInterval is the tick period between position pushes.
const DefaultInterval = 1000 * time.Millisecond

// Payload is pushed to observers once per tick.
type Payload struct {
	Position  float64 `json:"position"` // Interpolated seconds
	IsPlaying bool    `json:"isPlaying"`
	SongID    string  `json:"songId"`
	Timestamp int64   `json:"timestamp"` // Unix milliseconds
}

// Broadcaster pushes an interpolated playback position to observers on
// a fixed interval. A tick never fails: with no current song or no live
// channel it simply sends nothing.
type Broadcaster struct {
	mu       sync.Mutex
	store    *state.Store
	router   *broadcast.Router
	interval time.Duration
	cancel   context.CancelFunc
	now      func() time.Time
}

// New creates a new position broadcaster. A non-positive interval falls
// back to DefaultInterval.
func New(store *state.Store, router *broadcast.Router, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Broadcaster{
		store:    store,
		router:   router,
		interval: interval,
		now:      time.Now,
	}
}

// Start begins the tick loop. Restarting while already running first
// stops the prior timer, so two loops never run concurrently.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go b.run(ctx)
	zlog.Debug().Dur("interval", b.interval).Msg("position: broadcaster started")
}

// Stop halts the tick loop.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *Broadcaster) run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Tick()
		}
	}
}

// Tick pushes one position update if anyone is listening and a song is
// loaded.
func (b *Broadcaster) Tick() {
	if !b.router.HasLiveChannels() {
		return
	}
	cur := b.store.GetCurrentSong()
	if cur == nil {
		return
	}

	snap := b.store.GetSnapshot()
	b.router.Push(broadcast.EventPosition, Payload{
		Position:  b.store.GetCurrentPosition(),
		IsPlaying: snap.Playback.IsPlaying,
		SongID:    cur.ID,
		Timestamp: b.now().UnixMilli(),
	}, broadcast.ScopeAll)
}
