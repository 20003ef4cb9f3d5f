package queue

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utabox/utabox/internal/app/state"
	"github.com/utabox/utabox/internal/domain/song"
)

// fakeEngine records load calls and can be told to fail.
type fakeEngine struct {
	loads   []string
	itemIDs []string
	result  *song.Song
	err     error
}

func (f *fakeEngine) LoadMedia(ctx context.Context, path, queueItemID string) (*song.Song, error) {
	f.loads = append(f.loads, path)
	f.itemIDs = append(f.itemIDs, queueItemID)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newManager(t *testing.T) (*Manager, *state.Store, *fakeEngine) {
	t.Helper()
	store := state.New()
	engine := &fakeEngine{}
	return NewManager(store, engine), store, engine
}

func TestManager_Add_WasEmpty(t *testing.T) {
	m, _, _ := newManager(t)

	first, err := m.Add(song.QueueItem{Path: "/a.mp3", Title: "A", Artist: "X"})
	require.NoError(t, err)
	assert.True(t, first.WasEmpty)
	assert.Len(t, first.Queue, 1)
	assert.NotEmpty(t, first.Item.ID)

	second, err := m.Add(song.QueueItem{Path: "/b.mp3"})
	require.NoError(t, err)
	assert.False(t, second.WasEmpty)
	assert.Len(t, second.Queue, 2)
}

func TestManager_Add_RequiresPath(t *testing.T) {
	m, store, _ := newManager(t)

	_, err := m.Add(song.QueueItem{Title: "no path"})
	assert.ErrorIs(t, err, ErrPathRequired)
	assert.Equal(t, 0, store.QueueLen())
}

func TestManager_Add_DefaultsAddedVia(t *testing.T) {
	m, _, _ := newManager(t)

	res, err := m.Add(song.QueueItem{Path: "/a.mp3"})
	require.NoError(t, err)
	assert.Equal(t, song.AddedViaQueueAdd, res.Item.AddedVia)

	res, err = m.Add(song.QueueItem{Path: "/b.mp3", AddedVia: song.AddedViaWebRequest})
	require.NoError(t, err)
	assert.Equal(t, song.AddedViaWebRequest, res.Item.AddedVia)
}

func TestManager_LengthArithmetic(t *testing.T) {
	m, store, _ := newManager(t)

	var ids []string
	for _, p := range []string{"/a.mp3", "/b.mp3", "/c.mp3", "/d.mp3"} {
		res, err := m.Add(song.QueueItem{Path: p})
		require.NoError(t, err)
		ids = append(ids, res.Item.ID)
	}

	_, err := m.Remove(ids[1])
	require.NoError(t, err)
	_, err = m.Remove(ids[1])
	assert.ErrorIs(t, err, state.ErrItemNotFound)

	// 4 adds - 1 successful remove.
	assert.Equal(t, 3, store.QueueLen())

	m.Clear()
	assert.Equal(t, 0, store.QueueLen())
}

func TestManager_Reorder_UnknownID(t *testing.T) {
	m, _, _ := newManager(t)
	res, err := m.Add(song.QueueItem{Path: "/a.mp3"})
	require.NoError(t, err)

	err = m.Reorder("q-404", 5)
	assert.ErrorIs(t, err, state.ErrItemNotFound)

	// Clamped move of a real item succeeds.
	assert.NoError(t, m.Reorder(res.Item.ID, 5))
}

func TestManager_LoadByID(t *testing.T) {
	t.Run("loads without removing", func(t *testing.T) {
		m, store, engine := newManager(t)
		engine.result = &song.Song{Duration: 215}

		res, err := m.Add(song.QueueItem{Path: "/a.mp3", Title: "A", SongID: "lib-1"})
		require.NoError(t, err)

		item, err := m.LoadByID(context.Background(), res.Item.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Item.ID, item.ID)
		assert.Equal(t, []string{"/a.mp3"}, engine.loads)
		assert.Equal(t, []string{res.Item.ID}, engine.itemIDs)

		// Removal is a separate explicit step.
		assert.Equal(t, 1, store.QueueLen())

		cur := store.GetCurrentSong()
		require.NotNil(t, cur)
		assert.Equal(t, "A", cur.Title)
		assert.Equal(t, 215.0, cur.Duration)

		snap := store.GetSnapshot()
		assert.Equal(t, "/a.mp3", snap.Playback.SongPath)
		assert.Equal(t, 0.0, snap.Playback.Position)
		assert.False(t, snap.Playback.IsPlaying)
	})

	t.Run("unknown id is a reported error", func(t *testing.T) {
		m, _, engine := newManager(t)
		_, err := m.LoadByID(context.Background(), "q-404")
		assert.ErrorIs(t, err, state.ErrItemNotFound)
		assert.Empty(t, engine.loads)
	})

	t.Run("engine failure is reported, state untouched", func(t *testing.T) {
		m, store, engine := newManager(t)
		engine.err = errors.New("decoder exploded")

		res, err := m.Add(song.QueueItem{Path: "/a.mp3"})
		require.NoError(t, err)

		_, err = m.LoadByID(context.Background(), res.Item.ID)
		assert.ErrorIs(t, err, ErrLoadFailed)
		assert.Contains(t, err.Error(), "decoder exploded")
		assert.Nil(t, store.GetCurrentSong())
	})
}
