package guest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Join_ResumesByClientID(t *testing.T) {
	r := NewRegistry()

	id1, err := r.Join("Alex", "device-1")
	require.NoError(t, err)

	id2, err := r.Join("Alex (tablet)", "device-1")
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "same client identifier resumes the same guest")

	g, err := r.Get(id1)
	require.NoError(t, err)
	assert.Equal(t, "Alex (tablet)", g.DisplayName)

	id3, err := r.Join("Sam", "device-2")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
	assert.Equal(t, 2, r.Count())
}

func TestRegistry_Join_KickedCannotResume(t *testing.T) {
	r := NewRegistry()

	id, err := r.Join("Alex", "device-1")
	require.NoError(t, err)
	require.NoError(t, r.Kick(id))

	_, err = r.Join("Alex", "device-1")
	assert.ErrorIs(t, err, ErrGuestKicked)
}

func TestRegistry_PendingCounters(t *testing.T) {
	r := NewRegistry()
	id, err := r.Join("Alex", "device-1")
	require.NoError(t, err)

	r.RecordRequest(id)
	r.RecordRequest(id)

	g, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 2, g.PendingRequests)
	assert.Equal(t, 2, g.TotalRequests)
	require.NotNil(t, g.LastRequestAt)

	r.SettleRequest(id)
	assert.Equal(t, 1, g.PendingRequests)
	assert.Equal(t, 2, g.TotalRequests)

	r.SettleRequest(id)
	r.SettleRequest(id) // does not go negative
	assert.Equal(t, 0, g.PendingRequests)
}

func TestRegistry_UnknownGuest(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrInvalidGuest)
	_, err = r.GetByClient("nope")
	assert.ErrorIs(t, err, ErrInvalidGuest)
	assert.ErrorIs(t, r.Kick("nope"), ErrInvalidGuest)
	assert.ErrorIs(t, r.SetVIP("nope", true), ErrInvalidGuest)
}
