package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("disabled_effects:song-1", []string{"reverb", "chorus"}))

	var got []string
	ok, err := s.Get("disabled_effects:song-1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"reverb", "chorus"}, got)
}

func TestStore_GetMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := Open(path)
	require.NoError(t, err)

	var got []string
	ok, err := s.Get("nope", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("room_name", "Friday Night"))

	reopened, err := Open(path)
	require.NoError(t, err)

	var got string
	ok, err := reopened.Get("room_name", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Friday Night", got)
}

func TestStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", 1))

	s.Delete("k")

	var got int
	ok, err := s.Get("k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse settings file")
}
