package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMedia(t *testing.T) {
	var gotBody loadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/load", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"song": map[string]any{
				"id":       "s1",
				"path":     "/music/a.mp3",
				"title":    "Lemon",
				"artist":   "Kenshi Yonezu",
				"duration": 255.4,
				"hasVocal": true,
			},
		})
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	s, err := c.LoadMedia(context.Background(), "/music/a.mp3", "q-7")
	require.NoError(t, err)

	assert.Equal(t, "/music/a.mp3", gotBody.Path)
	assert.Equal(t, "q-7", gotBody.ItemID)
	assert.Equal(t, "Lemon", s.Title)
	assert.InDelta(t, 255.4, s.Duration, 0.001)
	assert.True(t, s.HasVocal)
}

func TestLoadMedia_EngineFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "decode failed",
		})
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	_, err = c.LoadMedia(context.Background(), "/music/a.mp3", "q-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode failed")
}

func TestLoadMedia_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	_, err = c.LoadMedia(context.Background(), "/music/a.mp3", "q-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestLoadMedia_PathRequired(t *testing.T) {
	c, err := New(Config{URL: "http://127.0.0.1:9210"})
	require.NoError(t, err)

	_, err = c.LoadMedia(context.Background(), "", "q-1")
	require.Error(t, err)
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))
}
