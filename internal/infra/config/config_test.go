package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: Config{
				Library: LibraryConfig{IndexPath: "/srv/karaoke/library.json"},
				Engine: EngineConfig{
					URL:       "http://127.0.0.1:9210",
					TimeoutMs: 10000,
				},
				Position: PositionConfig{IntervalMs: 1000},
			},
			wantErr: false,
		},
		{
			name: "missing library index path",
			config: Config{
				Engine: EngineConfig{
					URL:       "http://127.0.0.1:9210",
					TimeoutMs: 10000,
				},
				Position: PositionConfig{IntervalMs: 1000},
			},
			wantErr: true,
			errMsg:  "IndexPath",
		},
		{
			name: "position interval too small",
			config: Config{
				Library: LibraryConfig{IndexPath: "/srv/karaoke/library.json"},
				Engine: EngineConfig{
					URL:       "http://127.0.0.1:9210",
					TimeoutMs: 10000,
				},
				Position: PositionConfig{IntervalMs: 50},
			},
			wantErr: true,
			errMsg:  "IntervalMs",
		},
		{
			name: "invalid engine url",
			config: Config{
				Library: LibraryConfig{IndexPath: "/srv/karaoke/library.json"},
				Engine: EngineConfig{
					URL:       "not a url",
					TimeoutMs: 10000,
				},
				Position: PositionConfig{IntervalMs: 1000},
			},
			wantErr: true,
			errMsg:  "URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
library:
  index_path: /srv/karaoke/library.json
session:
  room_name: "Friday Night"
requests:
  require_approval: false
filters:
  duration_limit_filter:
    enabled: true
    settings:
      max_seconds: 480
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Friday Night", cfg.Session.RoomName)
	assert.False(t, cfg.Requests.RequireApproval)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 1000, cfg.Position.IntervalMs)
	assert.Equal(t, "http://127.0.0.1:9210", cfg.Engine.URL)
	assert.True(t, cfg.IsFilterEnabled("duration_limit_filter"))
	assert.False(t, cfg.IsFilterEnabled("kicked_guest_filter"))
	assert.Equal(t, 480, cfg.Filters["duration_limit_filter"].Settings["max_seconds"])
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
library:
  index_path: /srv/karaoke/library.json
admin:
  token: file-token
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("UTABOX_ADMIN_TOKEN", "env-token")
	t.Setenv("UTABOX_ENGINE_URL", "http://engine.local:9210")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Admin.Token)
	assert.Equal(t, "http://engine.local:9210", cfg.Engine.URL)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfig_GetMessage(t *testing.T) {
	var cfg Config
	require.NoError(t, defaults.Set(&cfg))

	assert.Equal(t, cfg.Messages.NotAccepting, cfg.GetMessage("not_accepting"))
	assert.Equal(t, cfg.Messages.DuplicateSong, cfg.GetMessage("duplicate_song"))
	assert.Equal(t, cfg.Messages.DefaultError, cfg.GetMessage("some_unknown_code"))
}
