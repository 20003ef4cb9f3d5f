// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Session  SessionConfig           `yaml:"session"`
	Requests RequestsConfig          `yaml:"requests"`
	Position PositionConfig          `yaml:"position"`
	Engine   EngineConfig            `yaml:"engine"`
	Library  LibraryConfig           `yaml:"library"`
	Settings SettingsConfig          `yaml:"settings"`
	Admin    AdminConfig             `yaml:"admin"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Messages MessagesConfig          `yaml:"messages"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// SessionConfig represents session-related configuration.
type SessionConfig struct {
	RoomName string `yaml:"room_name" default:"Karaoke Night"`
	AutoPlay bool   `yaml:"auto_play" default:"true"`
}

// RequestsConfig represents the guest request policy.
type RequestsConfig struct {
	RequireApproval bool `yaml:"require_approval" default:"true"`
}

// PositionConfig represents the position broadcaster.
type PositionConfig struct {
	IntervalMs int `yaml:"interval_ms" default:"1000" validate:"gte=100,lte=10000"`
}

// EngineConfig represents the playback engine endpoint.
type EngineConfig struct {
	URL       string `yaml:"url" default:"http://127.0.0.1:9210" validate:"required,url"`
	TimeoutMs int    `yaml:"timeout_ms" default:"10000" validate:"gte=100"`
}

// LibraryConfig represents the song library index.
type LibraryConfig struct {
	IndexPath string `yaml:"index_path" validate:"required"`
}

// SettingsConfig represents persisted-settings storage.
type SettingsConfig struct {
	Path string `yaml:"path" default:"utabox-settings.json"`
}

// AdminConfig represents operator authentication. An empty token leaves
// the admin surface open for single-host setups.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// FilterConfig represents one admission filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents guest-facing response messages.
type MessagesConfig struct {
	Success               string `yaml:"success" default:"Request received!"`
	DefaultError          string `yaml:"default_error" default:"Sorry, that request could not be accepted."`
	NotAccepting          string `yaml:"not_accepting" default:"Requests are closed right now."`
	Kicked                string `yaml:"kicked" default:"You cannot submit requests in this session."`
	GuestPending          string `yaml:"guest_pending" default:"Wait until your current request is handled."`
	DuplicateSong         string `yaml:"duplicate_song" default:"That song is already lined up."`
	SongNotFound          string `yaml:"song_not_found" default:"That song is not in the library."`
	DurationLimitExceeded string `yaml:"duration_limit_exceeded" default:"That song is too long for tonight."`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for deployment-sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("UTABOX_ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("UTABOX_ENGINE_URL"); v != "" {
		c.Engine.URL = v
	}
	if v := os.Getenv("UTABOX_LIBRARY_INDEX"); v != "" {
		c.Library.IndexPath = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// IsFilterEnabled checks if the given admission filter is enabled.
func (c *Config) IsFilterEnabled(name string) bool {
	f, ok := c.Filters[name]
	return ok && f.Enabled
}

// GetMessage returns the guest-facing message for the given result code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "not_accepting":
		return c.Messages.NotAccepting
	case "kicked":
		return c.Messages.Kicked
	case "guest_pending":
		return c.Messages.GuestPending
	case "duplicate_song":
		return c.Messages.DuplicateSong
	case "song_not_found":
		return c.Messages.SongNotFound
	case "duration_limit_exceeded":
		return c.Messages.DurationLimitExceeded
	default:
		return c.Messages.DefaultError
	}
}
