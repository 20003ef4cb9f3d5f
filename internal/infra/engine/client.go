// Package engine provides a client for the local playback engine, the
// process that analyzes media files and renders audio.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/utabox/utabox/internal/domain/song"
)

// Client is an HTTP client for the playback engine.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config represents engine client configuration.
type Config struct {
	URL     string
	Timeout time.Duration
}

// loadRequest is the body of a load call.
type loadRequest struct {
	Path   string `json:"path"`
	ItemID string `json:"itemId"`
}

// loadResponse is the engine's reply to a load call. The song block
// carries whatever the engine's analysis produced for the media file.
type loadResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	Song    *song.Song `json:"song,omitempty"`
}

// New creates a new engine client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("engine URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// LoadMedia asks the engine to load and analyze the media file at path.
// The returned song carries the engine's analysis results. Loading can
// take several seconds on first play of a file, so callers should pass a
// context with an appropriate deadline.
func (c *Client) LoadMedia(ctx context.Context, path, queueItemID string) (*song.Song, error) {
	if path == "" {
		return nil, errors.New("media path is required")
	}

	payload, err := json.Marshal(loadRequest{Path: path, ItemID: queueItemID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode load request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/load", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	zlog.Debug().Str("path", path).Str("itemId", queueItemID).Msg("Loading media in engine")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("engine returned status %d: %s", resp.StatusCode, string(body))
	}

	var response loadResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}
	if !response.Success {
		return nil, errors.Errorf("engine load failed: %s", response.Error)
	}
	if response.Song == nil {
		return nil, errors.New("engine load response missing song")
	}

	return response.Song, nil
}

// Ping checks that the engine is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("engine returned status %d", resp.StatusCode)
	}
	return nil
}
