// Package settings provides a JSON-file-backed store for operator
// settings that survive restarts, such as per-song disabled effects.
package settings

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Store persists arbitrary JSON-serializable values by key.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]json.RawMessage
}

// Open loads the settings file at path, creating an empty store when the
// file does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		values: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, "failed to read settings file")
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, errors.Wrap(err, "failed to parse settings file")
	}
	return s, nil
}

// Get unmarshals the value stored under key into out. It returns false
// when the key is absent, leaving out untouched.
func (s *Store) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errors.Wrapf(err, "failed to decode setting %s", key)
	}
	return true, nil
}

// Set stores the value under key and writes the file. Write failures are
// logged but the in-memory value is kept, so a transient disk error does
// not lose the setting for the rest of the session.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode setting %s", key)
	}
	s.values[key] = raw

	if err := s.saveLocked(); err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("Failed to persist settings")
	}
	return nil
}

// Delete removes the value stored under key, if any, and writes the file.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	if err := s.saveLocked(); err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("Failed to persist settings")
	}
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode settings")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write settings file")
	}
	return os.Rename(tmp, s.path)
}
