// Package library loads the song catalog from a JSON index file and
// serves lookups for request handling and browsing.
package library

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/utabox/utabox/internal/domain/song"
)

// Index is an in-memory song catalog keyed by song ID.
type Index struct {
	mu    sync.RWMutex
	path  string
	byID  map[string]song.Song
	songs []song.Song
}

// Load reads the index file at path. Entries without an ID or path are
// skipped with a warning rather than failing the whole load.
func Load(path string) (*Index, error) {
	idx := &Index{path: path}
	if err := idx.Reload(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Reload re-reads the index file, replacing the catalog atomically.
func (idx *Index) Reload() error {
	data, err := os.ReadFile(idx.path)
	if err != nil {
		return errors.Wrap(err, "failed to read library index")
	}

	var entries []song.Song
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.Wrap(err, "failed to parse library index")
	}

	byID := make(map[string]song.Song, len(entries))
	songs := make([]song.Song, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" || e.Path == "" {
			zlog.Warn().Str("title", e.Title).Msg("Skipping library entry without id or path")
			continue
		}
		if _, dup := byID[e.ID]; dup {
			zlog.Warn().Str("songId", e.ID).Msg("Skipping duplicate library entry")
			continue
		}
		byID[e.ID] = e
		songs = append(songs, e)
	}

	sort.Slice(songs, func(i, j int) bool {
		if songs[i].Artist != songs[j].Artist {
			return songs[i].Artist < songs[j].Artist
		}
		return songs[i].Title < songs[j].Title
	})

	idx.mu.Lock()
	idx.byID = byID
	idx.songs = songs
	idx.mu.Unlock()

	zlog.Info().Int("songs", len(songs)).Msg("Library index loaded")
	return nil
}

// FindSongByKey looks up a song by its ID, returning nil when absent.
func (idx *Index) FindSongByKey(id string) *song.Song {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s, ok := idx.byID[id]
	if !ok {
		return nil
	}
	return &s
}

// All returns the full catalog sorted by artist then title.
func (idx *Index) All() []song.Song {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]song.Song, len(idx.songs))
	copy(out, idx.songs)
	return out
}

// Search returns songs whose title or artist contains the query,
// case-insensitively. An empty query returns the full catalog.
func (idx *Index) Search(query string) []song.Song {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return idx.All()
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []song.Song
	for _, s := range idx.songs {
		if strings.Contains(strings.ToLower(s.Title), q) || strings.Contains(strings.ToLower(s.Artist), q) {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the number of songs in the catalog.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.songs)
}
