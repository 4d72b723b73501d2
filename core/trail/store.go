package trail

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"watchtrail/logger"
	"watchtrail/model"
)

// Store is the local progress store: one entry per key, the single
// source of truth on-device. It holds everything in memory and mirrors
// the full map into a JSON snapshot file after each mutation.
type Store struct {
	mu      sync.RWMutex
	entries map[string]model.ProgressEntry
	path    string // empty disables persistence (tests)
}

// NewStore creates a store, loading the snapshot file if one exists.
func NewStore(path string) (*Store, error) {
	s := &Store{
		entries: make(map[string]model.ProgressEntry),
		path:    path,
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read progress snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		// A corrupt snapshot should not brick the agent; start fresh.
		logger.Warn("Corrupt progress snapshot, starting empty",
			logger.String("path", path),
			logger.ErrorField(err))
		s.entries = make(map[string]model.ProgressEntry)
	}
	return s, nil
}

// Get returns the entry for a key.
func (s *Store) Get(key string) (model.ProgressEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok
}

// Put creates or replaces the entry for a key.
func (s *Store) Put(key string, entry model.ProgressEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	s.persistLocked()
}

// ToggleLike flips the liked flag for a key and returns the updated
// entry. Returns false if the key does not exist.
func (s *Store) ToggleLike(key string) (model.ProgressEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return model.ProgressEntry{}, false
	}
	entry.Liked = !entry.Liked
	s.entries[key] = entry
	s.persistLocked()
	return entry, true
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Export returns a copy of the full store, for the export surface and
// resume lookups. The caller may not mutate the store through it.
func (s *Store) Export() map[string]model.ProgressEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.ProgressEntry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// persistLocked writes the snapshot file via a temp file and rename so a
// crash mid-write never leaves a torn snapshot. Persistence failures are
// logged, not surfaced; the in-memory state stays authoritative.
func (s *Store) persistLocked() {
	if s.path == "" {
		return
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		logger.Error("Failed to marshal progress snapshot", logger.ErrorField(err))
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		logger.Error("Failed to create snapshot directory", logger.ErrorField(err))
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		logger.Error("Failed to write progress snapshot", logger.ErrorField(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		logger.Error("Failed to replace progress snapshot", logger.ErrorField(err))
	}
}
