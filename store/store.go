// Package store caches generated UI artifacts keyed by tool identity
// and content fingerprints, with best-effort JSON persistence.
package store

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is a cached artifact. Entries are never mutated in place; a Set
// under the same key replaces the entry wholesale.
type Entry struct {
	HTML           string    `json:"html"`
	GeneratedAt    time.Time `json:"generatedAt"`
	ToolName       string    `json:"toolName"`
	SchemaHash     string    `json:"schemaHash"`
	RefinementHash string    `json:"refinementHash"`
}

// Store holds at most one entry per (namespace, schemaHash,
// refinementHash) triple. The in-memory map is the single source of
// truth; the backing file is a performance optimization, and every
// persistence failure is logged and swallowed.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]Entry
}

func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}
}

func key(namespace, schemaHash, refinementHash string) string {
	return namespace + "|" + schemaHash + "|" + refinementHash
}

// Get is a pure lookup.
func (s *Store) Get(namespace, schemaHash, refinementHash string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key(namespace, schemaHash, refinementHash)]
	return e, ok
}

// Set inserts or replaces the entry for the exact key and flushes.
// Idempotent for identical inputs apart from the timestamp.
func (s *Store) Set(namespace, schemaHash, refinementHash, html string) {
	s.mu.Lock()
	s.entries[key(namespace, schemaHash, refinementHash)] = Entry{
		HTML:           html,
		GeneratedAt:    time.Now().UTC(),
		ToolName:       namespace,
		SchemaHash:     schemaHash,
		RefinementHash: refinementHash,
	}
	s.mu.Unlock()
	s.Save()
}

// Invalidate removes every entry whose namespace component equals the
// argument, regardless of fingerprints, and flushes. Returns the number
// of entries removed.
func (s *Store) Invalidate(namespace string) int {
	s.mu.Lock()
	removed := 0
	for k, e := range s.entries {
		if e.ToolName == namespace {
			delete(s.entries, k)
			removed++
		}
	}
	s.mu.Unlock()
	if removed > 0 {
		s.Save()
	}
	return removed
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Save serializes the full map to the backing file. Failures are logged
// and swallowed; in-memory state is never affected.
func (s *Store) Save() {
	if s.path == "" {
		return
	}

	s.mu.RLock()
	data, err := json.MarshalIndent(s.entries, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		s.logger.Warn("cache save", "path", s.path, "outcome", "error", "error", err.Error())
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Warn("cache save", "path", s.path, "outcome", "error", "error", err.Error())
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Warn("cache save", "path", s.path, "outcome", "error", "error", err.Error())
		return
	}
}

// Load rehydrates the map from the backing file. A missing or malformed
// file means "start empty", never an error.
func (s *Store) Load() {
	if s.path == "" {
		return
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache load", "path", s.path, "outcome", "error", "error", err.Error())
		}
		return
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("cache load", "path", s.path, "outcome", "malformed", "error", err.Error())
		return
	}
	if entries == nil {
		return
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.logger.Info("cache load", "path", s.path, "outcome", "success", "entries", len(entries))
}
