// Package denylist keeps an in-memory set of denylisted player names backed
// by a human-edited text file, and checks session rosters against it.
//
// The file is re-read lazily: every CheckAll first compares the file's
// modification time with the one captured at the last successful load.
// Failures never escape the store; they are reported to the logger and the
// previous entries stay in place.
package denylist

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// DefaultPath is the denylist file used when no path is given.
const DefaultPath = "blacklist.txt"

const fileTemplate = `# Player Denylist
# Add one player per line (format: PlayerName#TAG)
# Lines that start with # are comments and are ignored
# Examples:
# ToxicPlayer#BR1
# Cheater#NA1
# AnotherBadPlayer#EU1

`

// Match is a roster entry whose display name is on the denylist.
type Match struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Store is a file-backed denylist. It is safe for concurrent use.
type Store struct {
	path   string
	fsys   FS
	logger *slog.Logger

	mu           sync.Mutex
	entries      map[string]struct{}
	lastModified time.Time
}

type Option func(*Store)

// WithLogger sets the sink for load, reload and error events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFS replaces the OS file system.
func WithFS(fsys FS) Option {
	return func(s *Store) {
		if fsys != nil {
			s.fsys = fsys
		}
	}
}

// New creates a store for the file at path and performs the initial load.
// A missing file is created with an all-comment template.
func New(path string, opts ...Option) *Store {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{
		path:    path,
		fsys:    osFS{},
		logger:  slog.New(slog.DiscardHandler),
		entries: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked()
	return s
}

func (s *Store) initLocked() {
	_, err := s.fsys.Stat(s.path)
	switch {
	case err == nil:
		s.reloadLocked()
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("denylist file not found, creating template", "path", s.path)
		if err := s.createTemplate(); err != nil {
			s.logger.Error("failed to create denylist file", "path", s.path, "error", err)
		}
	default:
		s.logger.Error("failed to check denylist file", "path", s.path, "error", err)
	}
}

func (s *Store) createTemplate() error {
	if err := s.fsys.WriteFile(s.path, []byte(fileTemplate), 0644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	info, err := s.fsys.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	s.lastModified = info.ModTime()
	return nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// LastModified returns the modification time captured at the last load.
func (s *Store) LastModified() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastModified
}

// Reload re-reads the file regardless of its modification time and replaces
// all entries. On failure the previous entries are kept.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked()
}

func (s *Store) reloadLocked() {
	err := s.load()
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Warn("denylist file missing, keeping previous entries", "path", s.path, "entries", len(s.entries))
	default:
		s.logger.Error("failed to load denylist", "path", s.path, "error", err)
	}
}

// load captures the modification time before reading so that an edit made
// during the read is picked up by the next refresh.
func (s *Store) load() error {
	info, err := s.fsys.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	data, err := s.fsys.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	content, err := decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}

	prev := s.entries
	// Set only on success so a failed read is retried on the next refresh.
	s.lastModified = info.ModTime()
	s.entries = Parse(content)

	s.logger.Info("denylist loaded", "path", s.path, "entries", len(s.entries))
	s.logDiff(prev, s.entries)
	return nil
}

// RefreshIfStale reloads the file when its modification time is newer than
// the last load. A missing file is not an error: the last loaded entries
// stay authoritative until the file reappears.
func (s *Store) RefreshIfStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
}

func (s *Store) refreshLocked() {
	info, err := s.fsys.Stat(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("failed to check denylist file modification", "path", s.path, "error", err)
		}
		return
	}
	if !info.ModTime().After(s.lastModified) {
		return
	}
	s.logger.Info("denylist file modified, reloading", "path", s.path)
	s.reloadLocked()
}

// IsMatch reports whether name is on the denylist, ignoring case.
// The empty name never matches.
func (s *Store) IsMatch(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isMatchLocked(name)
}

func (s *Store) isMatchLocked(name string) bool {
	if name == "" {
		return false
	}
	_, ok := s.entries[Normalize(name)]
	return ok
}

// CheckAll refreshes the store if the file changed and returns the players
// whose names are denylisted, in the order players yields them.
// The result is never nil. players is drained before the store is locked,
// so it may call back into the store.
func (s *Store) CheckAll(players iter.Seq2[string, string]) []Match {
	var roster []Match
	if players != nil {
		for id, name := range players {
			roster = append(roster, Match{ID: id, Name: name})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()

	matches := []Match{}
	for _, p := range roster {
		if s.isMatchLocked(p.Name) {
			matches = append(matches, p)
		}
	}
	return matches
}

// Size returns the number of entries.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Snapshot returns a sorted copy of the entries.
func (s *Store) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.entries))
}
