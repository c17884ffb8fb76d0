// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

// Package tables holds process-wide gameplay configuration that operators
// hot-reload while the server runs: shop cost tables, harvest loot rules,
// and the moderation word filter. Readers always observe either the
// fully-old or fully-new tables; the store swaps a pointer, never mutates
// in place.
package tables

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// LootRule maps a glob over object ids to the item def ids harvested there.
type LootRule struct {
	Pattern string `yaml:"pattern"`
	Items   []int  `yaml:"items"`

	matcher glob.Glob
}

// Match reports whether the rule covers the given object id.
func (r *LootRule) Match(objectID string) bool {
	return r.matcher != nil && r.matcher.Match(objectID)
}

// Tables is one immutable snapshot of the reloadable configuration.
type Tables struct {
	// Costs maps a shop listing id to its price.
	Costs map[string]int `yaml:"costs"`
	// Loot is evaluated in declaration order; first matching rule wins.
	Loot []LootRule `yaml:"loot"`
	// FilteredWords are lowercase glob patterns blocked in player-authored
	// text.
	FilteredWords []string `yaml:"filtered_words"`

	wordMatchers []glob.Glob
}

// Cost looks up a listing's price.
func (t *Tables) Cost(listingID string) (int, bool) {
	price, ok := t.Costs[listingID]
	return price, ok
}

// LootFor returns the first loot rule matching an object id.
func (t *Tables) LootFor(objectID string) (*LootRule, bool) {
	for i := range t.Loot {
		if t.Loot[i].Match(objectID) {
			return &t.Loot[i], true
		}
	}
	return nil, false
}

// WordAllowed reports whether a lowercase word passes the filter.
func (t *Tables) WordAllowed(word string) bool {
	for _, m := range t.wordMatchers {
		if m.Match(word) {
			return false
		}
	}
	return true
}

// compile builds the glob matchers. Called once at load; the snapshot is
// immutable afterwards.
func (t *Tables) compile() error {
	for i := range t.Loot {
		m, err := glob.Compile(t.Loot[i].Pattern)
		if err != nil {
			return fmt.Errorf("invalid loot pattern %q: %w", t.Loot[i].Pattern, err)
		}
		t.Loot[i].matcher = m
	}
	t.wordMatchers = make([]glob.Glob, 0, len(t.FilteredWords))
	for _, w := range t.FilteredWords {
		m, err := glob.Compile(w)
		if err != nil {
			return fmt.Errorf("invalid filter pattern %q: %w", w, err)
		}
		t.wordMatchers = append(t.wordMatchers, m)
	}
	return nil
}

// Load reads and compiles one tables snapshot from a YAML file.
func Load(path string) (*Tables, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}
	t := &Tables{}
	if err := yaml.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("parse tables %s: %w", path, err)
	}
	if err := t.compile(); err != nil {
		return nil, err
	}
	return t, nil
}

// Store hands out the current tables snapshot and swaps in new ones.
// Single writer (the reload path), many readers.
type Store struct {
	path     string
	current  atomic.Pointer[Tables]
	reloadMu sync.Mutex
}

// NewStore loads the initial snapshot from path.
func NewStore(path string) (*Store, error) {
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.current.Store(t)
	return s, nil
}

// NewStaticStore wraps a fixed snapshot, for tests and defaults.
func NewStaticStore(t *Tables) *Store {
	if err := t.compile(); err != nil {
		// Static snapshots are built from literals; a bad pattern is a
		// programming error.
		panic("tables: invalid static snapshot: " + err.Error())
	}
	s := &Store{}
	s.current.Store(t)
	return s
}

// Current returns the live snapshot. Callers must not mutate it.
func (s *Store) Current() *Tables {
	return s.current.Load()
}

// Reload re-reads the file and atomically swaps the snapshot. On failure the
// previous snapshot stays live.
func (s *Store) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.path == "" {
		return fmt.Errorf("tables store has no backing file")
	}
	t, err := Load(s.path)
	if err != nil {
		return err
	}
	s.current.Store(t)
	slog.Info("gameplay tables reloaded",
		"path", s.path,
		"costs", len(t.Costs),
		"loot_rules", len(t.Loot),
		"filtered_words", len(t.FilteredWords),
	)
	return nil
}
