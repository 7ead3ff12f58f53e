// Package store persists settings, the threat ruleset, scan history and
// statistics as JSON blobs under fixed keys.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/olegrjumin/checkurl/internal/ruleset"
)

// Storage keys.
const (
	KeySettings   = "extensionSettings"
	KeyRuleset    = "threatDatabase"
	KeyHistory    = "scanHistory"
	KeyStatistics = "statistics"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("store: key not found")

// Store is the typed view over a Backend. Read-modify-write operations are
// serialized so concurrent analyses never lose updates.
type Store struct {
	backend Backend
	mu      sync.Mutex
	now     func() time.Time
}

// New wraps a backend.
func New(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) get(key string, v any) error {
	data, err := s.backend.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.backend.Set(key, data)
}

// Settings returns the stored settings, or the defaults when none are stored.
func (s *Store) Settings() (Settings, error) {
	settings := DefaultSettings()
	err := s.get(KeySettings, &settings)
	if errors.Is(err, ErrNotFound) {
		return DefaultSettings(), nil
	}
	return settings, err
}

// PutSettings replaces the stored settings.
func (s *Store) PutSettings(settings Settings) error {
	return s.put(KeySettings, settings)
}

// Ruleset returns the stored ruleset, or ErrNotFound.
func (s *Store) Ruleset() (*ruleset.Ruleset, error) {
	var rs ruleset.Ruleset
	if err := s.get(KeyRuleset, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// PutRuleset replaces the stored ruleset.
func (s *Store) PutRuleset(rs *ruleset.Ruleset) error {
	if rs == nil {
		return fmt.Errorf("ruleset is nil")
	}
	return s.put(KeyRuleset, rs)
}

// History returns the scan history, newest first.
func (s *Store) History() ([]HistoryEntry, error) {
	var history []HistoryEntry
	err := s.get(KeyHistory, &history)
	if errors.Is(err, ErrNotFound) {
		return []HistoryEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if history == nil {
		return []HistoryEntry{}, nil
	}
	return history, nil
}

// AppendHistory prepends entry and trims the history to MaxHistory entries.
func (s *Store) AppendHistory(entry HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.History()
	if err != nil {
		return err
	}
	history = append([]HistoryEntry{entry}, history...)
	if len(history) > MaxHistory {
		history = history[:MaxHistory]
	}
	return s.put(KeyHistory, history)
}

// ClearHistory removes every history entry.
func (s *Store) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(KeyHistory, []HistoryEntry{})
}

// Statistics returns the counters, zeroed when none are stored.
func (s *Store) Statistics() (Statistics, error) {
	var stats Statistics
	err := s.get(KeyStatistics, &stats)
	if errors.Is(err, ErrNotFound) {
		return NewStatistics(s.now()), nil
	}
	return stats, err
}

// RecordScan counts one completed analysis.
func (s *Store) RecordScan(status string) (Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.Statistics()
	if err != nil {
		return Statistics{}, err
	}
	stats.Record(status)
	return stats, s.put(KeyStatistics, stats)
}

// ResetStatistics zeroes the counters and stamps the reset time.
func (s *Store) ResetStatistics() (Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := NewStatistics(s.now())
	return stats, s.put(KeyStatistics, stats)
}

// Seed writes install-time defaults for every key that is still absent.
// It is safe to call on every start.
func (s *Store) Seed() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	defaults := []struct {
		key   string
		value any
	}{
		{KeySettings, DefaultSettings()},
		{KeyRuleset, ruleset.Default(now)},
		{KeyHistory, []HistoryEntry{}},
		{KeyStatistics, NewStatistics(now)},
	}
	for _, d := range defaults {
		_, err := s.backend.Get(d.key)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.put(d.key, d.value); err != nil {
			return fmt.Errorf("seed %s: %w", d.key, err)
		}
	}
	return nil
}

// UpdateRulesetFromFile replaces the stored ruleset with the one in path when
// their versions differ. It reports whether the stored ruleset changed.
func (s *Store) UpdateRulesetFromFile(path string) (bool, error) {
	next, err := ruleset.LoadFile(path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Ruleset()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if current != nil && current.Version() == next.Version() {
		return false, nil
	}
	if err := s.PutRuleset(next); err != nil {
		return false, err
	}
	return true, nil
}
