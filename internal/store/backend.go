package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

// Backend is a flat key/value space holding JSON blobs.
type Backend interface {
	// Get returns ErrNotFound when key is absent. The returned slice is owned
	// by the caller.
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Close() error
}

// Memory is an in-process Backend used when no store path is configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Close() error { return nil }

// Pebble persists blobs in a Pebble database.
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens or creates a Pebble database at dir.
func OpenPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open store %q: %w", dir, err)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Get(key string) ([]byte, error) {
	data, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	defer closer.Close()
	// data is only valid until closer.Close.
	return append([]byte(nil), data...), nil
}

func (p *Pebble) Set(key string, value []byte) error {
	if err := p.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

func (p *Pebble) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
