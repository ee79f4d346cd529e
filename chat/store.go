package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

// sessionKey is the single key holding the live session id
const sessionKey = "chatSessionId"

// SessionStore persists the live session identifier
type SessionStore interface {
	// Get returns "" when no session has been persisted yet
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, sessionID string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session id in process memory only
type MemoryStore struct {
	mu        sync.RWMutex
	sessionID string
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the held session id
func (m *MemoryStore) Get(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID, nil
}

// Set overwrites the held session id
func (m *MemoryStore) Set(_ context.Context, sessionID string) error {
	m.mu.Lock()
	m.sessionID = sessionID
	m.mu.Unlock()
	return nil
}

// Clear forgets the held session id
func (m *MemoryStore) Clear(ctx context.Context) error {
	return m.Set(ctx, "")
}

// PebbleStore keeps the session id in an embedded pebble database so it
// survives restarts of the process
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebbleStore opens (or creates) the pebble database at dir
func OpenPebbleStore(dir string, opts *pebble.Options) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store at %s: %w", dir, err)
	}
	return &PebbleStore{db: db}, nil
}

// Get reads the persisted session id
func (p *PebbleStore) Get(_ context.Context) (string, error) {
	v, closer, err := p.db.Get([]byte(sessionKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session id: %w", err)
	}
	defer closer.Close()
	return string(v), nil
}

// Set persists the session id durably
func (p *PebbleStore) Set(_ context.Context, sessionID string) error {
	if err := p.db.Set([]byte(sessionKey), []byte(sessionID), pebble.Sync); err != nil {
		return fmt.Errorf("failed to persist session id: %w", err)
	}
	return nil
}

// Clear removes the persisted session id
func (p *PebbleStore) Clear(_ context.Context) error {
	return p.db.Delete([]byte(sessionKey), pebble.Sync)
}

// Close releases the underlying database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}
