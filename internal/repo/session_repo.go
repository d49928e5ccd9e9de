package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// Session storage keys
const (
	KeyUser    = "vaani_user"
	KeyProfile = "vaani_profile"
	KeyToken   = "vaani_token"
)

// SessionStore is the durable key-value storage used for session continuity
type SessionStore interface {
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a SessionStore backed by the session_kv table.
// The query placeholders are accepted by both lib/pq and go-sqlite3.
func NewSessionRepo(db *sql.DB) SessionStore {
	return &sessionRepo{db: db}
}

// Load returns the value stored under key
func (r *sessionRepo) Load(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `
		SELECT value FROM session_kv WHERE key = $1
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load %q: %w", key, err)
	}
	return value, true, nil
}

// Save inserts or replaces the value stored under key
func (r *sessionRepo) Save(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_kv (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE
		SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}
	return nil
}

// Clear removes key; clearing a missing key is not an error
func (r *sessionRepo) Clear(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to clear %q: %w", key, err)
	}
	return nil
}

// MemorySessionStore keeps session values in process memory only
type MemorySessionStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySessionStore creates an empty in-memory SessionStore
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{values: make(map[string]string)}
}

func (s *MemorySessionStore) Load(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemorySessionStore) Save(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
