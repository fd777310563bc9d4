package revocation

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrEmptyTokenID is returned when a token id is empty.
	ErrEmptyTokenID = errors.New("revocation: empty token id")
	// ErrInvalidTTL is returned when an entry lifetime is not positive.
	ErrInvalidTTL = errors.New("revocation: ttl must be positive")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("revocation: backend unavailable")
)

// Registry records revoked token ids until their entries expire.
//
// Revoke is idempotent: revoking an id twice leaves it revoked. IsRevoked
// returns an error, never false, when the backend cannot answer.
type Registry interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// Count returns the number of live (unexpired) entries.
	Count(ctx context.Context) (int, error)
	// Sweep removes expired entries and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}

// Memory is an in-process Registry.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemory returns an empty in-process registry. now may be nil, in which
// case time.Now is used.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		entries: make(map[string]time.Time),
		now:     now,
	}
}

// Revoke marks tokenID revoked for ttl. A repeated call keeps the later
// deadline.
func (m *Memory) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return ErrEmptyTokenID
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	deadline := m.now().Add(ttl)

	m.mu.Lock()
	if current, ok := m.entries[tokenID]; !ok || deadline.After(current) {
		m.entries[tokenID] = deadline
	}
	m.mu.Unlock()
	return nil
}

// IsRevoked reports whether tokenID has a live entry.
func (m *Memory) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	now := m.now()

	m.mu.RLock()
	deadline, ok := m.entries[tokenID]
	m.mu.RUnlock()

	return ok && now.Before(deadline), nil
}

// Count returns the number of live entries.
func (m *Memory) Count(_ context.Context) (int, error) {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, deadline := range m.entries {
		if now.Before(deadline) {
			n++
		}
	}
	return n, nil
}

// Sweep drops entries whose deadline has passed.
func (m *Memory) Sweep(_ context.Context) (int, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, deadline := range m.entries {
		if !now.Before(deadline) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
