// Package session holds per-session state that does not belong in the
// database, such as pending recovery email challenges.
package session

import (
	"context"
	"sync"
	"time"

	"forum-backend/internal/model"
)

// ChallengeStore keeps at most one recovery challenge per session id.
type ChallengeStore interface {
	Put(ctx context.Context, sessionID string, challenge model.RecoveryChallenge) error
	Get(ctx context.Context, sessionID string) (model.RecoveryChallenge, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is a process-local ChallengeStore. Expired challenges stay
// readable for a grace period so callers can tell "expired" apart from
// "never requested"; the janitor removes them afterwards.
type MemoryStore struct {
	mu      sync.Mutex
	slots   map[string]model.RecoveryChallenge
	grace   time.Duration
	nowFunc func() time.Time
}

func NewMemoryStore(grace time.Duration) *MemoryStore {
	return &MemoryStore{
		slots:   make(map[string]model.RecoveryChallenge),
		grace:   grace,
		nowFunc: time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, challenge model.RecoveryChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[sessionID] = challenge
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (model.RecoveryChallenge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.slots[sessionID]
	return c, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, sessionID)
	return nil
}

// Len returns the number of occupied slots.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Sweep drops challenges whose grace period has passed and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	cutoff := s.nowFunc().Add(-s.grace)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.slots {
		if c.ExpiresAt.Before(cutoff) {
			delete(s.slots, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
