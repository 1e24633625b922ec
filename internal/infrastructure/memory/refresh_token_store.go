// Package memory holds single-process implementations of the token store and
// the rate-limit counter. State is not shared between instances.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
)

// RefreshTokenStore keeps refresh tokens in a map keyed by token string.
type RefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken

	// failInsert lets tests simulate the successor write failing mid-rotation.
	failInsert func(*domain.RefreshToken) error
}

var _ ports.RefreshTokenStore = (*RefreshTokenStore)(nil)

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{tokens: make(map[string]*domain.RefreshToken)}
}

func (s *RefreshTokenStore) Create(_ context.Context, t *domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(t)
}

func (s *RefreshTokenStore) insertLocked(t *domain.RefreshToken) error {
	if s.failInsert != nil {
		if err := s.failInsert(t); err != nil {
			return err
		}
	}
	if _, exists := s.tokens[t.Token]; exists {
		return domain.ErrRotationIncomplete
	}
	cp := *t
	s.tokens[t.Token] = &cp
	return nil
}

func (s *RefreshTokenStore) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return nil, domain.ErrRefreshTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *RefreshTokenStore) Rotate(_ context.Context, oldToken string, next *domain.RefreshToken, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tokens[oldToken]
	if !ok || !old.IsActive(now) {
		return domain.ErrInvalidRefreshToken
	}
	old.IsRevoked = true
	old.ReplacedByToken = next.Token
	old.UpdatedAt = now

	if err := s.insertLocked(next); err != nil {
		return domain.ErrRotationIncomplete
	}
	return nil
}

func (s *RefreshTokenStore) Revoke(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok || t.IsRevoked {
		return false, nil
	}
	t.IsRevoked = true
	t.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *RefreshTokenStore) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := time.Now().UTC()
	for _, t := range s.tokens {
		if t.UserID == userID && !t.IsRevoked {
			t.IsRevoked = true
			t.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *RefreshTokenStore) ListActiveForUser(_ context.Context, userID string, now time.Time) ([]domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.RefreshToken, 0)
	for _, t := range s.tokens {
		if t.UserID == userID && t.IsActive(now) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *RefreshTokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, t := range s.tokens {
		if t.ExpiresAt.Before(now) {
			delete(s.tokens, k)
			n++
		}
	}
	return n, nil
}

// Len is the number of stored tokens.
func (s *RefreshTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
