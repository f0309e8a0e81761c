package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/onegreenvn/green-session-service/internal/models"
)

// MemoryTokenStore is a process-local TokenStore with the same conditional
// update semantics as the postgres store. A single mutex serializes writes so
// Deactivate observes and flips is_active atomically.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*models.RefreshToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*models.RefreshToken)}
}

var _ TokenStore = (*MemoryTokenStore)(nil)

func (s *MemoryTokenStore) FindActiveBySecret(ctx context.Context, secret string) (*models.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tokens {
		if t.IsActive && t.Secret == secret {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryTokenStore) Insert(ctx context.Context, token *models.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token.ID]; ok {
		return ErrDuplicate
	}
	for _, t := range s.tokens {
		if t.Secret == token.Secret || t.JTI == token.JTI {
			return ErrDuplicate
		}
	}
	cp := *token
	s.tokens[token.ID] = &cp
	return nil
}

func (s *MemoryTokenStore) Deactivate(ctx context.Context, filter TokenFilter, rev Revocation) (int64, error) {
	if filter.IsEmpty() {
		return 0, ErrEmptyFilter
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, t := range s.tokens {
		if !t.IsActive || !filter.Matches(t) {
			continue
		}
		at := rev.At
		t.IsActive = false
		t.RevokedReason = rev.Reason
		t.RevokedAt = &at
		t.LastUsedAt = at
		if rev.RotatedTo != "" {
			t.RotatedTo = rev.RotatedTo
		}
		changed++
	}
	return changed, nil
}

func (s *MemoryTokenStore) FlagReuse(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[id]; ok && t.ReuseDetectedAt == nil {
		t.ReuseDetectedAt = &at
	}
	return nil
}

func (s *MemoryTokenStore) Find(ctx context.Context, filter TokenFilter, opts FindOptions) ([]models.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.RefreshToken, 0)
	for _, t := range s.tokens {
		if filter.Matches(t) {
			out = append(out, *t)
		}
	}
	s.mu.RUnlock()

	if opts.NewestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].ID > out[j].ID
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *MemoryTokenStore) DeleteMany(ctx context.Context, filter TokenFilter) (int64, error) {
	if filter.IsEmpty() {
		return 0, ErrEmptyFilter
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, t := range s.tokens {
		if filter.Matches(t) {
			delete(s.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryTokenStore) Count(ctx context.Context, filter TokenFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.tokens {
		if filter.Matches(t) {
			n++
		}
	}
	return n, nil
}

// Len returns the total number of stored records
func (s *MemoryTokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
