package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/storefront-auth/internal/domain"
)

// memoryTokenRepository keeps tokens in a mutex-guarded map with the same
// compare-and-set semantics as the Postgres implementation. It backs unit
// tests and DSN-less development runs.
type memoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.AuxToken
}

// NewMemoryTokenRepository returns an in-memory TokenRepository.
func NewMemoryTokenRepository() TokenRepository {
	return &memoryTokenRepository{tokens: make(map[string]*domain.AuxToken)}
}

func (r *memoryTokenRepository) Create(_ context.Context, token *domain.AuxToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	token.ID = uuid.NewString()
	token.Used = false
	token.CreatedAt = now
	token.UpdatedAt = now
	copied := *token
	r.tokens[token.ID] = &copied
	return nil
}

func (r *memoryTokenRepository) FindActive(_ context.Context, secret string, kind domain.TokenKind) (*domain.AuxToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, t := range r.tokens {
		if t.Secret == secret && t.Kind == kind && t.Active(now) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, ErrTokenNotActive
}

func (r *memoryTokenRepository) FindBySecret(_ context.Context, secret string, kind domain.TokenKind) (*domain.AuxToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Secret == secret && t.Kind == kind {
			copied := *t
			return &copied, nil
		}
	}
	return nil, ErrTokenNotActive
}

func (r *memoryTokenRepository) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markUsedLocked(id)
}

func (r *memoryTokenRepository) markUsedLocked(id string) error {
	t, ok := r.tokens[id]
	if !ok || t.Used {
		return ErrTokenNotActive
	}
	t.Used = true
	t.UpdatedAt = time.Now()
	return nil
}

func (r *memoryTokenRepository) IncrementAttempts(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return 0, ErrTokenNotActive
	}
	t.Metadata.Attempts++
	t.UpdatedAt = time.Now()
	return t.Metadata.Attempts, nil
}

func (r *memoryTokenRepository) Rotate(_ context.Context, oldID string, replacement *domain.AuxToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.markUsedLocked(oldID); err != nil {
		return err
	}
	now := time.Now()
	replacement.ID = uuid.NewString()
	replacement.Used = false
	replacement.CreatedAt = now
	replacement.UpdatedAt = now
	copied := *replacement
	r.tokens[replacement.ID] = &copied
	return nil
}

func (r *memoryTokenRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, t := range r.tokens {
		if t.ExpiresAt.Before(before) {
			delete(r.tokens, id)
			removed++
		}
	}
	return removed, nil
}
