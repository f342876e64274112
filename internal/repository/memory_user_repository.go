package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/storefront-auth/internal/domain"
)

type memoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.Principal
}

// NewMemoryUserRepository returns an in-memory UserRepository for tests and
// DSN-less development runs.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]*domain.Principal)}
}

func (r *memoryUserRepository) Create(_ context.Context, principal *domain.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	principal.ID = uuid.NewString()
	principal.CreatedAt = now
	principal.UpdatedAt = now
	copied := *principal
	r.users[principal.ID] = &copied
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *p
	return &copied, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.users {
		if p.Email == email {
			copied := *p
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.PasswordHash = passwordHash
	p.UpdatedAt = time.Now()
	return nil
}

func (r *memoryUserRepository) MarkVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Verified = true
	p.UpdatedAt = time.Now()
	return nil
}
