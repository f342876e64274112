package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storefront-auth/internal/domain"
)

// ErrTokenNotActive is returned whenever a lookup or consumption misses:
// unknown secret, wrong kind, expired row, or already-consumed row. Callers
// must not distinguish the cases.
var ErrTokenNotActive = errors.New("token not active")

// TokenRepository is the system of record for auxiliary tokens. FindActive is
// the single chokepoint every consumption flow goes through: it never returns
// an expired or used token.
type TokenRepository interface {
	Create(ctx context.Context, token *domain.AuxToken) error
	FindActive(ctx context.Context, secret string, kind domain.TokenKind) (*domain.AuxToken, error)
	FindBySecret(ctx context.Context, secret string, kind domain.TokenKind) (*domain.AuxToken, error)
	MarkUsed(ctx context.Context, id string) error
	IncrementAttempts(ctx context.Context, id string) (int, error)
	Rotate(ctx context.Context, oldID string, replacement *domain.AuxToken) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type tokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a Postgres-backed implementation.
func NewTokenRepository(pool *pgxpool.Pool) TokenRepository {
	return &tokenRepository{pool: pool}
}

func (r *tokenRepository) Create(ctx context.Context, token *domain.AuxToken) error {
	const query = `
        INSERT INTO auth_tokens (owner_id, kind, secret, expires_at, metadata)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, used, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		token.OwnerID,
		token.Kind,
		token.Secret,
		token.ExpiresAt,
		token.Metadata,
	).Scan(&token.ID, &token.Used, &token.CreatedAt, &token.UpdatedAt)
}

func (r *tokenRepository) FindActive(ctx context.Context, secret string, kind domain.TokenKind) (*domain.AuxToken, error) {
	const query = `
        SELECT id, owner_id, kind, secret, expires_at, used, metadata, created_at, updated_at
        FROM auth_tokens
        WHERE secret=$1 AND kind=$2 AND used=false AND expires_at > NOW()`
	return r.scanOne(ctx, query, secret, kind)
}

func (r *tokenRepository) FindBySecret(ctx context.Context, secret string, kind domain.TokenKind) (*domain.AuxToken, error) {
	const query = `
        SELECT id, owner_id, kind, secret, expires_at, used, metadata, created_at, updated_at
        FROM auth_tokens
        WHERE secret=$1 AND kind=$2`
	return r.scanOne(ctx, query, secret, kind)
}

func (r *tokenRepository) scanOne(ctx context.Context, query, secret string, kind domain.TokenKind) (*domain.AuxToken, error) {
	var token domain.AuxToken
	if err := r.pool.QueryRow(ctx, query, secret, kind).Scan(
		&token.ID,
		&token.OwnerID,
		&token.Kind,
		&token.Secret,
		&token.ExpiresAt,
		&token.Used,
		&token.Metadata,
		&token.CreatedAt,
		&token.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotActive
		}
		return nil, err
	}
	return &token, nil
}

// MarkUsed flips used false->true as a compare-and-set. The WHERE guard makes
// the transition atomic: of two racing consumers exactly one sees a row.
func (r *tokenRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
        UPDATE auth_tokens SET used=true, updated_at=NOW()
        WHERE id=$1 AND used=false`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTokenNotActive
	}
	return nil
}

// IncrementAttempts bumps metadata.attempts atomically and returns the new
// count, so two parallel guesses cannot both observe the pre-ceiling value.
func (r *tokenRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	const query = `
        UPDATE auth_tokens
        SET metadata = jsonb_set(metadata, '{attempts}',
                to_jsonb(COALESCE((metadata->>'attempts')::int, 0) + 1), true),
            updated_at = NOW()
        WHERE id=$1
        RETURNING (metadata->>'attempts')::int`
	var attempts int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrTokenNotActive
		}
		return 0, err
	}
	return attempts, nil
}

// Rotate consumes the old token and inserts its replacement in one
// transaction, so a crash between the two cannot strand the session.
func (r *tokenRepository) Rotate(ctx context.Context, oldID string, replacement *domain.AuxToken) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const consume = `
        UPDATE auth_tokens SET used=true, updated_at=NOW()
        WHERE id=$1 AND used=false`
	cmd, err := tx.Exec(ctx, consume, oldID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTokenNotActive
	}

	const insert = `
        INSERT INTO auth_tokens (owner_id, kind, secret, expires_at, metadata)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, used, created_at, updated_at`
	if err := tx.QueryRow(ctx, insert,
		replacement.OwnerID,
		replacement.Kind,
		replacement.Secret,
		replacement.ExpiresAt,
		replacement.Metadata,
	).Scan(&replacement.ID, &replacement.Used, &replacement.CreatedAt, &replacement.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *tokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM auth_tokens WHERE expires_at < $1`
	cmd, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
