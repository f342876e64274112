package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/storefront-auth/internal/auth"
	"github.com/spec-kit/storefront-auth/internal/config"
	"github.com/spec-kit/storefront-auth/internal/domain"
	"github.com/spec-kit/storefront-auth/internal/events"
	"github.com/spec-kit/storefront-auth/internal/repository"
	"github.com/spec-kit/storefront-auth/internal/service"
	apperrors "github.com/spec-kit/storefront-auth/pkg/util"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:               "lifecycle-test-key",
		AccessTokenTTLMinutes:   60,
		RefreshTokenTTLHours:    24,
		PasswordResetTTLMinutes: 30,
		VerificationTTLHours:    24,
		OtpTTLMinutes:           5,
		OtpMaxAttempts:          5,
		OtpCodeDigits:           6,
		BcryptCost:              bcrypt.MinCost,
	}
}

type lifecycleFixture struct {
	lifecycle *service.LifecycleService
	tokens    repository.TokenRepository
	users     repository.UserRepository
	owner     *domain.Principal
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	cfg := testAuthConfig()
	tokens := repository.NewMemoryTokenRepository()
	users := repository.NewMemoryUserRepository()

	issuer, err := auth.NewCredentialIssuer(cfg.JWTSecret, cfg.AccessTokenTTL())
	require.NoError(t, err)

	owner := &domain.Principal{Name: "Dealer Dan", Email: "dan@example.com", Role: domain.RoleDealer}
	require.NoError(t, users.Create(context.Background(), owner))

	lifecycle := service.NewLifecycleService(cfg, tokens, users, issuer, events.NewInMemoryDispatcher(), nil, zap.NewNop())
	return &lifecycleFixture{lifecycle: lifecycle, tokens: tokens, users: users, owner: owner}
}

func TestRotateReplacesSecretAndKillsOld(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t)

	original, err := fx.lifecycle.IssueRefresh(ctx, fx.owner.ID)
	require.NoError(t, err)

	access, exp, replacement, err := fx.lifecycle.Rotate(ctx, original.Secret)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.True(t, exp.After(time.Now()))
	assert.NotEqual(t, original.Secret, replacement.Secret)

	// the consumed secret must never rotate again
	_, _, _, err = fx.lifecycle.Rotate(ctx, original.Secret)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredential))

	// the replacement chain stays live
	_, _, next, err := fx.lifecycle.Rotate(ctx, replacement.Secret)
	require.NoError(t, err)
	assert.NotEqual(t, replacement.Secret, next.Secret)
}

func TestRotateRejectsUnknownSecret(t *testing.T) {
	fx := newLifecycleFixture(t)
	_, _, _, err := fx.lifecycle.Rotate(context.Background(), "no-such-secret")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredential))
}

func TestConcurrentRotationHasExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t)

	original, err := fx.lifecycle.IssueRefresh(ctx, fx.owner.ID)
	require.NoError(t, err)

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _, errs[i] = fx.lifecycle.Rotate(ctx, original.Secret)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredential))
		}
	}
	assert.Equal(t, 1, winners)
}

func TestConsumeForResetIsSingleUse(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t)

	token, err := fx.lifecycle.StartReset(ctx, fx.owner.ID)
	require.NoError(t, err)

	ownerID, err := fx.lifecycle.ConsumeForReset(ctx, token.Secret)
	require.NoError(t, err)
	assert.Equal(t, fx.owner.ID, ownerID)

	_, err = fx.lifecycle.ConsumeForReset(ctx, token.Secret)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidOrExpiredToken))
}

func TestConsumeRejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t)

	// plant an already-expired row; FindActive must refuse it even though
	// used is still false
	stale := &domain.AuxToken{
		OwnerID:   fx.owner.ID,
		Kind:      domain.TokenKindResetPassword,
		Secret:    "stale-secret",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, fx.tokens.Create(ctx, stale))

	_, err := fx.lifecycle.ConsumeForReset(ctx, "stale-secret")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidOrExpiredToken))
}

func TestConsumeIsKindScoped(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t)

	token, err := fx.lifecycle.StartReset(ctx, fx.owner.ID)
	require.NoError(t, err)

	// a reset secret must not travel through the refresh path
	_, _, _, err = fx.lifecycle.Rotate(ctx, token.Secret)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredential))

	// the reset path still works afterwards
	_, err = fx.lifecycle.ConsumeForReset(ctx, token.Secret)
	assert.NoError(t, err)
}

func TestConsumeForVerification(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t)

	token, err := fx.lifecycle.StartVerification(ctx, fx.owner.ID)
	require.NoError(t, err)

	ownerID, err := fx.lifecycle.ConsumeForVerification(ctx, token.Secret)
	require.NoError(t, err)
	assert.Equal(t, fx.owner.ID, ownerID)

	_, err = fx.lifecycle.ConsumeForVerification(ctx, token.Secret)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidOrExpiredToken))
}

func TestVerifyOtpHappyPath(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t)

	token, err := fx.lifecycle.StartOtp(ctx, fx.owner.ID)
	require.NoError(t, err)
	require.Len(t, token.Metadata.Code, 6)

	ownerID, err := fx.lifecycle.VerifyOtp(ctx, token.Secret, token.Metadata.Code)
	require.NoError(t, err)
	assert.Equal(t, fx.owner.ID, ownerID)

	// consumed on success; replay fails
	_, err = fx.lifecycle.VerifyOtp(ctx, token.Secret, token.Metadata.Code)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidOrExpiredToken))
}

func TestVerifyOtpAttemptCeiling(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t)

	token, err := fx.lifecycle.StartOtp(ctx, fx.owner.ID)
	require.NoError(t, err)

	// four mismatches are retryable
	for i := 0; i < 4; i++ {
		_, err := fx.lifecycle.VerifyOtp(ctx, token.Secret, "000000x")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeOtpMismatch), "attempt %d", i+1)
	}

	// the fifth mismatch trips the ceiling and consumes the token
	_, err = fx.lifecycle.VerifyOtp(ctx, token.Secret, "000000x")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeOtpAttemptsExceeded))

	// even the correct code is refused from now on
	_, err = fx.lifecycle.VerifyOtp(ctx, token.Secret, token.Metadata.Code)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeOtpAttemptsExceeded))
}

func TestRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t)

	token, err := fx.lifecycle.IssueRefresh(ctx, fx.owner.ID)
	require.NoError(t, err)

	require.NoError(t, fx.lifecycle.Revoke(ctx, token.Secret))
	require.NoError(t, fx.lifecycle.Revoke(ctx, token.Secret))
	require.NoError(t, fx.lifecycle.Revoke(ctx, "never-existed"))

	_, _, _, err = fx.lifecycle.Rotate(ctx, token.Secret)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredential))
}

func TestDeleteExpiredLeavesLiveTokens(t *testing.T) {
	ctx := context.Background()
	fx := newLifecycleFixture(t)

	live, err := fx.lifecycle.IssueRefresh(ctx, fx.owner.ID)
	require.NoError(t, err)
	require.NoError(t, fx.tokens.Create(ctx, &domain.AuxToken{
		OwnerID:   fx.owner.ID,
		Kind:      domain.TokenKindOTP,
		Secret:    "dead",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	removed, err := fx.lifecycle.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, _, _, err = fx.lifecycle.Rotate(ctx, live.Secret)
	assert.NoError(t, err)
}
