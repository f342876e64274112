package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-auth/internal/auth"
	"github.com/spec-kit/storefront-auth/internal/config"
	"github.com/spec-kit/storefront-auth/internal/domain"
	"github.com/spec-kit/storefront-auth/internal/events"
	"github.com/spec-kit/storefront-auth/internal/observability"
	"github.com/spec-kit/storefront-auth/internal/repository"
	apperrors "github.com/spec-kit/storefront-auth/pkg/util"
)

const secretByteLength = 32

// LifecycleService owns every AuxToken state transition: issuance, rotation,
// single-use consumption, and otp attempt accounting. Tokens move
// Active -> Consumed, or fall out of reach at read time once expired;
// used=false->true is the only legal flip and it never reverses.
type LifecycleService struct {
	tokens     repository.TokenRepository
	users      repository.UserRepository
	issuer     *auth.CredentialIssuer
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.AuthConfig
}

// NewLifecycleService builds the lifecycle manager.
func NewLifecycleService(
	cfg config.AuthConfig,
	tokens repository.TokenRepository,
	users repository.UserRepository,
	issuer *auth.CredentialIssuer,
	dispatcher events.Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		tokens:     tokens,
		users:      users,
		issuer:     issuer,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// IssueRefresh creates a refresh token for the owner at login.
func (s *LifecycleService) IssueRefresh(ctx context.Context, ownerID string) (*domain.AuxToken, error) {
	return s.issue(ctx, ownerID, domain.TokenKindRefresh, s.cfg.RefreshTokenTTL(), domain.TokenMetadata{})
}

// StartReset creates a single-use password reset token for the owner.
func (s *LifecycleService) StartReset(ctx context.Context, ownerID string) (*domain.AuxToken, error) {
	token, err := s.issue(ctx, ownerID, domain.TokenKindResetPassword, s.cfg.PasswordResetTTL(), domain.TokenMetadata{})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventResetRequested, ownerID, events.TokenIssuedPayload{
		Kind:      token.Kind,
		Secret:    token.Secret,
		ExpiresAt: token.ExpiresAt,
	})
	return token, nil
}

// StartVerification creates a single-use email verification token.
func (s *LifecycleService) StartVerification(ctx context.Context, ownerID string) (*domain.AuxToken, error) {
	token, err := s.issue(ctx, ownerID, domain.TokenKindEmailVerification, s.cfg.VerificationTTL(), domain.TokenMetadata{})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventVerificationRequested, ownerID, events.TokenIssuedPayload{
		Kind:      token.Kind,
		Secret:    token.Secret,
		ExpiresAt: token.ExpiresAt,
	})
	return token, nil
}

// StartOtp creates an otp token carrying a numeric code in its metadata.
// The code travels out of band; the secret identifies the challenge.
func (s *LifecycleService) StartOtp(ctx context.Context, ownerID string) (*domain.AuxToken, error) {
	code, err := auth.GenerateOtpCode(s.cfg.OtpCodeDigits)
	if err != nil {
		return nil, err
	}
	token, err := s.issue(ctx, ownerID, domain.TokenKindOTP, s.cfg.OtpTTL(), domain.TokenMetadata{Code: code})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventOtpIssued, ownerID, events.TokenIssuedPayload{
		Kind:      token.Kind,
		Secret:    token.Secret,
		Code:      code,
		ExpiresAt: token.ExpiresAt,
	})
	return token, nil
}

func (s *LifecycleService) issue(ctx context.Context, ownerID string, kind domain.TokenKind, ttl time.Duration, meta domain.TokenMetadata) (*domain.AuxToken, error) {
	secret, err := auth.GenerateSecret(secretByteLength)
	if err != nil {
		return nil, err
	}
	token := &domain.AuxToken{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Kind:      kind,
		Secret:    secret,
		ExpiresAt: time.Now().Add(ttl),
		Metadata:  meta,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}
	s.metrics.RecordTokenIssued(string(kind))
	return token, nil
}

// Rotate exchanges an active refresh token for a fresh access credential and
// a replacement refresh token. The old token is consumed and the replacement
// inserted in one store transaction, so a retried or stolen secret loses the
// race and observes InvalidCredential.
func (s *LifecycleService) Rotate(ctx context.Context, secret string) (string, time.Time, *domain.AuxToken, error) {
	old, err := s.tokens.FindActive(ctx, secret, domain.TokenKindRefresh)
	if err != nil {
		return "", time.Time{}, nil, s.mapLookupErr(err, apperrors.NewInvalidCredential())
	}

	owner, err := s.users.GetByID(ctx, old.OwnerID)
	if err != nil {
		return "", time.Time{}, nil, apperrors.NewInvalidCredential()
	}

	newSecret, err := auth.GenerateSecret(secretByteLength)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	replacement := &domain.AuxToken{
		ID:        uuid.NewString(),
		OwnerID:   old.OwnerID,
		Kind:      domain.TokenKindRefresh,
		Secret:    newSecret,
		ExpiresAt: time.Now().Add(s.cfg.RefreshTokenTTL()),
		Metadata:  domain.TokenMetadata{Scope: old.Metadata.Scope},
	}

	if err := s.tokens.Rotate(ctx, old.ID, replacement); err != nil {
		return "", time.Time{}, nil, s.mapLookupErr(err, apperrors.NewInvalidCredential())
	}

	credential, exp, err := s.issuer.Issue(owner)
	if err != nil {
		return "", time.Time{}, nil, err
	}

	s.metrics.RecordTokenConsumed(string(domain.TokenKindRefresh))
	s.metrics.RecordTokenIssued(string(domain.TokenKindRefresh))
	s.publish(ctx, events.EventRefreshRotated, owner.ID, nil)
	return credential, exp, replacement, nil
}

// Revoke consumes the presented refresh token (logout). Unknown or already
// dead secrets are not an error: logout is idempotent.
func (s *LifecycleService) Revoke(ctx context.Context, secret string) error {
	token, err := s.tokens.FindActive(ctx, secret, domain.TokenKindRefresh)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotActive) {
			return nil
		}
		return err
	}
	if err := s.tokens.MarkUsed(ctx, token.ID); err != nil && !errors.Is(err, repository.ErrTokenNotActive) {
		return err
	}
	return nil
}

// ConsumeForReset validates and consumes a reset token, returning the owning
// principal id for the caller to apply the new credential material.
func (s *LifecycleService) ConsumeForReset(ctx context.Context, secret string) (string, error) {
	ownerID, err := s.consume(ctx, secret, domain.TokenKindResetPassword)
	if err != nil {
		return "", err
	}
	s.publish(ctx, events.EventResetCompleted, ownerID, nil)
	return ownerID, nil
}

// ConsumeForVerification validates and consumes a verification token.
func (s *LifecycleService) ConsumeForVerification(ctx context.Context, secret string) (string, error) {
	ownerID, err := s.consume(ctx, secret, domain.TokenKindEmailVerification)
	if err != nil {
		return "", err
	}
	s.publish(ctx, events.EventEmailVerified, ownerID, nil)
	return ownerID, nil
}

func (s *LifecycleService) consume(ctx context.Context, secret string, kind domain.TokenKind) (string, error) {
	token, err := s.tokens.FindActive(ctx, secret, kind)
	if err != nil {
		return "", s.mapLookupErr(err, apperrors.NewInvalidOrExpiredToken())
	}
	if err := s.tokens.MarkUsed(ctx, token.ID); err != nil {
		return "", s.mapLookupErr(err, apperrors.NewInvalidOrExpiredToken())
	}
	s.metrics.RecordTokenConsumed(string(kind))
	return token.OwnerID, nil
}

// VerifyOtp compares the supplied code against the token's stored code in
// constant time. Mismatches increment the attempt counter atomically; once
// the counter reaches the ceiling the token is force-consumed and every later
// call answers OtpAttemptsExceeded, correct code included.
func (s *LifecycleService) VerifyOtp(ctx context.Context, secret, suppliedCode string) (string, error) {
	token, err := s.tokens.FindActive(ctx, secret, domain.TokenKindOTP)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotActive) {
			if s.otpExhausted(ctx, secret) {
				return "", apperrors.NewOtpAttemptsExceeded()
			}
			return "", apperrors.NewInvalidOrExpiredToken()
		}
		return "", err
	}

	if subtle.ConstantTimeCompare([]byte(token.Metadata.Code), []byte(suppliedCode)) != 1 {
		attempts, err := s.tokens.IncrementAttempts(ctx, token.ID)
		if err != nil {
			return "", s.mapLookupErr(err, apperrors.NewInvalidOrExpiredToken())
		}
		s.metrics.RecordOtpAttempt(false)
		if attempts >= s.cfg.OtpMaxAttempts {
			if err := s.tokens.MarkUsed(ctx, token.ID); err != nil && !errors.Is(err, repository.ErrTokenNotActive) {
				return "", err
			}
			s.logger.Warn("otp attempt ceiling reached",
				zap.String("owner_id", token.OwnerID),
				zap.Int("attempts", attempts))
			s.publish(ctx, events.EventOtpAttemptsExceeded, token.OwnerID, events.OtpExceededPayload{Attempts: attempts})
			return "", apperrors.NewOtpAttemptsExceeded()
		}
		return "", apperrors.NewOtpMismatch()
	}

	if err := s.tokens.MarkUsed(ctx, token.ID); err != nil {
		return "", s.mapLookupErr(err, apperrors.NewInvalidOrExpiredToken())
	}
	s.metrics.RecordOtpAttempt(true)
	s.metrics.RecordTokenConsumed(string(domain.TokenKindOTP))
	return token.OwnerID, nil
}

// otpExhausted classifies a FindActive miss: a consumed otp row whose attempt
// counter hit the ceiling keeps answering OtpAttemptsExceeded rather than the
// uniform lookup failure.
func (s *LifecycleService) otpExhausted(ctx context.Context, secret string) bool {
	token, err := s.tokens.FindBySecret(ctx, secret, domain.TokenKindOTP)
	if err != nil {
		return false
	}
	return token.Used && token.Metadata.Attempts >= s.cfg.OtpMaxAttempts
}

// DeleteExpired removes rows past their expiry. Housekeeping only: expiry is
// always enforced at read time.
func (s *LifecycleService) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return s.tokens.DeleteExpired(ctx, before)
}

func (s *LifecycleService) mapLookupErr(err, typed error) error {
	if errors.Is(err, repository.ErrTokenNotActive) {
		return typed
	}
	return err
}

func (s *LifecycleService) publish(ctx context.Context, eventType events.EventType, ownerID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
