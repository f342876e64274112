package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/storefront-auth/internal/auth"
	"github.com/spec-kit/storefront-auth/internal/config"
	"github.com/spec-kit/storefront-auth/internal/domain"
	"github.com/spec-kit/storefront-auth/internal/events"
	"github.com/spec-kit/storefront-auth/internal/repository"
	apperrors "github.com/spec-kit/storefront-auth/pkg/util"
)

// Session is the credential pair handed to a client after authentication,
// plus the landing route its role maps to.
type Session struct {
	Principal     *domain.Principal
	AccessToken   string
	AccessExpires time.Time
	RefreshSecret string
	LandingRoute  string
}

// AuthService composes the issuer and lifecycle manager into the outward
// collaborator surface: registration, login, logout, refresh, and the
// reset/verification/otp flows.
type AuthService struct {
	users      repository.UserRepository
	lifecycle  *LifecycleService
	issuer     *auth.CredentialIssuer
	dispatcher events.Dispatcher
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, lifecycle *LifecycleService, issuer *auth.CredentialIssuer, dispatcher events.Dispatcher) *AuthService {
	return &AuthService{
		users:      users,
		lifecycle:  lifecycle,
		issuer:     issuer,
		dispatcher: dispatcher,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a customer principal and starts email verification.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.Principal, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	principal := &domain.Principal{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
	}
	if err := s.users.Create(ctx, principal); err != nil {
		return nil, err
	}

	if _, err := s.lifecycle.StartVerification(ctx, principal.ID); err != nil {
		return nil, err
	}
	return principal, nil
}

// Login authenticates primary credentials and mints the session pair:
// access credential plus refresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	principal, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(principal.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	return s.startSession(ctx, principal)
}

func (s *AuthService) startSession(ctx context.Context, principal *domain.Principal) (*Session, error) {
	access, exp, err := s.issuer.Issue(principal)
	if err != nil {
		return nil, err
	}
	refresh, err := s.lifecycle.IssueRefresh(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventLoginSucceeded,
			OwnerID:   principal.ID,
			Timestamp: time.Now(),
			Payload:   events.LoginPayload{Role: principal.Role},
		})
	}

	return &Session{
		Principal:     principal,
		AccessToken:   access,
		AccessExpires: exp,
		RefreshSecret: refresh.Secret,
		LandingRoute:  auth.LandingRoute(principal.Role),
	}, nil
}

// Refresh rotates the presented refresh secret into a new session pair.
func (s *AuthService) Refresh(ctx context.Context, refreshSecret string) (*Session, error) {
	access, exp, replacement, err := s.lifecycle.Rotate(ctx, refreshSecret)
	if err != nil {
		return nil, err
	}
	principal, err := s.users.GetByID(ctx, replacement.OwnerID)
	if err != nil {
		return nil, err
	}
	return &Session{
		Principal:     principal,
		AccessToken:   access,
		AccessExpires: exp,
		RefreshSecret: replacement.Secret,
		LandingRoute:  auth.LandingRoute(principal.Role),
	}, nil
}

// Logout consumes the presented refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshSecret string) error {
	return s.lifecycle.Revoke(ctx, refreshSecret)
}

// ForgotPassword starts the reset flow. An unknown email is reported as
// success so the endpoint cannot be used to enumerate accounts; the secret
// only ever leaves through the notification channel.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	principal, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	_, err = s.lifecycle.StartReset(ctx, principal.ID)
	return err
}

// ResetPassword consumes the reset token and applies new credential material.
func (s *AuthService) ResetPassword(ctx context.Context, secret, newPassword string) error {
	ownerID, err := s.lifecycle.ConsumeForReset(ctx, secret)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, ownerID, hash)
}

// VerifyEmail consumes the verification token and marks the owner verified.
func (s *AuthService) VerifyEmail(ctx context.Context, secret string) error {
	ownerID, err := s.lifecycle.ConsumeForVerification(ctx, secret)
	if err != nil {
		return err
	}
	return s.users.MarkVerified(ctx, ownerID)
}

// StartOtp begins the second login step for the owner of the given email.
// Like ForgotPassword it answers uniformly for unknown emails.
func (s *AuthService) StartOtp(ctx context.Context, email string) error {
	principal, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	_, err = s.lifecycle.StartOtp(ctx, principal.ID)
	return err
}

// VerifyOtp completes the second login step and mints a fresh session pair.
func (s *AuthService) VerifyOtp(ctx context.Context, secret, code string) (*Session, error) {
	ownerID, err := s.lifecycle.VerifyOtp(ctx, secret, code)
	if err != nil {
		return nil, err
	}
	principal, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, principal)
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, principalID, currentPassword, newPassword string) error {
	principal, err := s.users.GetByID(ctx, principalID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(principal.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthenticated("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, principalID, hash)
}
