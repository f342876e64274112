package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/storefront-auth/internal/domain"
	apperrors "github.com/spec-kit/storefront-auth/pkg/util"
)

// CredentialIssuer mints and verifies stateless signed access credentials.
// Credentials bind (principal id, role) for a fixed TTL and are verified
// without any store lookup.
type CredentialIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewCredentialIssuer builds an issuer. The signing secret is mandatory;
// its absence is fatal at process start, never a per-call error.
func NewCredentialIssuer(secret string, ttl time.Duration) (*CredentialIssuer, error) {
	if secret == "" {
		return nil, apperrors.NewConfigurationError("signing secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CredentialIssuer{secret: []byte(secret), ttl: ttl}, nil
}

// Claims describes the access credential payload.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issue builds and signs an access credential for the principal.
func (ci *CredentialIssuer) Issue(principal *domain.Principal) (string, time.Time, error) {
	if principal == nil || principal.ID == "" {
		return "", time.Time{}, errors.New("principal id required")
	}
	if !principal.Role.Valid() {
		return "", time.Time{}, errors.New("unrecognized role")
	}

	now := time.Now()
	expiresAt := now.Add(ci.ttl)
	claims := &Claims{
		Role: principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ci.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify validates signature and expiry and returns the claims.
func (ci *CredentialIssuer) Verify(credential string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return ci.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid credential claims")
	}
	return claims, nil
}

// TTL exposes the configured credential lifetime.
func (ci *CredentialIssuer) TTL() time.Duration {
	return ci.ttl
}
