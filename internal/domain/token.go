package domain

import "time"

// TokenKind discriminates the auxiliary token variants stored in one table.
type TokenKind string

const (
	TokenKindRefresh           TokenKind = "refresh"
	TokenKindResetPassword     TokenKind = "reset_password"
	TokenKindEmailVerification TokenKind = "email_verification"
	TokenKindOTP               TokenKind = "otp"
)

// Valid reports whether the kind is one of the four recognized variants.
func (k TokenKind) Valid() bool {
	switch k {
	case TokenKindRefresh, TokenKindResetPassword, TokenKindEmailVerification, TokenKindOTP:
		return true
	}
	return false
}

// TokenMetadata is the closed union of kind-specific payload fields.
// Only the otp kind sets Code and Attempts; Scope is optional for refresh.
type TokenMetadata struct {
	Code     string `json:"code,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// AuxToken is a persisted single-purpose token. The secret is the lookup key
// presented by the client; lookups are always scoped by kind.
type AuxToken struct {
	ID        string
	OwnerID   string
	Kind      TokenKind
	Secret    string
	ExpiresAt time.Time
	Used      bool
	Metadata  TokenMetadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the token is consumable at the given instant.
// Used is monotonic: once true the token is dead regardless of expiry.
func (t *AuxToken) Active(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
