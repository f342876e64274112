package events

import (
	"time"

	"github.com/spec-kit/storefront-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded        EventType = "login_succeeded"
	EventRefreshRotated        EventType = "refresh_rotated"
	EventResetRequested        EventType = "password_reset_requested"
	EventResetCompleted        EventType = "password_reset_completed"
	EventVerificationRequested EventType = "email_verification_requested"
	EventEmailVerified         EventType = "email_verified"
	EventOtpIssued             EventType = "otp_issued"
	EventOtpAttemptsExceeded   EventType = "otp_attempts_exceeded"
)

// Event represents an auth domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	OwnerID   string      `json:"owner_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TokenIssuedPayload accompanies reset/verification/otp issuance so the
// notification layer can deliver the secret out of band.
type TokenIssuedPayload struct {
	Kind      domain.TokenKind `json:"kind"`
	Secret    string           `json:"secret"`
	Code      string           `json:"code,omitempty"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// LoginPayload accompanies a successful primary authentication.
type LoginPayload struct {
	Role domain.Role `json:"role"`
}

// OtpExceededPayload accompanies a force-consumed otp token.
type OtpExceededPayload struct {
	Attempts int `json:"attempts"`
}
