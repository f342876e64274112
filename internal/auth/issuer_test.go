package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront-auth/internal/auth"
	"github.com/spec-kit/storefront-auth/internal/domain"
	apperrors "github.com/spec-kit/storefront-auth/pkg/util"
)

func TestNewCredentialIssuerRequiresSecret(t *testing.T) {
	_, err := auth.NewCredentialIssuer("", time.Hour)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfiguration))
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	issuer, err := auth.NewCredentialIssuer("test-signing-key", time.Hour)
	require.NoError(t, err)

	principal := &domain.Principal{ID: "user-1", Role: domain.RoleDealer}
	credential, exp, err := issuer.Issue(principal)
	require.NoError(t, err)
	assert.NotEmpty(t, credential)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := issuer.Verify(credential)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.RoleDealer, claims.Role)
}

func TestIssueRejectsBadPrincipal(t *testing.T) {
	issuer, err := auth.NewCredentialIssuer("test-signing-key", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name      string
		principal *domain.Principal
	}{
		{"nil principal", nil},
		{"missing id", &domain.Principal{Role: domain.RoleAdmin}},
		{"unknown role", &domain.Principal{ID: "user-1", Role: domain.Role("superuser")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := issuer.Issue(tc.principal)
			assert.Error(t, err)
		})
	}
}

func TestVerifyRejectsExpiredCredential(t *testing.T) {
	issuer, err := auth.NewCredentialIssuer("test-signing-key", time.Nanosecond)
	require.NoError(t, err)

	credential, _, err := issuer.Issue(&domain.Principal{ID: "user-1", Role: domain.RoleCustomer})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = issuer.Verify(credential)
	assert.Error(t, err)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issuer, err := auth.NewCredentialIssuer("key-one", time.Hour)
	require.NoError(t, err)
	other, err := auth.NewCredentialIssuer("key-two", time.Hour)
	require.NoError(t, err)

	credential, _, err := issuer.Issue(&domain.Principal{ID: "user-1", Role: domain.RoleCustomer})
	require.NoError(t, err)

	_, err = other.Verify(credential)
	assert.Error(t, err)
}
