package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/storefront-auth/internal/auth"
	"github.com/spec-kit/storefront-auth/internal/domain"
)

func TestLandingRoutes(t *testing.T) {
	tests := []struct {
		role domain.Role
		want string
	}{
		{domain.RoleAdmin, "/admin/dashboard"},
		{domain.RoleDealer, "/dealer/dashboard"},
		{domain.RoleEmployee, "/employee/dashboard"},
		{domain.RoleCustomer, "/account"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, auth.LandingRoute(tc.role), "role %s", tc.role)
	}
}

func TestLandingRouteDeniesUnknownRole(t *testing.T) {
	// An unrecognized role must never land on a privileged dashboard.
	assert.Equal(t, auth.FallbackRoute, auth.LandingRoute(domain.Role("superuser")))
	assert.Equal(t, auth.FallbackRoute, auth.LandingRoute(domain.Role("")))
}
