package auth

import "github.com/spec-kit/storefront-auth/internal/domain"

// FallbackRoute is where unrecognized or missing roles land. Deny by
// default: an unknown role must never reach a privileged dashboard.
const FallbackRoute = "/login"

var landingRoutes = map[domain.Role]string{
	domain.RoleAdmin:    "/admin/dashboard",
	domain.RoleDealer:   "/dealer/dashboard",
	domain.RoleEmployee: "/employee/dashboard",
	domain.RoleCustomer: "/account",
}

// LandingRoute maps a role to its default post-login location. This is the
// single source of the role-to-route table; the client redirect derives from
// it instead of keeping its own copy.
func LandingRoute(role domain.Role) string {
	if route, ok := landingRoutes[role]; ok {
		return route
	}
	return FallbackRoute
}
