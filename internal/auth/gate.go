package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-auth/internal/domain"
	apperrors "github.com/spec-kit/storefront-auth/pkg/util"
)

const principalKey = "auth_principal"

// Gate is the single server-side enforcement point for protected operations.
// The client-side role redirect mirrors this decision for UX only and is
// never a trust boundary.
type Gate struct {
	issuer *CredentialIssuer
}

// NewGate constructs the authorization gate over the issuer's key material.
func NewGate(issuer *CredentialIssuer) *Gate {
	return &Gate{issuer: issuer}
}

// Authorize evaluates a bearer credential against the required role set.
// An empty role set means any authenticated principal. The returned principal
// carries only the claims the credential proves (id and role).
func (g *Gate) Authorize(credential string, required ...domain.Role) (*domain.Principal, error) {
	if credential == "" {
		return nil, apperrors.NewUnauthenticated("missing credential")
	}

	claims, err := g.issuer.Verify(credential)
	if err != nil {
		return nil, apperrors.NewUnauthenticated("invalid or expired credential")
	}

	principal := &domain.Principal{ID: claims.Subject, Role: claims.Role}
	if len(required) == 0 {
		return principal, nil
	}
	for _, role := range required {
		if claims.Role == role {
			return principal, nil
		}
	}
	return nil, apperrors.NewForbidden("insufficient role")
}

// Require returns fiber middleware enforcing the role set on a route group.
func (g *Gate) Require(required ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := g.Authorize(bearerFromHeader(c.Get("Authorization")), required...)
		if err != nil {
			return err
		}
		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated principal set by Require.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok
}

func bearerFromHeader(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
