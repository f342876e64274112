package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-auth/internal/auth"
)

// DashboardHandler backs the role-gated route groups. The storefront proper
// (catalog, orders, analytics) lives elsewhere; these endpoints only return
// the acting principal the gate resolved, which is what downstream handlers
// consume.
type DashboardHandler struct{}

// NewDashboardHandler constructs handler.
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Overview handles GET on each role-gated dashboard group.
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"principal_id": principal.ID,
			"role":         principal.Role,
		},
	})
}
