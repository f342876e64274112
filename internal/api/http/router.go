package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-auth/internal/api/http/handlers"
	"github.com/spec-kit/storefront-auth/internal/auth"
	"github.com/spec-kit/storefront-auth/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Dashboard *handlers.DashboardHandler
	Gate      *auth.Gate
}

// RegisterRoutes wires HTTP routes. The gate middleware is the only
// enforcement point; every protected group goes through it.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/password/forgot", cfg.Auth.ForgotPassword)
	authGroup.Post("/password/reset", cfg.Auth.ResetPassword)
	authGroup.Post("/verify-email", cfg.Auth.VerifyEmail)
	authGroup.Post("/otp/request", cfg.Auth.RequestOtp)
	authGroup.Post("/otp/verify", cfg.Auth.VerifyOtp)

	protected := authGroup.Group("", cfg.Gate.Require())
	protected.Get("/me", cfg.Auth.Me)
	protected.Post("/password/change", cfg.Auth.ChangePassword)

	app.Get("/admin/dashboard", cfg.Gate.Require(domain.RoleAdmin), cfg.Dashboard.Overview)
	app.Get("/dealer/dashboard", cfg.Gate.Require(domain.RoleDealer), cfg.Dashboard.Overview)
	app.Get("/employee/dashboard", cfg.Gate.Require(domain.RoleEmployee), cfg.Dashboard.Overview)
	app.Get("/account", cfg.Gate.Require(domain.RoleCustomer), cfg.Dashboard.Overview)
}
