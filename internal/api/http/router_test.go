package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/storefront-auth/internal/api/http"
	"github.com/spec-kit/storefront-auth/internal/api/http/handlers"
	"github.com/spec-kit/storefront-auth/internal/auth"
	"github.com/spec-kit/storefront-auth/internal/config"
	"github.com/spec-kit/storefront-auth/internal/domain"
	"github.com/spec-kit/storefront-auth/internal/events"
	"github.com/spec-kit/storefront-auth/internal/observability"
	"github.com/spec-kit/storefront-auth/internal/repository"
	"github.com/spec-kit/storefront-auth/internal/service"
)

func newTestApp(t *testing.T) (*fiber.App, repository.UserRepository) {
	t.Helper()
	cfg := config.AuthConfig{
		JWTSecret:               "router-test-key",
		AccessTokenTTLMinutes:   60,
		RefreshTokenTTLHours:    24,
		PasswordResetTTLMinutes: 30,
		VerificationTTLHours:    24,
		OtpTTLMinutes:           5,
		OtpMaxAttempts:          5,
		OtpCodeDigits:           6,
		BcryptCost:              bcrypt.MinCost,
	}

	tokens := repository.NewMemoryTokenRepository()
	users := repository.NewMemoryUserRepository()
	issuer, err := auth.NewCredentialIssuer(cfg.JWTSecret, cfg.AccessTokenTTL())
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	lifecycle := service.NewLifecycleService(cfg, tokens, users, issuer, dispatcher, metrics, logger)
	authService := service.NewAuthService(cfg, users, lifecycle, issuer, dispatcher)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler("storefront-auth", "test", nil, nil),
		Auth:      handlers.NewAuthHandler(authService),
		Dashboard: handlers.NewDashboardHandler(),
		Gate:      auth.NewGate(issuer),
	})
	return app, users
}

func seedDealer(t *testing.T, users repository.UserRepository) {
	t.Helper()
	hash, err := auth.HashPassword("hunter22", bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &domain.Principal{
		Name:         "Dealer Dan",
		Email:        "dealer@example.com",
		PasswordHash: hash,
		Role:         domain.RoleDealer,
	}))
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func loginDealer(t *testing.T, app *fiber.App) (accessToken, refreshToken, landingRoute string) {
	t.Helper()
	resp := postJSON(t, app, "/auth/login", fiber.Map{
		"email":    "dealer@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			Auth struct {
				AccessToken  string `json:"access_token"`
				RefreshToken string `json:"refresh_token"`
				LandingRoute string `json:"landing_route"`
			} `json:"auth"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Data.Auth.AccessToken, envelope.Data.Auth.RefreshToken, envelope.Data.Auth.LandingRoute
}

func TestLoginAndRoleGatedDashboards(t *testing.T) {
	app, users := newTestApp(t)
	seedDealer(t, users)

	access, refresh, landing := loginDealer(t, app)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.Equal(t, "/dealer/dashboard", landing)

	// the landing route the credential earns is reachable
	req := httptest.NewRequest(http.MethodGet, "/dealer/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// a dealer credential is present-but-insufficient for admin routes
	req = httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// no credential at all is unauthenticated, not forbidden
	req = httptest.NewRequest(http.MethodGet, "/dealer/dashboard", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	app, users := newTestApp(t)
	seedDealer(t, users)

	_, refresh, _ := loginDealer(t, app)

	resp := postJSON(t, app, "/auth/refresh", fiber.Map{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// replaying the consumed secret is rejected as a 401
	resp = postJSON(t, app, "/auth/refresh", fiber.Map{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeEndpointReturnsActingPrincipal(t *testing.T) {
	app, users := newTestApp(t)
	seedDealer(t, users)

	access, _, _ := loginDealer(t, app)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			Role         string `json:"role"`
			LandingRoute string `json:"landing_route"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "dealer", envelope.Data.Role)
	assert.Equal(t, "/dealer/dashboard", envelope.Data.LandingRoute)
}
