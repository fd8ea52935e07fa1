package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flow-pantry-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret string, claims identityClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(sub string) identityClaims {
	return identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email:   sub + "@example.com",
		Name:    "Player " + sub,
		Picture: "https://img.example.com/" + sub,
	}
}

func setupSessionApp(t *testing.T, hub *services.SessionHub) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(SessionMiddleware(hub, testSecret, zaptest.NewLogger(t)))
	app.Get("/whoami", RequireAuth(), func(c *fiber.Ctx) error {
		id, _ := CurrentIdentity(c)
		return c.SendString(UserID(c) + "|" + id.Email + "|" + id.PhotoURL)
	})
	app.Get("/state", func(c *fiber.Ctx) error {
		return c.SendString(CurrentSession(c).State().String())
	})
	return app
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestSessionFromBearerToken(t *testing.T) {
	hub := services.NewSessionHub()
	var transitions []services.Transition
	hub.Subscribe(func(_ context.Context, tr services.Transition) { transitions = append(transitions, tr) })
	app := setupSessionApp(t, hub)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims("abc")))
	status, body := send(t, app, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "abc|abc@example.com|https://img.example.com/abc", body)

	require.Len(t, transitions, 2)
	assert.Equal(t, services.SessionAuthenticating, transitions[0].To)
	assert.Equal(t, services.SessionAuthenticated, transitions[1].To)
}

func TestSessionRejectsBadTokens(t *testing.T) {
	app := setupSessionApp(t, services.NewSessionHub())

	expired := validClaims("abc")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("abc")).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"wrong secret": "Bearer " + signToken(t, "some-other-secret-some-other-secret", validClaims("abc")),
		"expired":      "Bearer " + signToken(t, testSecret, expired),
		"no subject":   "Bearer " + signToken(t, testSecret, validClaims("")),
		"alg none":     "Bearer " + noneToken,
		"not bearer":   "Basic dXNlcjpwYXNz",
	} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", header)
		status, _ := send(t, app, req)
		assert.Equal(t, fiber.StatusUnauthorized, status, name)

		req = httptest.NewRequest(http.MethodGet, "/state", nil)
		req.Header.Set("Authorization", header)
		_, state := send(t, app, req)
		assert.Equal(t, "anonymous", state, name)
	}
}

func TestSessionFromGatewayHeaders(t *testing.T) {
	app := setupSessionApp(t, services.NewSessionHub())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "gw-user")
	req.Header.Set("X-User-Email", "gw@example.com")
	status, body := send(t, app, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "gw-user|gw@example.com|", body)

	status, _ = send(t, app, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestSessionRequiresEmail(t *testing.T) {
	hub := services.NewSessionHub()
	var transitions []services.Transition
	hub.Subscribe(func(_ context.Context, tr services.Transition) { transitions = append(transitions, tr) })
	app := setupSessionApp(t, hub)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "gw-user")
	status, _ := send(t, app, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	noEmail := validClaims("abc")
	noEmail.Email = ""
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, noEmail))
	status, _ = send(t, app, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	for _, tr := range transitions {
		assert.NotEqual(t, services.SessionAuthenticated, tr.To)
	}
}

func TestGatewayAuthMiddleware(t *testing.T) {
	log := zaptest.NewLogger(t)
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }

	open := fiber.New()
	open.Use(GatewayAuthMiddleware("", log))
	open.Get("/", ok)
	status, _ := send(t, open, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, fiber.StatusOK, status)

	locked := fiber.New()
	locked.Use(GatewayAuthMiddleware("s3cret", log))
	locked.Get("/", ok)

	status, _ = send(t, locked, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Service-Token", "guess")
	status, _ = send(t, locked, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Service-Token", "s3cret")
	status, body := send(t, locked, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body)
}
