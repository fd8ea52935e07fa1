package middleware

import (
	"fmt"
	"strings"

	"flow-pantry-system/models"
	"flow-pantry-system/services"
	"flow-pantry-system/utils"
	"flow-pantry-system/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	sessionKey = "session"
	userIDKey  = "user_id"
)

// identityClaims is the token shape issued by the identity provider.
type identityClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// SessionMiddleware opens a session for every request and resolves who is calling.
// A Bearer token signed with secret wins; otherwise the gateway's X-User-ID and
// X-User-Email headers are trusted; otherwise the caller is anonymous.
func SessionMiddleware(hub *services.SessionHub, secret string, log *zap.Logger) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		session := hub.NewSession()
		c.Locals(sessionKey, session)

		identity, found, credErr := callerIdentity(c, key)
		if !found {
			if err := session.MarkAnonymous(ctx); err != nil {
				return err
			}
			return c.Next()
		}

		if err := session.BeginAuthentication(ctx); err != nil {
			return err
		}
		if credErr != nil {
			log.Debug("🚫 [SESSION] rejected credentials", zap.String("path", c.Path()), zap.Error(credErr))
			if err := session.MarkAnonymous(ctx); err != nil {
				return err
			}
			return c.Next()
		}
		if err := session.Authenticate(ctx, identity); err != nil {
			return err
		}
		c.Locals(userIDKey, identity.UID)
		return c.Next()
	}
}

// callerIdentity reports found when the request carries credentials of any kind.
// Credentials that do not name both a subject and an email are rejected, since
// the user document cannot be created without them.
func callerIdentity(c *fiber.Ctx, key []byte) (models.Identity, bool, error) {
	identity, found, err := rawIdentity(c, key)
	if !found || err != nil {
		return identity, found, err
	}
	if err := validation.Identity(identity); err != nil {
		return models.Identity{}, true, err
	}
	return identity, true, nil
}

func rawIdentity(c *fiber.Ctx, key []byte) (models.Identity, bool, error) {
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return models.Identity{}, true, fmt.Errorf("authorization header is not a bearer token")
		}
		identity, err := parseToken(strings.TrimSpace(raw), key)
		return identity, true, err
	}

	if uid := strings.TrimSpace(c.Get("X-User-ID")); uid != "" {
		return models.Identity{
			UID:         uid,
			Email:       strings.TrimSpace(c.Get("X-User-Email")),
			DisplayName: strings.TrimSpace(c.Get("X-User-Name")),
		}, true, nil
	}
	return models.Identity{}, false, nil
}

func parseToken(raw string, key []byte) (models.Identity, error) {
	if len(key) == 0 {
		return models.Identity{}, fmt.Errorf("token auth is not configured")
	}
	var claims identityClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return models.Identity{}, fmt.Errorf("invalid token claims")
	}
	return models.Identity{
		UID:         claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
	}, nil
}

// RequireAuth rejects requests whose session is not authenticated.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentIdentity(c); !ok {
			return utils.ErrorResponse(c, "sign in required", fiber.StatusUnauthorized, "unauthenticated")
		}
		return c.Next()
	}
}

func CurrentSession(c *fiber.Ctx) *services.Session {
	s, _ := c.Locals(sessionKey).(*services.Session)
	return s
}

func CurrentIdentity(c *fiber.Ctx) (models.Identity, bool) {
	s := CurrentSession(c)
	if s == nil {
		return models.Identity{}, false
	}
	return s.Identity()
}

// UserID is the authenticated caller's id, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
