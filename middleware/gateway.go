package middleware

import (
	"crypto/subtle"

	"flow-pantry-system/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GatewayAuthMiddleware requires the X-Service-Token header to equal token.
// An empty token disables the check, for direct local use.
func GatewayAuthMiddleware(token string, log *zap.Logger) fiber.Handler {
	if token == "" {
		log.Warn("⚠️ [GATEWAY_AUTH] SERVICE_TOKEN not set, accepting requests without a gateway token")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	expected := []byte(token)
	return func(c *fiber.Ctx) error {
		got := c.Get("X-Service-Token")
		if got == "" {
			log.Debug("🚫 [GATEWAY_AUTH] missing service token", zap.String("path", c.Path()))
			return utils.ErrorResponse(c, "gateway authentication token missing", fiber.StatusUnauthorized, "gateway")
		}
		if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			log.Warn("❌ [GATEWAY_AUTH] invalid service token", zap.String("path", c.Path()))
			return utils.ErrorResponse(c, "invalid gateway authentication token", fiber.StatusUnauthorized, "gateway")
		}
		return c.Next()
	}
}
