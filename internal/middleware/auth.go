package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/krpetrov/svyaz/internal/auth"
)

// ClaimsKey is the fiber.Ctx Locals key under which verified claims are stored.
const ClaimsKey = "claims"

const bearerPrefix = "Bearer "

// RequireAuth returns fiber middleware that enforces a valid Bearer token
// and stores the verified claims in the request locals.
func RequireAuth(jwtMgr *auth.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		if !strings.HasPrefix(header, bearerPrefix) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization header"})
		}
		token := strings.TrimSpace(header[len(bearerPrefix):])
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		claims, err := jwtMgr.VerifyToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated"})
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// ClaimsFromCtx extracts claims previously stored by RequireAuth.
func ClaimsFromCtx(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(ClaimsKey).(*auth.Claims)
	return claims, ok
}
