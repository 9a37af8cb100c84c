package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/krpetrov/svyaz/internal/auth"
)

func newAuthTestApp(t *testing.T) (*fiber.App, string) {
	t.Helper()
	mgr := auth.NewJWTManager("test-secret", time.Hour)
	token, _, err := mgr.GenerateToken("u1", "u1@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	app := fiber.New()
	app.Get("/private", RequireAuth(mgr), func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromCtx(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(claims.UserID)
	})
	return app, token
}

func TestRequireAuth(t *testing.T) {
	app, token := newAuthTestApp(t)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid bearer token", "Bearer " + token, fiber.StatusOK},
		{"missing header", "", fiber.StatusUnauthorized},
		{"raw token without scheme", token, fiber.StatusUnauthorized},
		{"scheme glued to token", "Bearer" + token, fiber.StatusUnauthorized},
		{"empty token", "Bearer ", fiber.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", fiber.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}
			resp, err := app.Test(req, 5000)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
		})
	}
}
