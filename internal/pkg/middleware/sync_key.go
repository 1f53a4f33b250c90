package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/AlunoSync/AlunoSync/internal/pkg/env"
	"github.com/AlunoSync/AlunoSync/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// KeySyncKeyAuth marks a request authenticated by the shared sync secret
// instead of a user session.
const KeySyncKeyAuth = "SYNC_KEY_AUTH"

// RequireSyncAuth authenticates sync/sweep triggers in one of two modes:
// a logged-in user session (manual dashboard action, scoped to that user) or
// the SYNC_API_KEY shared secret (unattended scheduler, scope chosen by the
// request body). Everything else is rejected before any store access.
func RequireSyncAuth(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Next()
	}

	secret := env.GetEnv("SYNC_API_KEY", "")
	key := extractSyncKey(c)
	if secret != "" && key != "" && subtle.ConstantTimeCompare([]byte(secret), []byte(key)) == 1 {
		c.Locals(KeySyncKeyAuth, true)
		return c.Next()
	}

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": "Provide valid session or API key.",
	})
}

// IsSyncKeyAuth reports whether the request carried the shared sync secret.
func IsSyncKeyAuth(c *fiber.Ctx) bool {
	v, ok := c.Locals(KeySyncKeyAuth).(bool)
	return ok && v
}

func extractSyncKey(c *fiber.Ctx) string {
	if key := strings.TrimSpace(c.Get("X-API-Key")); key != "" {
		return key
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
