package controllers

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/AlunoSync/AlunoSync/internal/pkg/env"
)

type cronHotmartRequest struct {
	UserID uint `json:"userId"`
}

// HandleCronHotmartSync pulls Hotmart subscriptions for one or all tenants.
// Meant for external cron callers, so it only accepts the shared key as a
// Bearer token.
func HandleCronHotmartSync(c *fiber.Ctx) error {
	secret := env.GetEnv("SYNC_API_KEY", "")
	auth := strings.TrimSpace(c.Get("Authorization"))
	token := ""
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		token = strings.TrimSpace(auth[7:])
	}
	if secret == "" || token == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(token)) != 1 {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid or missing bearer token")
	}

	var req cronHotmartRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid JSON body")
		}
	}

	results, err := GetReconcileService().SyncHotmartStudents(c.Context(), GetHotmartClient(), req.UserID)
	if err != nil {
		return internalError(c, err.Error())
	}
	return c.JSON(fiber.Map{"success": true, "results": results})
}
