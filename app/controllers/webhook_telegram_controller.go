package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/AlunoSync/AlunoSync/internal/pkg/env"
	"github.com/AlunoSync/AlunoSync/internal/pkg/telegram"
)

// HandleTelegramWebhook processes bot updates: member joins bind pending
// students, member leaves mark them removed. Always answers 200 so Telegram
// does not retry forever.
func HandleTelegramWebhook(c *fiber.Ctx) error {
	var update telegram.Update
	if err := c.BodyParser(&update); err != nil {
		return badRequest(c, "Invalid update payload")
	}

	if err := GetReconcileService().HandleTelegramUpdate(c.Context(), update); err != nil {
		log.Errorf("[Telegram] Update %d failed: %v", update.UpdateID, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleTelegramWebhookAdmin manages the webhook registration itself via
// ?action=setup|info|delete.
func HandleTelegramWebhookAdmin(c *fiber.Ctx) error {
	gw := GetTelegramGateway()

	switch c.Query("action") {
	case "setup":
		base := env.GetEnv("PUBLIC_DOMAIN", "")
		if base == "" {
			return badRequest(c, "PUBLIC_DOMAIN is not configured")
		}
		webhookURL := base + "/api/telegram/webhook"
		if err := gw.SetWebhook(c.Context(), webhookURL); err != nil {
			return internalError(c, err.Error())
		}
		return c.JSON(fiber.Map{"success": true, "webhook_url": webhookURL})
	case "info":
		info, err := gw.WebhookInfo(c.Context())
		if err != nil {
			return internalError(c, err.Error())
		}
		bot, err := gw.GetMe(c.Context())
		if err != nil {
			return internalError(c, err.Error())
		}
		return c.JSON(fiber.Map{"bot": bot, "webhook": info})
	case "delete":
		if err := gw.DeleteWebhook(c.Context()); err != nil {
			return internalError(c, err.Error())
		}
		return c.JSON(fiber.Map{"success": true})
	default:
		return badRequest(c, "Unknown action, use setup, info or delete")
	}
}
