package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AlunoSync/AlunoSync/app/repository"
	"github.com/AlunoSync/AlunoSync/internal/pkg/middleware"
	"github.com/AlunoSync/AlunoSync/internal/pkg/usercontext"
)

type syncGroupRequest struct {
	UserID uint `json:"userId"`
}

// HandleSyncGroup runs the Telegram group sweep: members without an active
// entitlement are removed, admins are never touched.
func HandleSyncGroup(c *fiber.Ctx) error {
	var scope uint
	if middleware.IsSyncKeyAuth(c) {
		var req syncGroupRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid JSON body")
			}
		}
		scope = req.UserID
	} else {
		scope = usercontext.GetUserID(c)
	}

	results, err := GetReconcileService().SweepGroup(c.Context(), scope)
	if err != nil {
		return internalError(c, err.Error())
	}
	return c.JSON(fiber.Map{"success": true, "results": results})
}

// HandleTelegramStatus reports how many of the caller's students are in each
// membership state.
func HandleTelegramStatus(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	counts, err := repository.GetGlobalFactory().GetStudentRepository().TelegramStatusCounts(userID)
	if err != nil {
		return internalError(c, "Failed to load telegram status counts")
	}
	return c.JSON(fiber.Map{"counts": counts})
}
