package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AlunoSync/AlunoSync/app/repository"
	"github.com/AlunoSync/AlunoSync/internal/pkg/middleware"
	"github.com/AlunoSync/AlunoSync/internal/pkg/reconcile"
	"github.com/AlunoSync/AlunoSync/internal/pkg/usercontext"
)

type syncStudentsRequest struct {
	UserID uint `json:"userId"`
}

// HandleSyncStudents triggers the Kiwify sales sync. Session callers are
// always scoped to their own tenant; API key callers may pick a userId in
// the body or sync every tenant. Batch errors are reported inside the
// summary, never as an error status.
func HandleSyncStudents(c *fiber.Ctx) error {
	var scope uint
	if middleware.IsSyncKeyAuth(c) {
		var req syncStudentsRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "Invalid JSON body")
			}
		}
		scope = req.UserID
	} else {
		scope = usercontext.GetUserID(c)
	}

	results, err := GetReconcileService().SyncSales(c.Context(), GetKiwifyClient(), reconcile.SyncOptions{
		UserID: scope,
	})
	if err != nil {
		return internalError(c, err.Error())
	}
	return c.JSON(fiber.Map{"success": true, "results": results})
}

// HandleSyncStatus reports the caller's last sync time and student counts.
func HandleSyncStatus(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	students := repository.GetGlobalFactory().GetStudentRepository()

	lastSync, err := students.LastSyncAt(userID)
	if err != nil {
		return internalError(c, "Failed to load sync status")
	}
	total, err := students.CountByUser(userID, false)
	if err != nil {
		return internalError(c, "Failed to load sync status")
	}
	active, err := students.CountByUser(userID, true)
	if err != nil {
		return internalError(c, "Failed to load sync status")
	}

	return c.JSON(fiber.Map{
		"last_sync_at":    lastSync,
		"total_students":  total,
		"active_students": active,
	})
}
