package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/app/repository"
	"github.com/AlunoSync/AlunoSync/internal/pkg/usercontext"
)

// HandleListStudents returns the caller's students, optionally filtered by
// ?platform=kiwify|hotmart.
func HandleListStudents(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	platformFilter := c.Query("platform")

	students, err := repository.GetGlobalFactory().GetStudentRepository().ListByUser(userID, platformFilter)
	if err != nil {
		return internalError(c, "Failed to load students")
	}
	return c.JSON(fiber.Map{"students": students, "total": len(students)})
}

// HandleListHotmartStudents returns the caller's Hotmart students.
func HandleListHotmartStudents(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	students, err := repository.GetGlobalFactory().GetStudentRepository().ListByUser(userID, models.PlatformHotmart)
	if err != nil {
		return internalError(c, "Failed to load students")
	}
	return c.JSON(fiber.Map{"students": students, "total": len(students)})
}
