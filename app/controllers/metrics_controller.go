package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AlunoSync/AlunoSync/internal/pkg/metrics/counter"
)

// HandleGetCounters exposes the accumulated sync and sweep counters.
func HandleGetCounters(c *fiber.Ctx) error {
	snapshot, err := counter.Snapshot()
	if err != nil {
		return internalError(c, "Failed to read counters")
	}
	return c.JSON(fiber.Map{"counters": snapshot})
}
