package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AlunoSync/AlunoSync/app/repository"
	"github.com/AlunoSync/AlunoSync/internal/pkg/usercontext"
)

// HandleListKiwifySales returns the caller's ingested sales, newest first,
// paginated via ?page and ?limit.
func HandleListKiwifySales(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	offset, limit := pagination(c)

	saleRepo := repository.GetGlobalFactory().GetSaleRepository()
	sales, err := saleRepo.ListByUser(userID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to load sales")
	}
	total, err := saleRepo.CountByUser(userID)
	if err != nil {
		return internalError(c, "Failed to load sales")
	}

	return c.JSON(fiber.Map{
		"sales": sales,
		"total": total,
		"page":  queryInt(c, "page", 1),
		"limit": limit,
	})
}
