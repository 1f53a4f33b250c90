package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/app/repository"
	"github.com/AlunoSync/AlunoSync/internal/pkg/usercontext"
)

// HandleListKiwifyProducts returns the caller's registered Kiwify products.
func HandleListKiwifyProducts(c *fiber.Ctx) error {
	return listProducts(c, models.PlatformKiwify)
}

// HandleListHotmartProducts returns the caller's registered Hotmart products.
func HandleListHotmartProducts(c *fiber.Ctx) error {
	return listProducts(c, models.PlatformHotmart)
}

func listProducts(c *fiber.Ctx, platformName string) error {
	userID := usercontext.GetUserID(c)
	products, err := repository.GetGlobalFactory().GetProductRepository().ListByUserAndPlatform(userID, platformName)
	if err != nil {
		return internalError(c, "Failed to load products")
	}
	return c.JSON(fiber.Map{"products": products, "total": len(products)})
}

// HandlePullKiwifyProducts fetches the product catalog from Kiwify and
// upserts it under the caller's account.
func HandlePullKiwifyProducts(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	remote, err := GetKiwifyClient().ListProducts(c.Context())
	if err != nil {
		return internalError(c, err.Error())
	}

	productRepo := repository.GetGlobalFactory().GetProductRepository()
	now := time.Now().UTC()
	upserted := 0
	for _, rp := range remote {
		status := models.ProductStatusActive
		if rp.Status != "" && rp.Status != "active" {
			status = models.ProductStatusInactive
		}
		p := &models.Product{
			UserID:      userID,
			Platform:    models.PlatformKiwify,
			KiwifyID:    rp.ID,
			Name:        rp.Name,
			Description: rp.Description,
			Price:       rp.Price,
			Status:      status,
			ImageURL:    rp.ImageURL,
			LastSyncAt:  &now,
		}
		if err := productRepo.Upsert(p); err != nil {
			log.Errorf("[Products] Upserting kiwify product %s failed: %v", rp.ID, err)
			continue
		}
		upserted++
	}

	return c.JSON(fiber.Map{"success": true, "fetched": len(remote), "upserted": upserted})
}

// HandleListKiwifyParticipants fetches event-ticket participants for one of
// the caller's Kiwify products straight from the platform.
func HandleListKiwifyParticipants(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	productID, err := c.ParamsInt("id")
	if err != nil || productID < 1 {
		return badRequest(c, "Invalid product id")
	}

	product, err := repository.GetGlobalFactory().GetProductRepository().GetByID(uint(productID))
	if err != nil {
		return internalError(c, "Failed to load product")
	}
	if product == nil || product.UserID != userID || product.Platform != models.PlatformKiwify {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Product not found")
	}

	participants, err := GetKiwifyClient().ListParticipants(c.Context(), product.KiwifyID)
	if err != nil {
		return internalError(c, err.Error())
	}
	return c.JSON(fiber.Map{"participants": participants, "total": len(participants)})
}

// HandlePullHotmartProducts fetches the product catalog from Hotmart and
// upserts it under the caller's account.
func HandlePullHotmartProducts(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	remote, err := GetHotmartClient().ListProducts(c.Context())
	if err != nil {
		return internalError(c, err.Error())
	}

	productRepo := repository.GetGlobalFactory().GetProductRepository()
	now := time.Now().UTC()
	upserted := 0
	for _, rp := range remote {
		status := models.ProductStatusActive
		if rp.Status != "" && rp.Status != "ACTIVE" {
			status = models.ProductStatusInactive
		}
		p := &models.Product{
			UserID:     userID,
			Platform:   models.PlatformHotmart,
			HotmartID:  strconv.FormatInt(rp.ID, 10),
			Name:       rp.Name,
			Status:     status,
			LastSyncAt: &now,
		}
		if err := productRepo.Upsert(p); err != nil {
			log.Errorf("[Products] Upserting hotmart product %d failed: %v", rp.ID, err)
			continue
		}
		upserted++
	}

	return c.JSON(fiber.Map{"success": true, "fetched": len(remote), "upserted": upserted})
}
