package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/AlunoSync/AlunoSync/app/models"
	"github.com/AlunoSync/AlunoSync/app/repository"
	"github.com/AlunoSync/AlunoSync/internal/pkg/metrics/counter"
	"github.com/AlunoSync/AlunoSync/internal/pkg/platform"
	"github.com/AlunoSync/AlunoSync/internal/pkg/reconcile"
)

type kiwifyWebhookRequest struct {
	Event string                    `json:"event"`
	Data  reconcile.KiwifySaleEvent `json:"data"`
}

// HandleKiwifyWebhook ingests sale lifecycle events pushed by Kiwify.
// The payload is persisted before processing so retries and duplicate
// deliveries stay idempotent.
func HandleKiwifyWebhook(c *fiber.Ctx) error {
	raw := c.Body()

	var req kiwifyWebhookRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return badRequest(c, "Invalid JSON body")
	}
	if req.Event == "" || req.Data.ID == "" {
		return badRequest(c, "Missing event or data.id")
	}

	if !reconcile.IsHandledKiwifyEvent(req.Event) {
		counter.AddSync(counter.FieldWebhooksIgnored, 1)
		log.Infof("[Webhook] Ignoring kiwify event %s", req.Event)
		return c.JSON(fiber.Map{"success": true, "ignored": true, "event": req.Event})
	}

	eventRepo := repository.GetGlobalFactory().GetWebhookEventRepository()
	created, stored, err := eventRepo.CreateIfNotExists(&models.WebhookEvent{
		Platform:        platform.Kiwify,
		PlatformEventID: req.Event + ":" + req.Data.ID,
		EventType:       req.Event,
		Payload:         raw,
	})
	if err != nil {
		return internalError(c, "Failed to persist webhook event")
	}
	if !created {
		log.Infof("[Webhook] Duplicate kiwify delivery for %s (%s)", req.Data.ID, req.Event)
		return c.JSON(fiber.Map{"success": true, "duplicate": true})
	}

	processingError := ""
	if err := GetReconcileService().HandleSaleEvent(c.Context(), req.Event, req.Data, raw); err != nil {
		processingError = err.Error()
		log.Errorf("[Webhook] Processing kiwify event %s failed: %v", req.Event, err)
	}
	if err := eventRepo.MarkProcessed(stored.ID, processingError); err != nil {
		log.Errorf("[Webhook] Marking event %d processed failed: %v", stored.ID, err)
	}
	counter.AddSync(counter.FieldWebhooksHandled, 1)

	if processingError != "" {
		return internalError(c, processingError)
	}
	return c.JSON(fiber.Map{"success": true, "event": req.Event, "sale_id": req.Data.ID})
}
