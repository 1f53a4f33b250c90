package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/AlunoSync/AlunoSync/app/controllers"
	"github.com/AlunoSync/AlunoSync/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{Max: 120}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "AlunoSync API",
		})
	})

	// Session handling
	auth := api.Group("/auth")
	auth.Post("/register", controllers.HandleAuthRegister)
	auth.Post("/login", controllers.HandleAuthLogin)
	auth.Post("/logout", controllers.HandleAuthLogout)

	// Inbound platform webhooks, authenticated by obscurity of the bot
	// token / webhook URL, not by session.
	api.Post("/kiwify/webhook", controllers.HandleKiwifyWebhook)
	api.Post("/telegram/webhook", controllers.HandleTelegramWebhook)
	api.Get("/telegram/webhook", middleware.RequireAPISessionAuth, middleware.RequireAdmin, controllers.HandleTelegramWebhookAdmin)

	// Reconciliation triggers (session or shared key)
	api.Post("/sync/students", middleware.RequireSyncAuth, controllers.HandleSyncStudents)
	api.Get("/sync/students", middleware.RequireAPISessionAuth, controllers.HandleSyncStatus)
	api.Post("/telegram/sync-group", middleware.RequireSyncAuth, controllers.HandleSyncGroup)
	api.Get("/telegram/sync-group", middleware.RequireAPISessionAuth, controllers.HandleTelegramStatus)

	// External cron entry point, bearer key checked in the handler
	api.Post("/cron/sync-hotmart-students", controllers.HandleCronHotmartSync)

	// Session-scoped reads and catalog pulls
	api.Get("/kiwify/products", middleware.RequireAPISessionAuth, controllers.HandleListKiwifyProducts)
	api.Post("/kiwify/products", middleware.RequireAPISessionAuth, controllers.HandlePullKiwifyProducts)
	api.Get("/kiwify/products/:id/participants", middleware.RequireAPISessionAuth, controllers.HandleListKiwifyParticipants)
	api.Get("/hotmart/products", middleware.RequireAPISessionAuth, controllers.HandleListHotmartProducts)
	api.Post("/hotmart/products", middleware.RequireAPISessionAuth, controllers.HandlePullHotmartProducts)
	api.Get("/kiwify/sales", middleware.RequireAPISessionAuth, controllers.HandleListKiwifySales)
	api.Get("/students", middleware.RequireAPISessionAuth, controllers.HandleListStudents)
	api.Get("/hotmart/students", middleware.RequireAPISessionAuth, controllers.HandleListHotmartStudents)

	// Operational counters
	api.Get("/metrics/counters", middleware.RequireAPISessionAuth, middleware.RequireAdmin, controllers.HandleGetCounters)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
