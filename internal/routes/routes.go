package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vidasmart/coach-backend/internal/config"
	"github.com/vidasmart/coach-backend/internal/handlers"
	"github.com/vidasmart/coach-backend/internal/middleware"
	"github.com/vidasmart/coach-backend/internal/services"
	"github.com/vidasmart/coach-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	app *fiber.App,
	cfg *config.Config,
	store storage.Store,
	conversation *services.ConversationService,
	emergency *services.EmergencyService,
) {
	webhookHandler := handlers.NewWebhookHandler(store, conversation, emergency)
	chatHandler := handlers.NewChatHandler(store, conversation)

	cors := middleware.CORS(cfg.AllowedOrigins, cfg.PrimaryOrigin)

	// Gateway webhook. CORS answers the preflight before auth so OPTIONS
	// never needs the apikey header; every other verb goes through the
	// shared-secret check first.
	app.All("/webhook/evolution",
		cors,
		middleware.RequireWebhookSecret(cfg.WebhookSecret),
		webhookHandler.HandleEvolutionWebhook,
	)

	// Direct coach chat, used by the web client and internal automations.
	app.All("/chat",
		cors,
		middleware.MarkInternalCaller(cfg.InternalSecret),
		chatHandler.HandleChat,
	)
}
