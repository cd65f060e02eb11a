package server

import (
	"time"

	"github.com/angelsbailbonds/opsflow/internal/auth"
	"github.com/angelsbailbonds/opsflow/internal/controllers"
	"github.com/angelsbailbonds/opsflow/internal/middlewares"
	"github.com/angelsbailbonds/opsflow/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/rs/zerolog/log"
)

const serviceName = "opsflow-webhooks"

type HTTPServerDependencies struct {
	WebhookController *controllers.WebhookController
	// APIVerifier guards /webhooks/session-progress. Without it the route
	// is not registered.
	APIVerifier *auth.APISignatureVerifier
	// ClickUpVerifier guards /webhooks/clickup. Without it deliveries are
	// accepted unverified.
	ClickUpVerifier *auth.ClickUpVerifier
}

func NewHTTPServer(deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: serviceName,
	})

	router.Use(cors.New())
	router.Use(logger.New())

	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   serviceName,
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	webhooks := router.Group("/webhooks")

	if deps.ClickUpVerifier != nil {
		webhooks.Post("/clickup", middlewares.ClickUpSignatureMiddleware(deps.ClickUpVerifier), deps.WebhookController.HandleClickUpEvent)
	} else {
		log.Warn().Msg("CLICKUP_WEBHOOK_SECRET is not set, ClickUp webhooks are accepted without signature verification")
		webhooks.Post("/clickup", deps.WebhookController.HandleClickUpEvent)
	}

	if deps.APIVerifier != nil {
		webhooks.Post("/session-progress", middlewares.APISignatureMiddleware(deps.APIVerifier), deps.WebhookController.HandleSessionProgress)
	} else {
		log.Warn().Msg("WEBHOOK_SECRET is not set, /webhooks/session-progress is disabled")
	}

	return router
}
