package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketbot/internal/api/http/handlers"
	"github.com/spec-kit/ticketbot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Slack    *handlers.SlackHandler
	Verifier *auth.SlackVerifier
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	slackGroup := app.Group("/slack", cfg.Verifier.Handle)
	slackGroup.Post("/commands", cfg.Slack.Command)
	slackGroup.Post("/interactivity", cfg.Slack.Interactivity)
}
