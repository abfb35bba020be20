package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-classroom/internal/config"
	"github.com/noah-isme/gema-classroom/internal/handler"
	"github.com/noah-isme/gema-classroom/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ViewHandler       *handler.ViewHandler
	SubmissionHandler *handler.SubmissionHandler
	QuizHandler       *handler.QuizHandler
	EditorHandler     *handler.EditorHandler
	SessionMiddleware fiber.Handler
	SubmitRateLimit   fiber.Handler
	AnswerRateLimit   fiber.Handler
	StorePinger       handler.StorePinger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.StorePinger))

	app.Get("/metrics", observability.MetricsHandler())

	sessionMiddleware := deps.SessionMiddleware
	if sessionMiddleware == nil {
		sessionMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	classroom := app.Group("/api/v2/classroom", sessionMiddleware)

	if deps.ViewHandler != nil {
		deps.ViewHandler.Register(classroom)
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(classroom, deps.SubmitRateLimit)
	}
	if deps.QuizHandler != nil {
		deps.QuizHandler.Register(classroom, deps.AnswerRateLimit)
	}
	if deps.EditorHandler != nil {
		deps.EditorHandler.Register(classroom)
	}
}
