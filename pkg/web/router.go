package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// NewApp assembles the fiber application with all fluxion routes mounted.
func NewApp(handlers *APIHandlers) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Fluxion API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/publish", handlers.PublishWorkflow)

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Post("/", handlers.SubmitExecution)
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/pause", handlers.PauseExecution)
	e.Post("/:id/resume", handlers.ResumeExecution)
	e.Post("/:id/stop", handlers.StopExecution)

	app.Get("/node-types", handlers.GetNodeTypes)
	app.Get("/health", handlers.HealthCheck)

	return app
}
