package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nodeloom/nodeloom/internal/version"
)

type HTTPServerDependencies struct {
	ExecutionController *ExecutionController
}

func NewHTTPServer(deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: "nodeloom",
	})

	router.Use(cors.New())
	router.Use(logger.New())
	router.Use(recover.New())

	// Health check endpoint (no authentication required)
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "nodeloom",
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/v1")

	v1.Post("/executions", deps.ExecutionController.StartExecution)
	v1.Get("/nodes", deps.ExecutionController.ListNodes)

	return router
}
