package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/nodeloom/nodeloom/internal/dispatch"
	"github.com/nodeloom/nodeloom/pkg/domain"
)

type ExecutionControllerDependencies struct {
	Dispatcher *dispatch.Dispatcher
	Registry   *domain.NodeRegistry
}

type ExecutionController struct {
	dispatcher *dispatch.Dispatcher
	registry   *domain.NodeRegistry
}

func NewExecutionController(deps ExecutionControllerDependencies) *ExecutionController {
	return &ExecutionController{
		dispatcher: deps.Dispatcher,
		registry:   deps.Registry,
	}
}

// StartExecution runs a single node and returns the outcome. Node-level
// failures come back as a 200 with success=false; the status code only
// reports whether the dispatch itself could run.
func (ec *ExecutionController) StartExecution(c *fiber.Ctx) error {
	var req dispatch.ExecutionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.NodeID == "" || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "node_id and user_id are required",
		})
	}

	result, err := ec.dispatcher.Dispatch(c.UserContext(), req)
	if err != nil {
		log.Error().Err(err).Str("node_id", req.NodeID).Msg("Dispatch failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "execution could not be dispatched",
		})
	}

	if result.Failure != nil && result.Failure.Kind == domain.FailureKind_UnknownNode {
		return c.Status(fiber.StatusNotFound).JSON(result)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// ListNodes serves the catalogue the editor renders its palette from. The
// execute functions are excluded from the payload by their json tags.
func (ec *ExecutionController) ListNodes(c *fiber.Ctx) error {
	definitions := ec.registry.All()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"nodes": definitions,
		"count": len(definitions),
	})
}
