package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/orchestrator"
	"github.com/fluxion-dev/fluxion/pkg/persistence"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleOrchestratorError maps orchestration and persistence errors onto
// RFC 7807 responses.
func handleOrchestratorError(c fiber.Ctx, err error) error {
	var graphErr *models.GraphError

	switch {
	case errors.Is(err, persistence.ErrWorkflowNotFound):
		return notFound(c, "workflow not found")

	case errors.Is(err, persistence.ErrExecutionNotFound):
		return notFound(c, "execution not found")

	case errors.Is(err, orchestrator.ErrWorkflowNotExecutable):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("workflow_not_executable").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case errors.Is(err, orchestrator.ErrInvalidTransition):
		return conflict(c, err.Error())

	case errors.Is(err, persistence.ErrTerminalState):
		return conflict(c, err.Error())

	case errors.As(err, &graphErr):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}
