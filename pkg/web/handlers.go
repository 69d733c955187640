// Package web provides the REST surface for workflow management and
// execution control.
package web

import (
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/fluxion-dev/fluxion/pkg/models"
	"github.com/fluxion-dev/fluxion/pkg/orchestrator"
	"github.com/fluxion-dev/fluxion/pkg/persistence"
	"github.com/fluxion-dev/fluxion/pkg/registry"
)

type APIHandlers struct {
	orchestrator *orchestrator.Orchestrator
	persistence  persistence.Persistence
	registry     *registry.Registry
	validator    *validator.Validate
}

func NewAPIHandlers(
	orch *orchestrator.Orchestrator,
	persistence persistence.Persistence,
	registry *registry.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		orchestrator: orch,
		persistence:  persistence,
		registry:     registry,
		validator:    validator,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.WorkflowRepository().Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "workflow id is required")
	}

	workflow, err := h.persistence.WorkflowRepository().WorkflowByID(c.Context(), id)
	if err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := req.Graph.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Status:      models.WorkflowStatusDraft,
		Graph:       req.Graph,
		Variables:   req.Variables,
		Owner:       req.Owner,
	}

	if err := h.persistence.WorkflowRepository().SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "workflow id is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.WorkflowRepository().WorkflowByID(c.Context(), id)
	if err != nil {
		return handleOrchestratorError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Graph != nil {
		if err := req.Graph.Validate(); err != nil {
			return badRequest(c, err.Error())
		}

		existing.Graph = req.Graph
	}

	if req.Variables != nil {
		existing.Variables = req.Variables
	}

	if err := h.persistence.WorkflowRepository().SaveWorkflow(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "workflow id is required")
	}

	if err := h.persistence.WorkflowRepository().DeleteWorkflow(c.Context(), id); err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PublishWorkflow moves a draft workflow into the published, executable state.
// Graph and node-config validation happens here so an unexecutable graph never
// becomes published.
func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "workflow id is required")
	}

	workflow, err := h.persistence.WorkflowRepository().WorkflowByID(c.Context(), id)
	if err != nil {
		return handleOrchestratorError(c, err)
	}

	if workflow.Status == models.WorkflowStatusPublished {
		return c.JSON(workflow)
	}

	if err := workflow.Graph.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.registry.ValidateGraph(workflow.Graph); err != nil {
		return badRequest(c, err.Error())
	}

	workflow.Status = models.WorkflowStatusPublished

	if err := h.persistence.WorkflowRepository().SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) SubmitExecution(c fiber.Ctx) error {
	var req SubmitExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	executionID, err := h.orchestrator.SubmitExecution(
		c.Context(), req.WorkflowID, req.Inputs, models.ExecutionPriority(req.Priority))
	if err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(SubmitExecutionResponse{
		ExecutionID: executionID,
		WorkflowID:  req.WorkflowID,
		Status:      string(models.ExecutionStatusPending),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "execution id is required")
	}

	status, err := h.orchestrator.Status(c.Context(), id)
	if err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	statuses, err := h.orchestrator.ListExecutions(c.Context(), c.Query("workflow_id"))
	if err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  statuses,
		"total_count": len(statuses),
	})
}

func (h *APIHandlers) PauseExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "execution id is required")
	}

	if err := h.orchestrator.PauseExecution(c.Context(), id); err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"execution_id": id})
}

func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "execution id is required")
	}

	if err := h.orchestrator.ResumeExecution(c.Context(), id); err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"execution_id": id})
}

func (h *APIHandlers) StopExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "execution id is required")
	}

	var req StopExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	if err := h.orchestrator.StopExecution(c.Context(), id, req.Reason); err != nil {
		return handleOrchestratorError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"execution_id": id})
}

// GetNodeTypes lists the registered node handlers with their config schemas.
func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	keys := h.registry.NodeTypes()
	sort.Strings(keys)

	types := make([]NodeTypeResponse, 0, len(keys))

	for _, k := range keys {
		response := NodeTypeResponse{Type: k}

		category, subtype, ok := strings.Cut(k, "/")
		if ok {
			schema, err := h.registry.Schema(models.NodeCategory(category), subtype)
			if err == nil {
				response.Schema = schema
			}
		}

		types = append(types, response)
	}

	return c.JSON(fiber.Map{"node_types": types})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := fiber.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = fiber.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
