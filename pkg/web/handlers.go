// Package web provides the REST API for workflows, execution logs and
// trigger ingestion.
package web

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/jobdeck/automata/pkg/eventbus"
	"github.com/jobdeck/automata/pkg/events"
	"github.com/jobdeck/automata/pkg/models"
	"github.com/jobdeck/automata/pkg/persistence"
	"github.com/jobdeck/automata/pkg/registry"
)

const defaultExecutionLimit = 50

type APIHandlers struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validator   *validator.Validate
	registry    *registry.Registry
}

func NewAPIHandlers(
	persist persistence.Persistence,
	publisher eventbus.EventPublisher,
	validate *validator.Validate,
	reg *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		persistence: persist,
		publisher:   publisher,
		validator:   validate,
		registry:    reg,
	}
}

// RegisterRoutes mounts every endpoint on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/workflows", h.GetWorkflows)
	app.Post("/workflows", h.SaveWorkflow)
	app.Get("/workflows/:id", h.GetWorkflow)
	app.Post("/workflows/:id/test", h.TestWorkflow)
	app.Get("/workflows/:id/executions", h.GetWorkflowExecutions)
	app.Post("/triggers", h.FireTrigger)
	app.Get("/executions", h.GetExecutions)
	app.Get("/executions/:id", h.GetExecution)
	app.Get("/actions", h.GetActions)
}

func (h *APIHandlers) Health(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	if statusStr := c.Query("status"); statusStr != "" {
		filtered := make([]*models.Workflow, 0, len(workflows))

		for _, workflow := range workflows {
			if workflow.Status == models.WorkflowStatus(statusStr) {
				filtered = append(filtered, workflow)
			}
		}

		workflows = filtered
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.persistence.WorkflowByID(c.Context(), id)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	workflow := &models.Workflow{}

	err := c.Bind().JSON(workflow)
	if err != nil {
		return badRequest(c, "Invalid workflow payload: "+err.Error())
	}

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
		workflow.CreatedAt = time.Now().UTC()
	}

	workflow.UpdatedAt = time.Now().UTC()

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusInactive
	}

	if !workflow.TriggerType.Valid() {
		return badRequest(c, "Unknown trigger type: "+string(workflow.TriggerType))
	}

	err = h.validator.Struct(workflow)
	if err != nil {
		return badRequest(c, "Workflow validation failed: "+err.Error())
	}

	err = h.persistence.SaveWorkflow(c.Context(), workflow)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

type testRunRequest struct {
	TriggerData map[string]any `json:"trigger_data"`
	RequestedBy string         `json:"requested_by"`
}

// TestWorkflow queues a test run: the workflow executes with the supplied
// sample data, conditions bypassed, and the log lands marked as a test.
func (h *APIHandlers) TestWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if _, err := h.persistence.WorkflowByID(c.Context(), id); err != nil {
		return handlePersistenceError(c, err)
	}

	req := testRunRequest{}

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid test run payload: "+err.Error())
	}

	event := events.TestRunRequested{
		BaseEvent:   events.NewBaseEvent(events.TestRunRequestedEvent),
		WorkflowID:  id,
		TriggerData: req.TriggerData,
		RequestedBy: req.RequestedBy,
	}

	err = h.publisher.Publish(c.Context(), id, event)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"workflow_id": id,
		"queued":      true,
	})
}

type fireTriggerRequest struct {
	TriggerType string         `json:"trigger_type" validate:"required"`
	Data        map[string]any `json:"data"`
}

// FireTrigger is the HTTP ingestion path for domain events, used by
// backends that cannot reach the Redis queue.
func (h *APIHandlers) FireTrigger(c fiber.Ctx) error {
	req := fireTriggerRequest{}

	err := c.Bind().JSON(&req)
	if err != nil {
		return badRequest(c, "Invalid trigger payload: "+err.Error())
	}

	err = h.validator.Struct(req)
	if err != nil {
		return badRequest(c, "Trigger validation failed: "+err.Error())
	}

	trigger := models.TriggerType(req.TriggerType)
	if !trigger.Valid() {
		return badRequest(c, "Unknown trigger type: "+req.TriggerType)
	}

	event := events.TriggerFired{
		BaseEvent:   events.NewBaseEvent(events.TriggerFiredEvent),
		TriggerType: trigger,
		TriggerData: req.Data,
	}

	err = h.publisher.Publish(c.Context(), string(trigger), event)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"trigger_type": trigger,
		"queued":       true,
	})
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	filter, err := h.parseExecutionFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	logs, err := h.persistence.Executions(c.Context(), filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  logs,
		"total_count": len(logs),
	})
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	filter, err := h.parseExecutionFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	filter.WorkflowID = id

	logs, err := h.persistence.Executions(c.Context(), filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  logs,
		"total_count": len(logs),
	})
}

func (h *APIHandlers) parseExecutionFilter(c fiber.Ctx) (persistence.ExecutionFilter, error) {
	filter := persistence.ExecutionFilter{
		WorkflowID: c.Query("workflow_id"),
		Limit:      defaultExecutionLimit,
	}

	if statusStr := c.Query("status"); statusStr != "" {
		filter.Status = models.ExecutionStatus(statusStr)
	}

	// Test runs are filtered out of listings unless explicitly requested.
	if includeStr := c.Query("include_tests"); includeStr != "" {
		include, err := strconv.ParseBool(includeStr)
		if err != nil {
			return filter, err
		}

		filter.IncludeTests = include
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return filter, err
		}

		filter.Limit = limit
	}

	return filter, nil
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	log, err := h.persistence.ExecutionByID(c.Context(), id)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(log)
}

type actionInfo struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// GetActions returns the catalog of registered action types, schemas
// included, for the workflow builder UI.
func (h *APIHandlers) GetActions(c fiber.Ctx) error {
	factories := h.registry.ActionFactories()

	catalog := make([]actionInfo, 0, len(factories))

	for _, factory := range factories {
		catalog = append(catalog, actionInfo{
			ID:          factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return c.JSON(fiber.Map{"actions": catalog})
}
