// Package httpapi exposes the deployment workflow's two-operation
// invocation contract over HTTP: create(params) → {id, details: {status}}
// and get(id) → {status}. Errors are dispatched to HTTP status codes via
// WithError, type-switching on this repo's apperr taxonomy.
package httpapi

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/libra-dev/deploy-engine/internal/apperr"
	"github.com/libra-dev/deploy-engine/internal/domain"
	"github.com/libra-dev/deploy-engine/internal/logging"
)

// Workflow is the subset of *workflow.Workflow this package depends on,
// kept narrow so handlers are easy to test against a fake.
type Workflow interface {
	RunAsync(ctx context.Context, workflowID string, params domain.DeploymentParams) string
	Get(workflowID string) (domain.WorkflowInstance, []domain.StepStatus, bool)
}

// Handler wires the invocation contract's routes against a Workflow.
type Handler struct {
	workflow Workflow
}

// NewHandler builds a Handler.
func NewHandler(workflow Workflow) *Handler {
	return &Handler{workflow: workflow}
}

// Register mounts the invocation contract's routes on app.
func (h *Handler) Register(app *fiber.App) {
	app.Post("/v1/deployments", h.create)
	app.Get("/v1/deployments/:id", h.get)
}

type createRequest struct {
	ProjectID      string `json:"projectId"`
	OrganizationID string `json:"orgId"`
	UserID         string `json:"userId"`
	CustomDomain   *string `json:"customDomain,omitempty"`

	// InitFiles and HistoryMessages are accepted for wire-contract
	// compatibility but never trusted: the workflow re-derives both
	// server-side, so they are parsed here only to reject malformed JSON
	// consistently, then discarded.
	InitFiles       []domain.FileTreeNode   `json:"initFiles,omitempty"`
	HistoryMessages []domain.HistoryMessage `json:"historyMessages,omitempty"`
}

type createResponse struct {
	ID      string         `json:"id"`
	Details statusResponse `json:"details"`
}

type statusResponse struct {
	Status domain.WorkflowStatus `json:"status"`
	Steps  []stepResponse        `json:"steps,omitempty"`
}

type stepResponse struct {
	Name      string `json:"name"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) create(c *fiber.Ctx) error {
	var req createRequest

	if err := c.BodyParser(&req); err != nil {
		return WithError(c, apperr.ValidationError{
			EntityType: "deploymentParams",
			Code:       "INVALID_BODY",
			Message:    "request body is not valid JSON",
			Err:        err,
		})
	}

	if req.ProjectID == "" || req.OrganizationID == "" || req.UserID == "" {
		return WithError(c, apperr.ValidationError{
			EntityType: "deploymentParams",
			Code:       "MISSING_FIELDS",
			Message:    "projectId, orgId, and userId are required",
		})
	}

	params := domain.DeploymentParams{
		ProjectID:      req.ProjectID,
		OrganizationID: req.OrganizationID,
		UserID:         req.UserID,
		CustomDomain:   req.CustomDomain,
	}

	id := h.workflow.RunAsync(c.Context(), "", params)

	return c.Status(fiber.StatusAccepted).JSON(createResponse{
		ID:      id,
		Details: statusResponse{Status: domain.WorkflowRunning},
	})
}

func (h *Handler) get(c *fiber.Ctx) error {
	id := c.Params("id")

	instance, steps, ok := h.workflow.Get(id)
	if !ok {
		return WithError(c, apperr.NotFoundError{
			EntityType: "workflow",
			Code:       "WORKFLOW_NOT_FOUND",
			Message:    "no workflow known for this id",
		})
	}

	resp := statusResponse{Status: instance.Status}
	for _, s := range steps {
		step := stepResponse{Name: s.Name, Succeeded: s.Succeeded}
		if !s.Succeeded {
			step.Error = s.ErrorMsg
		}

		resp.Steps = append(resp.Steps, step)
	}

	return c.JSON(resp)
}

// WithError maps a domain error to an HTTP response, type-switching on
// apperr's taxonomy to pick a status code and writing a small JSON error
// envelope.
func WithError(c *fiber.Ctx, err error) error {
	status, code, title := classify(err)

	logging.FromContext(c.Context()).Warnf("httpapi: request failed: %v", err)

	return c.Status(status).JSON(fiber.Map{
		"code":    code,
		"title":   title,
		"message": err.Error(),
	})
}

func classify(err error) (status int, code, title string) {
	var notFound apperr.NotFoundError
	if errors.As(err, &notFound) {
		return fiber.StatusNotFound, notFound.Code, "Not Found"
	}

	var validation apperr.ValidationError
	if errors.As(err, &validation) {
		return fiber.StatusBadRequest, validation.Code, "Validation Error"
	}

	var conflict apperr.ConflictError
	if errors.As(err, &conflict) {
		return fiber.StatusConflict, conflict.Code, "Conflict"
	}

	var unprocessable apperr.UnprocessableError
	if errors.As(err, &unprocessable) {
		return fiber.StatusUnprocessableEntity, unprocessable.Code, "Unprocessable Entity"
	}

	return fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error"
}
