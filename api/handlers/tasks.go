package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/pricescout/types"
)

// TaskService is the orchestrator surface the handler depends on.
type TaskService interface {
	ProcessQuery(ctx context.Context, query string) (*types.TaskResponse, error)
	GetTaskStatus(id string) (*types.TaskResponse, error)
	ActiveTasks() []string
}

// TaskHandler serves task submission and lookup.
type TaskHandler struct {
	service TaskService
	logger  *zap.Logger
}

// NewTaskHandler creates the handler.
func NewTaskHandler(service TaskService, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{service: service, logger: logger.With(zap.String("component", "api.tasks"))}
}

// CreateTaskRequest is the POST /v1/tasks body.
type CreateTaskRequest struct {
	Query string `json:"query"`
}

// Create handles POST /v1/tasks: it runs the query synchronously and
// returns the finished task projection.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "malformed request body", h.logger)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "query must not be empty", h.logger)
		return
	}

	resp, err := h.service.ProcessQuery(r.Context(), req.Query)
	if err != nil {
		WriteError(w, asTypedError(err), h.logger)
		return
	}
	WriteSuccess(w, resp)
}

// Get handles GET /v1/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	resp, err := h.service.GetTaskStatus(id)
	if err != nil {
		WriteError(w, asTypedError(err), h.logger)
		return
	}
	WriteSuccess(w, resp)
}

// List handles GET /v1/tasks and returns the active task ids.
func (h *TaskHandler) List(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, map[string]any{"active": h.service.ActiveTasks()})
}

func asTypedError(err error) *types.Error {
	if typed, ok := err.(*types.Error); ok {
		return typed
	}
	return types.NewError(types.ErrInternalError, err.Error())
}
