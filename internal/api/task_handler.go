package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/api/shared"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
	"github.com/phrazzld/kanban-api/internal/service"
)

// TaskHandler serves the task endpoints.
type TaskHandler struct {
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler. It panics if tasks is nil.
func NewTaskHandler(tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if tasks == nil {
		panic("task service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// RegisterRoutes mounts the task and board routes on r.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Post("/tasks", h.CreateTask)
	r.Get("/tasks/{id}", h.GetTask)
	r.Put("/tasks/{id}", h.UpdateTask)
	r.Patch("/tasks/{id}/move", h.MoveTask)
	r.Delete("/tasks/{id}", h.DeleteTask)
	r.Get("/boards/{boardId}/tasks", h.ListBoardTasks)
}

// CreateTask handles POST /api/tasks requests
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextFor(r.Context(), h.logger, "task_handler")

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}
	boardID := uuid.MustParse(req.BoardID) // checked by the anyuuid tag

	res, err := h.tasks.CreateTask(r.Context(), req.Title, boardID, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}
	if respondWithOutcome(w, r, res) {
		return
	}

	w.Header().Set("Location", "/api/tasks/"+res.Value.ID.String())
	shared.RespondWithJSON(w, r, http.StatusCreated, res.Value)
}

// GetTask handles GET /api/tasks/{id} requests
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextFor(r.Context(), h.logger, "task_handler")

	id, ok := pathUUID(w, r, "id", log)
	if !ok {
		return
	}

	res, err := h.tasks.GetTaskByID(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve task")
		return
	}
	if respondWithOutcome(w, r, res) {
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, res.Value)
}

// UpdateTask handles PUT /api/tasks/{id} requests
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextFor(r.Context(), h.logger, "task_handler")

	id, ok := pathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	res, err := h.tasks.UpdateTask(r.Context(), id, req.Title, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}
	if respondWithOutcome(w, r, res) {
		return
	}

	w.WriteHeader(http.StatusOK)
}

// MoveTask handles PATCH /api/tasks/{id}/move requests
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextFor(r.Context(), h.logger, "task_handler")

	id, ok := pathUUID(w, r, "id", log)
	if !ok {
		return
	}
	var req MoveTaskRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	res, err := h.tasks.MoveTask(r.Context(), id, req.NewStatus, *req.NewPosition)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to move task")
		return
	}
	if respondWithOutcome(w, r, res) {
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteTask handles DELETE /api/tasks/{id} requests
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextFor(r.Context(), h.logger, "task_handler")

	id, ok := pathUUID(w, r, "id", log)
	if !ok {
		return
	}

	res, err := h.tasks.DeleteTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	if respondWithOutcome(w, r, res) {
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListBoardTasks handles GET /api/boards/{boardId}/tasks requests. The
// optional status query parameter filters by column.
func (h *TaskHandler) ListBoardTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextFor(r.Context(), h.logger, "task_handler")

	boardID, ok := pathUUID(w, r, "boardId", log)
	if !ok {
		return
	}
	var filter *string
	if status := r.URL.Query().Get("status"); status != "" {
		filter = &status
	}

	res, err := h.tasks.GetTasksByBoard(r.Context(), boardID, filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	if respondWithOutcome(w, r, res) {
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, res.Value)
}
