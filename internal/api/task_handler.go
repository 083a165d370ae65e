package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/trellis-kanban/trellis-api/internal/api/shared"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/platform/logger"
	"github.com/trellis-kanban/trellis-api/internal/service"
)

// TaskHandler handles task HTTP requests.
type TaskHandler struct {
	taskService *service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /api/boards/{boardID}/tasks requests. The task is
// appended at the end of the target column.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := pathUUID(w, r, "boardID")
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	priority := domain.PriorityMedium
	if req.Priority != "" {
		priority = domain.Priority(req.Priority)
	}

	task, err := h.taskService.CreateTask(r.Context(), userID, service.CreateTaskCommand{
		BoardID:  boardID,
		ColumnID: req.ColumnID,
		Title:    req.Title,
		Priority: priority,
		StatusID: req.StatusID,
		TypeID:   req.TypeID,
		DueDate:  req.DueDate,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

// MoveTask handles POST /api/tasks/{taskID}/move requests. The index is the
// task's target slot among the destination column's active tasks; moving a
// task to the slot it already occupies succeeds without changing anything.
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "taskID")
	if !ok {
		return
	}

	var req MoveTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.taskService.MoveTask(r.Context(), userID, service.MoveTaskCommand{
		TaskID:         taskID,
		TargetColumnID: req.ColumnID,
		TargetIndex:    req.Index,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Debug("task moved",
		slog.String("task_id", taskID.String()),
		slog.String("column_id", req.ColumnID.String()),
		slog.Int("index", req.Index))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateTask handles PATCH /api/tasks/{taskID} requests.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "taskID")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var priority *domain.Priority
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		priority = &p
	}

	task, err := h.taskService.UpdateTask(r.Context(), userID, service.UpdateTaskCommand{
		TaskID:   taskID,
		Title:    req.Title,
		Priority: priority,
		DueDate:  req.DueDate,
		ClearDue: req.ClearDueDate,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// AssignTask handles PUT /api/tasks/{taskID}/assignee requests. A null
// assignee_id clears the assignment.
func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "taskID")
	if !ok {
		return
	}

	var req AssignTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.taskService.AssignTask(r.Context(), userID, taskID, req.AssigneeID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ArchiveTask handles POST /api/tasks/{taskID}/archive requests. The task
// leaves its column's ordering; tasks behind it close ranks.
func (h *TaskHandler) ArchiveTask(w http.ResponseWriter, r *http.Request) {
	h.retire(w, r, h.taskService.ArchiveTask)
}

// UnarchiveTask handles POST /api/tasks/{taskID}/unarchive requests. The
// task re-enters at the end of its column.
func (h *TaskHandler) UnarchiveTask(w http.ResponseWriter, r *http.Request) {
	h.retire(w, r, h.taskService.UnarchiveTask)
}

// DeleteTask handles DELETE /api/tasks/{taskID} requests.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	h.retire(w, r, h.taskService.DeleteTask)
}

func (h *TaskHandler) retire(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, callerID, taskID uuid.UUID) error,
) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "taskID")
	if !ok {
		return
	}

	if err := op(r.Context(), userID, taskID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
