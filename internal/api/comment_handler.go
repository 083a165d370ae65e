package api

import (
	"log/slog"
	"net/http"

	"github.com/trellis-kanban/trellis-api/internal/api/shared"
	"github.com/trellis-kanban/trellis-api/internal/service"
)

// CommentHandler handles task comment HTTP requests.
type CommentHandler struct {
	commentService *service.CommentService
	logger         *slog.Logger
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(commentService *service.CommentService, logger *slog.Logger) *CommentHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for CommentHandler")
	}

	return &CommentHandler{
		commentService: commentService,
		logger:         logger.With(slog.String("component", "comment_handler")),
	}
}

// CreateComment handles POST /api/tasks/{taskID}/comments requests.
// Mentions in the body are scanned asynchronously after the comment commits.
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "taskID")
	if !ok {
		return
	}

	var req CreateCommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := h.commentService.CreateComment(r.Context(), userID, taskID, req.Body)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, comment)
}

// ListComments handles GET /api/tasks/{taskID}/comments requests. Comments
// come back oldest first.
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "taskID")
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(r.Context(), userID, taskID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, comments)
}

// UpdateComment handles PATCH /api/comments/{commentID} requests. Only the
// comment's author may edit it.
func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	commentID, ok := pathUUID(w, r, "commentID")
	if !ok {
		return
	}

	var req UpdateCommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := h.commentService.UpdateComment(r.Context(), userID, commentID, req.Body)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, comment)
}

// DeleteComment handles DELETE /api/comments/{commentID} requests. The
// author or a board admin may delete a comment.
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	commentID, ok := pathUUID(w, r, "commentID")
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(r.Context(), userID, commentID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
