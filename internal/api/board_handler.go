package api

import (
	"log/slog"
	"net/http"

	"github.com/trellis-kanban/trellis-api/internal/api/shared"
	"github.com/trellis-kanban/trellis-api/internal/platform/logger"
	"github.com/trellis-kanban/trellis-api/internal/service"
)

// BoardHandler handles board and column HTTP requests.
type BoardHandler struct {
	boardService *service.BoardService
	logger       *slog.Logger
}

// NewBoardHandler creates a new BoardHandler.
func NewBoardHandler(boardService *service.BoardService, logger *slog.Logger) *BoardHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for BoardHandler")
	}

	return &BoardHandler{
		boardService: boardService,
		logger:       logger.With(slog.String("component", "board_handler")),
	}
}

// CreateBoard handles POST /api/boards requests.
func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateBoardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	board, err := h.boardService.CreateBoard(r.Context(), userID, req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, board)
}

// GetBoard handles GET /api/boards/{boardID} requests. The response is the
// board plus its active columns in position order.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := pathUUID(w, r, "boardID")
	if !ok {
		return
	}

	view, err := h.boardService.GetBoard(r.Context(), userID, boardID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// UpdateBoard handles PATCH /api/boards/{boardID} requests.
func (h *BoardHandler) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := pathUUID(w, r, "boardID")
	if !ok {
		return
	}

	var req UpdateBoardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	board, err := h.boardService.UpdateBoard(r.Context(), userID, boardID, req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, board)
}

// ArchiveBoard handles POST /api/boards/{boardID}/archive requests.
// Archiving an already archived board is a no-op.
func (h *BoardHandler) ArchiveBoard(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// UnarchiveBoard handles POST /api/boards/{boardID}/unarchive requests.
func (h *BoardHandler) UnarchiveBoard(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *BoardHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := pathUUID(w, r, "boardID")
	if !ok {
		return
	}

	if err := h.boardService.SetBoardArchived(r.Context(), userID, boardID, archived); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateColumn handles POST /api/boards/{boardID}/columns requests. The new
// column is appended after the board's existing columns.
func (h *BoardHandler) CreateColumn(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := pathUUID(w, r, "boardID")
	if !ok {
		return
	}

	var req CreateColumnRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	column, err := h.boardService.CreateColumn(r.Context(), userID, service.CreateColumnCommand{
		BoardID:  boardID,
		Name:     req.Name,
		StatusID: req.StatusID,
		WIPLimit: req.WIPLimit,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, column)
}

// UpdateColumn handles PATCH /api/columns/{columnID} requests.
func (h *BoardHandler) UpdateColumn(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	columnID, ok := pathUUID(w, r, "columnID")
	if !ok {
		return
	}

	var req UpdateColumnRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	column, err := h.boardService.UpdateColumn(r.Context(), userID, service.UpdateColumnCommand{
		ColumnID:      columnID,
		Name:          req.Name,
		WIPLimit:      req.WIPLimit,
		ClearWIPLimit: req.ClearWIPLimit,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, column)
}

// DeleteColumn handles DELETE /api/columns/{columnID} requests. Only empty
// columns can be deleted; the remaining columns close ranks.
func (h *BoardHandler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	columnID, ok := pathUUID(w, r, "columnID")
	if !ok {
		return
	}

	if err := h.boardService.DeleteColumn(r.Context(), userID, columnID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReorderColumns handles PUT /api/boards/{boardID}/columns/positions
// requests. The payload must be a full permutation of the board's active
// columns; partial or conflicting sets are rejected wholesale.
func (h *BoardHandler) ReorderColumns(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := pathUUID(w, r, "boardID")
	if !ok {
		return
	}

	var req ReorderColumnsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	positions := make([]service.ColumnPosition, len(req.Positions))
	for i, p := range req.Positions {
		positions[i] = service.ColumnPosition{ColumnID: p.ColumnID, Position: p.Position}
	}

	err := h.boardService.ReorderColumns(r.Context(), userID, service.ReorderColumnsCommand{
		BoardID:   boardID,
		Positions: positions,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListColumnTasks handles GET /api/columns/{columnID}/tasks requests. Tasks
// come back in position order.
func (h *BoardHandler) ListColumnTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	columnID, ok := pathUUID(w, r, "columnID")
	if !ok {
		return
	}

	tasks, err := h.boardService.ListColumnTasks(r.Context(), userID, columnID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Debug("listed column tasks",
		slog.String("column_id", columnID.String()),
		slog.Int("count", len(tasks)))
	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}
