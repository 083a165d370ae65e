package api

import (
	"log/slog"
	"net/http"

	"github.com/trellis-kanban/trellis-api/internal/api/shared"
	"github.com/trellis-kanban/trellis-api/internal/domain"
	"github.com/trellis-kanban/trellis-api/internal/service"
)

// MemberHandler handles board membership HTTP requests.
type MemberHandler struct {
	memberService *service.MemberService
	logger        *slog.Logger
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(memberService *service.MemberService, logger *slog.Logger) *MemberHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for MemberHandler")
	}

	return &MemberHandler{
		memberService: memberService,
		logger:        logger.With(slog.String("component", "member_handler")),
	}
}

// ListMembers handles GET /api/boards/{boardID}/members requests.
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := pathUUID(w, r, "boardID")
	if !ok {
		return
	}

	members, err := h.memberService.ListMembers(r.Context(), userID, boardID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, members)
}

// AddMember handles POST /api/boards/{boardID}/members requests.
func (h *MemberHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := pathUUID(w, r, "boardID")
	if !ok {
		return
	}

	var req AddMemberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid role")
		return
	}

	if err := h.memberService.AddMember(r.Context(), userID, boardID, req.UserID, role); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// RemoveMember handles DELETE /api/boards/{boardID}/members/{userID}
// requests. Members may remove themselves; removals that would leave the
// board without an admin are rejected.
func (h *MemberHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := pathUUID(w, r, "boardID")
	if !ok {
		return
	}
	targetID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.memberService.RemoveMember(r.Context(), callerID, boardID, targetID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateMemberRole handles PATCH /api/boards/{boardID}/members/{userID}
// requests. Demoting the board's only admin is rejected.
func (h *MemberHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	boardID, ok := pathUUID(w, r, "boardID")
	if !ok {
		return
	}
	targetID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	var req UpdateMemberRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid role")
		return
	}

	if err := h.memberService.UpdateMemberRole(r.Context(), callerID, boardID, targetID, role); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
