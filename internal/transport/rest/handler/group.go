package handler

import (
	"log/slog"
	"net/http"

	"ipasurvey/internal/service"
	"ipasurvey/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// GroupHandler handles group membership and admin group management
type GroupHandler struct {
	groupSvc *service.GroupService
	logger   *slog.Logger
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupSvc *service.GroupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{groupSvc: groupSvc, logger: logger}
}

// List handles GET /v1/groups
// @Summary List groups
// @Tags groups
// @Produce json
// @Success 200 {array} model.GroupSummary
// @Router /groups [get]
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupSvc.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// Mine handles GET /v1/groups/me
func (h *GroupHandler) Mine(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupSvc.MyGroups(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// Get handles GET /v1/groups/{id}
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.groupSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// Join handles POST /v1/groups/{id}/join
// @Summary Join a group
// @Tags groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} map[string]bool
// @Router /groups/{id}/join [post]
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	joined, err := h.groupSvc.Join(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"joined": joined})
}

// Leave handles POST /v1/groups/{id}/leave
func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	left, err := h.groupSvc.Leave(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"left": left})
}

// Create handles POST /v1/admin/groups
// @Summary Create a group
// @Tags groups
// @Accept json
// @Produce json
// @Param body body service.GroupInput true "Group"
// @Success 201 {object} model.Group
// @Router /admin/groups [post]
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.GroupInput
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupSvc.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// Update handles PUT /v1/admin/groups/{id}
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.GroupInput
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupSvc.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// Delete handles DELETE /v1/admin/groups/{id}
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.groupSvc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignTest handles POST /v1/admin/groups/{id}/tests
func (h *GroupHandler) AssignTest(w http.ResponseWriter, r *http.Request) {
	var req service.AssignTestInput
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.groupSvc.AssignTest(r.Context(), mux.Vars(r)["id"], req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnassignTest handles DELETE /v1/admin/groups/{id}/tests/{testId}
func (h *GroupHandler) UnassignTest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.groupSvc.UnassignTest(r.Context(), vars["id"], vars["testId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
