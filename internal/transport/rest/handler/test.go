package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"ipasurvey/internal/service"
	"ipasurvey/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TestHandler handles test endpoints for both members and admins
type TestHandler struct {
	testSvc   *service.TestService
	exportSvc *service.ExportService
	logger    *slog.Logger
}

// NewTestHandler creates a new test handler
func NewTestHandler(testSvc *service.TestService, exportSvc *service.ExportService, logger *slog.Logger) *TestHandler {
	return &TestHandler{
		testSvc:   testSvc,
		exportSvc: exportSvc,
		logger:    logger,
	}
}

// Get handles GET /v1/tests/{id}
// @Summary Get a test with its questions
// @Tags tests
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} model.TestWithTemplate
// @Failure 404 {object} map[string]string
// @Router /tests/{id} [get]
func (h *TestHandler) Get(w http.ResponseWriter, r *http.Request) {
	test, err := h.testSvc.GetWithTemplate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

// ListForGroup handles GET /v1/tests/group/{groupId}
// @Summary Tests assigned to a group
// @Tags tests
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {array} model.Test
// @Failure 403 {object} map[string]string
// @Router /tests/group/{groupId} [get]
func (h *TestHandler) ListForGroup(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	tests, err := h.testSvc.ListForGroup(r.Context(), claims, mux.Vars(r)["groupId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

// Create handles POST /v1/admin/tests
// @Summary Create a test from a template
// @Tags tests
// @Accept json
// @Produce json
// @Param body body service.CreateTestInput true "Test"
// @Success 201 {object} model.Test
// @Router /admin/tests [post]
func (h *TestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTestInput
	if !decodeJSON(w, r, &req) {
		return
	}

	test, err := h.testSvc.CreateFromTemplate(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, test)
}

// List handles POST /v1/admin/tests/list
// @Summary Page through tests
// @Tags tests
// @Accept json
// @Produce json
// @Param body body service.ListTestsInput false "Paging and search"
// @Success 200 {object} model.TestPage
// @Router /admin/tests/list [post]
func (h *TestHandler) List(w http.ResponseWriter, r *http.Request) {
	var req service.ListTestsInput
	if !decodeJSON(w, r, &req) {
		return
	}

	page, err := h.testSvc.List(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Update handles PATCH /v1/admin/tests/{id}
func (h *TestHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateTestInput
	if !decodeJSON(w, r, &req) {
		return
	}

	test, err := h.testSvc.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

// Delete handles DELETE /v1/admin/tests/{id}/group/{groupId}
func (h *TestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.testSvc.Delete(r.Context(), vars["id"], vars["groupId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /v1/admin/tests/{id}/export.xlsx
// @Summary Export responses as a spreadsheet
// @Tags tests
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Test ID"
// @Success 200 {file} binary
// @Router /admin/tests/{id}/export.xlsx [get]
func (h *TestHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// buffered so a failure can still produce a JSON error
	var buf bytes.Buffer
	if err := h.exportSvc.ResponsesXLSX(r.Context(), id, &buf); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="test-%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("export write failed", "testId", id, "error", err)
	}
}
