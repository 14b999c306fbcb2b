package handler

import (
	"log/slog"
	"net/http"

	"ipasurvey/internal/service"
	"ipasurvey/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// TemplateHandler handles admin template endpoints
type TemplateHandler struct {
	templateSvc *service.TemplateService
	logger      *slog.Logger
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateSvc *service.TemplateService, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{templateSvc: templateSvc, logger: logger}
}

// Create handles POST /v1/admin/templates
// @Summary Create a template
// @Tags templates
// @Accept json
// @Produce json
// @Param body body service.CreateTemplateInput true "Template"
// @Success 201 {object} model.Template
// @Router /admin/templates [post]
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTemplateInput
	if !decodeJSON(w, r, &req) {
		return
	}

	tpl, err := h.templateSvc.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

// List handles GET /v1/admin/templates
// @Summary List templates
// @Tags templates
// @Produce json
// @Success 200 {array} model.Template
// @Router /admin/templates [get]
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templateSvc.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// Get handles GET /v1/admin/templates/{id}
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.templateSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// Update handles PATCH /v1/admin/templates/{id}
// @Summary Update template metadata
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param body body service.UpdateTemplateInput true "Changes"
// @Success 200 {object} model.Template
// @Router /admin/templates/{id} [patch]
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateTemplateInput
	if !decodeJSON(w, r, &req) {
		return
	}

	tpl, err := h.templateSvc.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// Delete handles DELETE /v1/admin/templates/{id}
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.templateSvc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddQuestion handles POST /v1/admin/templates/{id}/questions
// @Summary Add a closed question
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param body body service.QuestionInput true "Question"
// @Success 201 {object} model.ClosedQuestion
// @Router /admin/templates/{id}/questions [post]
func (h *TemplateHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	var req service.QuestionInput
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := h.templateSvc.AddQuestion(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// UpdateQuestion handles PUT /v1/admin/questions/{questionId}.
// Changing the type reclassifies answers already submitted.
func (h *TemplateHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req service.QuestionInput
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := h.templateSvc.UpdateQuestion(r.Context(), mux.Vars(r)["questionId"], req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// DeleteQuestion handles DELETE /v1/admin/questions/{questionId}
func (h *TemplateHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.templateSvc.DeleteQuestion(r.Context(), mux.Vars(r)["questionId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
