package handler

import (
	"log/slog"
	"net/http"

	"ipasurvey/internal/service"
	"ipasurvey/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// AnswerHandler handles submission and result endpoints
type AnswerHandler struct {
	answerSvc *service.AnswerService
	logger    *slog.Logger
}

// NewAnswerHandler creates a new answer handler
func NewAnswerHandler(answerSvc *service.AnswerService, logger *slog.Logger) *AnswerHandler {
	return &AnswerHandler{
		answerSvc: answerSvc,
		logger:    logger,
	}
}

// Submit handles POST /v1/answers/{testId}
// @Summary Submit answers to a test
// @Tags answers
// @Accept json
// @Produce json
// @Param testId path string true "Test ID"
// @Param body body service.SubmitAnswersInput true "Answers"
// @Success 201 {object} model.Response
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /answers/{testId} [post]
func (h *AnswerHandler) Submit(w http.ResponseWriter, r *http.Request) {
	testID := mux.Vars(r)["testId"]
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req service.SubmitAnswersInput
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.answerSvc.Submit(r.Context(), testID, userID, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ListByTest handles GET /v1/answers/test/{testId}
// @Summary List responses to a test
// @Tags answers
// @Produce json
// @Param testId path string true "Test ID"
// @Success 200 {array} model.Response
// @Router /answers/test/{testId} [get]
func (h *AnswerHandler) ListByTest(w http.ResponseWriter, r *http.Request) {
	responses, err := h.answerSvc.ListByTest(r.Context(), mux.Vars(r)["testId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

// ListByUser handles GET /v1/answers/user/{userId}
// @Summary List a user's responses
// @Tags answers
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {array} model.Response
// @Failure 403 {object} map[string]string
// @Router /answers/user/{userId} [get]
func (h *AnswerHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	responses, err := h.answerSvc.ListByUser(r.Context(), claims, mux.Vars(r)["userId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

// Results handles GET /v1/answers/results/{testId}
// @Summary IPA averages for a test
// @Tags answers
// @Produce json
// @Param testId path string true "Test ID"
// @Success 200 {object} model.AggregateResult
// @Failure 404 {object} map[string]string
// @Router /answers/results/{testId} [get]
func (h *AnswerHandler) Results(w http.ResponseWriter, r *http.Request) {
	result, err := h.answerSvc.Results(r.Context(), mux.Vars(r)["testId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
