package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ipasurvey/internal/model"
	"ipasurvey/internal/service"
	"ipasurvey/internal/transport/rest/middleware"
)

func TestWriteServiceError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &service.ValidationError{Fields: map[string]string{"closedAnswers": "is required"}}, http.StatusBadRequest},
		{"bare validation", fmt.Errorf("%w: bad", service.ErrValidation), http.StatusBadRequest},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized},
		{"invalid token", service.ErrInvalidToken, http.StatusUnauthorized},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"test not found", service.ErrTestNotFound, http.StatusNotFound},
		{"wrapped group not found", fmt.Errorf("join: %w", service.ErrGroupNotFound), http.StatusNotFound},
		{"no results", service.ErrNoResults, http.StatusNotFound},
		{"already submitted", service.ErrAlreadySubmitted, http.StatusConflict},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, logger, tc.err)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not json: %v", err)
			}
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestWriteServiceError_ValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, slog.Default(), &service.ValidationError{Fields: map[string]string{"value": "must be at most 5"}})

	var body struct {
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Details["value"] != "must be at most 5" {
		t.Errorf("details = %v", body.Details)
	}
}

func TestWriteServiceError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, slog.New(slog.NewTextHandler(io.Discard, nil)), errors.New("mongo: secret host unreachable"))
	if strings.Contains(rec.Body.String(), "secret host") {
		t.Errorf("internal error leaked: %s", rec.Body.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	if !decodeJSON(rec, req, &v) || v.Name != "x" {
		t.Fatalf("valid body rejected, name = %q", v.Name)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if !decodeJSON(rec, req, &v) {
		t.Fatal("empty body rejected")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	if decodeJSON(rec, req, &v) {
		t.Fatal("truncated body accepted")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", maxBodyBytes)+`"}`))
	if decodeJSON(rec, req, &v) {
		t.Fatal("oversized body accepted")
	}
}

func TestMe(t *testing.T) {
	h := NewAuthHandler()

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req = req.WithContext(middleware.WithClaims(req.Context(), &model.UserClaims{UserID: "u1", Role: model.RoleAdmin}))
	rec = httptest.NewRecorder()
	h.Me(rec, req)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["userId"] != "u1" || body["role"] != "admin" {
		t.Errorf("body = %v", body)
	}
}
