package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ipasurvey/internal/model"
	"ipasurvey/internal/repository"
	"ipasurvey/internal/service"
	"ipasurvey/internal/transport/ws"
)

const (
	testID     = "65a000000000000000000001"
	templateID = "65a000000000000000000002"
	qImp       = "65a0000000000000000000a1"
	qPerf      = "65a0000000000000000000a2"
)

// memTests, memTemplates and memResponses implement only what the routes
// under test reach; the embedded interfaces panic on anything else.
type memTests struct {
	repository.TestRepo
	tests map[string]*model.Test
}

func (m *memTests) GetByID(_ context.Context, id string) (*model.Test, error) {
	if t, ok := m.tests[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

type memTemplates struct {
	repository.TemplateRepo
	tpl *model.Template
}

func (m *memTemplates) GetByID(_ context.Context, id string) (*model.Template, error) {
	if m.tpl != nil && m.tpl.ID == id {
		return m.tpl, nil
	}
	return nil, nil
}

func (m *memTemplates) FindQuestionType(_ context.Context, qid string) (model.QuestionType, bool, error) {
	if q := m.tpl.Question(qid); q != nil {
		return q.Type, true, nil
	}
	return "", false, nil
}

type memResponses struct {
	repository.ResponseRepo
	mu   sync.Mutex
	rows []*model.Response
}

func (m *memResponses) Create(_ context.Context, resp *model.Response) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TestID == resp.TestID && r.UserID == resp.UserID {
			return "", repository.ErrDuplicateResponse
		}
	}
	resp.ID = fmt.Sprintf("%024x", len(m.rows)+1)
	resp.CreatedAt = time.Now().UTC()
	m.rows = append(m.rows, resp)
	return resp.ID, nil
}

func (m *memResponses) ExistsForUser(_ context.Context, testID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TestID == testID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memResponses) GetByTest(_ context.Context, testID string) ([]*model.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Response
	for _, r := range m.rows {
		if r.TestID == testID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memResponses) RawAnswersByTest(ctx context.Context, testID string) ([][]model.RawAnswer, int, error) {
	rows, _ := m.GetByTest(ctx, testID)
	out := make([][]model.RawAnswer, 0, len(rows))
	for _, r := range rows {
		answers := make([]model.RawAnswer, 0, len(r.ClosedAnswers))
		for _, a := range r.ClosedAnswers {
			answers = append(answers, model.RawAnswer{QuestionID: a.QuestionID, Value: a.Value})
		}
		out = append(out, answers)
	}
	return out, 0, nil
}

type testServer struct {
	handler http.Handler
	auth    *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := service.NewValidator()
	auth := service.NewAuthService("secret", time.Hour)

	tests := &memTests{tests: map[string]*model.Test{
		testID: {ID: testID, Name: "Course feedback", TemplateID: templateID, Active: true},
	}}
	templates := &memTemplates{tpl: &model.Template{
		ID:   templateID,
		Name: "Course",
		ClosedQuestions: []model.ClosedQuestion{
			{ID: qImp, Text: "Clear goals", Type: model.QuestionTypeImportance},
			{ID: qPerf, Text: "Goals met", Type: model.QuestionTypePerformance},
		},
	}}
	responses := &memResponses{}

	aggregator := service.NewAggregationService(responses, templates, logger)
	hub := ws.NewHub(logger)
	t.Cleanup(hub.Close)
	c := &Container{
		AuthService:     auth,
		AnswerService:   service.NewAnswerService(responses, tests, aggregator, validator, logger),
		TemplateService: service.NewTemplateService(templates, validator, logger),
		TestService:     service.NewTestService(tests, templates, nil, nil, validator, logger),
		ExportService:   service.NewExportService(tests, templates, responses, aggregator, logger),
		WSHub:           hub,
		Logger:          logger,
		CORSOrigins:     "*",
	}
	return &testServer{handler: NewRouter(c), auth: auth}
}

func (s *testServer) do(t *testing.T, method, path string, role model.Role, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		token, err := s.auth.IssueToken(userID, role)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func submission(values map[string]int) map[string]interface{} {
	answers := make([]map[string]interface{}, 0, len(values))
	for qid, v := range values {
		answers = append(answers, map[string]interface{}{"questionId": qid, "value": v})
	}
	return map[string]interface{}{"closedAnswers": answers}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestDocsServed(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/v1/docs/doc.json", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc is not json: %v", err)
	}
	if doc["basePath"] != "/v1" {
		t.Errorf("basePath = %v", doc["basePath"])
	}
}

func TestPreflightSkipsAuth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodOptions, "/v1/admin/templates", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestAuthGuards(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name   string
		path   string
		role   model.Role
		user   string
		status int
	}{
		{"no token", "/v1/answers/results/" + testID, "", "", http.StatusUnauthorized},
		{"user on admin route", "/v1/admin/templates", model.RoleUser, "u1", http.StatusForbidden},
		{"admin on admin route", "/v1/admin/templates/" + templateID, model.RoleAdmin, "a1", http.StatusOK},
		{"me", "/v1/auth/me", model.RoleUser, "u1", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tc.path, tc.role, tc.user, nil)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}

func TestSubmitAndResults(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v1/answers/results/"+testID, model.RoleUser, "u1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("results before submissions: status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/v1/answers/"+testID, model.RoleUser, "u1", submission(map[string]int{qImp: 4, qPerf: 2}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first submit: status = %d (%s)", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/v1/answers/"+testID, model.RoleUser, "u2", submission(map[string]int{qImp: 5}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("second user submit: status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/v1/answers/"+testID, model.RoleUser, "u1", submission(map[string]int{qImp: 1}))
	if rec.Code != http.StatusConflict {
		t.Fatalf("resubmit: status = %d, want 409", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/v1/answers/results/"+testID, model.RoleUser, "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("results: status = %d", rec.Code)
	}
	var result model.AggregateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.AvgImportance == nil || *result.AvgImportance != 4.5 {
		t.Errorf("avgImportance = %v, want 4.5", result.AvgImportance)
	}
	if result.AvgPerformance == nil || *result.AvgPerformance != 2 {
		t.Errorf("avgPerformance = %v, want 2", result.AvgPerformance)
	}
}

func TestSubmitErrors(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"unknown test", "/v1/answers/65a0000000000000000000ff", submission(map[string]int{qImp: 3}), http.StatusNotFound},
		{"empty answers", "/v1/answers/" + testID, map[string]interface{}{"closedAnswers": []interface{}{}}, http.StatusBadRequest},
		{"value out of range", "/v1/answers/" + testID, submission(map[string]int{qImp: 6}), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tc.path, model.RoleUser, "u1", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/answers/"+testID, strings.NewReader("{not json"))
	token, _ := s.auth.IssueToken("u1", model.RoleUser)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status = %d", rec.Code)
	}
}

func TestExportXLSX(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/v1/answers/"+testID, model.RoleUser, "u1", submission(map[string]int{qImp: 4}))

	rec := s.do(t, http.MethodGet, "/v1/admin/tests/"+testID+"/export.xlsx", model.RoleAdmin, "a1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}
	// xlsx files are zip archives
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip archive")
	}

	rec = s.do(t, http.MethodGet, "/v1/admin/tests/65a0000000000000000000ff/export.xlsx", model.RoleAdmin, "a1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown test: status = %d", rec.Code)
	}
}
