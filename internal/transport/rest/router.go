package rest

import (
	"log/slog"
	"net/http"

	"ipasurvey/internal/service"
	"ipasurvey/internal/transport/rest/handler"
	"ipasurvey/internal/transport/rest/middleware"
	"ipasurvey/internal/transport/ws"

	"github.com/gorilla/mux"
	"github.com/swaggo/swag"

	_ "ipasurvey/docs"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService     *service.AuthService
	AnswerService   *service.AnswerService
	TemplateService *service.TemplateService
	TestService     *service.TestService
	GroupService    *service.GroupService
	ExportService   *service.ExportService
	WSHub           *ws.Hub
	Logger          *slog.Logger
	CORSOrigins     string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler()
	answerHandler := handler.NewAnswerHandler(c.AnswerService, logger)
	templateHandler := handler.NewTemplateHandler(c.TemplateService, logger)
	testHandler := handler.NewTestHandler(c.TestService, c.ExportService, logger)
	groupHandler := handler.NewGroupHandler(c.GroupService, logger)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.CORSOrigins, logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))
	r.Use(middleware.Logging(logger))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/docs/doc.json", serveDocs).Methods("GET")

	// WebSocket routes (token in query param)
	v1.HandleFunc("/ws/tests/{testId}", wsHandler.TestFeed).Methods("GET")

	// Authenticated routes
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/auth/me", authHandler.Me).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/answers/{testId}", answerHandler.Submit).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/answers/test/{testId}", answerHandler.ListByTest).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/answers/user/{userId}", answerHandler.ListByUser).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/answers/results/{testId}", answerHandler.Results).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/tests/group/{groupId}", testHandler.ListForGroup).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/tests/{id}", testHandler.Get).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/groups", groupHandler.List).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/groups/me", groupHandler.Mine).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/groups/{id}", groupHandler.Get).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/groups/{id}/join", groupHandler.Join).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/groups/{id}/leave", groupHandler.Leave).Methods("POST", "OPTIONS")

	// Admin routes
	adminRoutes := v1.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(authMW.RequireUser, authMW.RequireAdmin)

	adminRoutes.HandleFunc("/templates", templateHandler.Create).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/templates", templateHandler.List).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/templates/{id}", templateHandler.Get).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/templates/{id}", templateHandler.Update).Methods("PATCH", "OPTIONS")
	adminRoutes.HandleFunc("/templates/{id}", templateHandler.Delete).Methods("DELETE", "OPTIONS")
	adminRoutes.HandleFunc("/templates/{id}/questions", templateHandler.AddQuestion).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/questions/{questionId}", templateHandler.UpdateQuestion).Methods("PUT", "OPTIONS")
	adminRoutes.HandleFunc("/questions/{questionId}", templateHandler.DeleteQuestion).Methods("DELETE", "OPTIONS")

	adminRoutes.HandleFunc("/tests", testHandler.Create).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/tests/list", testHandler.List).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/tests/{id}", testHandler.Update).Methods("PATCH", "OPTIONS")
	adminRoutes.HandleFunc("/tests/{id}/group/{groupId}", testHandler.Delete).Methods("DELETE", "OPTIONS")
	adminRoutes.HandleFunc("/tests/{id}/export.xlsx", testHandler.Export).Methods("GET", "OPTIONS")

	adminRoutes.HandleFunc("/groups", groupHandler.Create).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/groups/{id}", groupHandler.Update).Methods("PUT", "OPTIONS")
	adminRoutes.HandleFunc("/groups/{id}", groupHandler.Delete).Methods("DELETE", "OPTIONS")
	adminRoutes.HandleFunc("/groups/{id}/tests", groupHandler.AssignTest).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/groups/{id}/tests/{testId}", groupHandler.UnassignTest).Methods("DELETE", "OPTIONS")

	return r
}

func serveDocs(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		http.Error(w, `{"error":"docs unavailable"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
