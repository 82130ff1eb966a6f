// Package httpapi exposes the REST surface: demo authentication, task
// CRUD, the chat endpoint and conversation history, plus health and
// analytics probes.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"taskwing/auth"
	"taskwing/chat"
	"taskwing/config"
	"taskwing/events"
	"taskwing/store"
)

// Server is the TaskWing REST API server. Handlers delegate to the chat
// service and the store; authentication is enforced by middleware.
type Server struct {
	router    *mux.Router
	store     store.Store
	chat      *chat.Service
	authn     *auth.Authenticator
	emitter   events.Emitter
	analytics *events.Consumer
	llm       config.LLM
	limiter   *rateLimiter
	logger    *zap.Logger
	handler   http.Handler
	server    *http.Server
}

// NewServer creates a fully-wired Server ready to Start(). analytics
// may be nil when the event consumer is not running in this process.
func NewServer(addr string, st store.Store, chatSvc *chat.Service, authn *auth.Authenticator, emitter events.Emitter, analytics *events.Consumer, llm config.LLM, logger *zap.Logger) *Server {
	srv := &Server{
		router:    mux.NewRouter(),
		store:     st,
		chat:      chatSvc,
		authn:     authn,
		emitter:   emitter,
		analytics: analytics,
		llm:       llm,
		limiter:   newRateLimiter(),
		logger:    logger,
	}
	srv.registerRoutes()
	// CORS and rate limiting wrap the whole router so they also apply
	// to preflight requests that match no route.
	srv.handler = cors(srv.logRequests(srv.rateLimit(srv.router)))
	srv.server = &http.Server{
		Addr:         addr,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv
}

// Handler exposes the fully middleware-wrapped handler, mainly for
// tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening and serving HTTP requests. It blocks until the
// server is shut down or encounters a fatal error.
func (s *Server) Start() error {
	s.logger.Info("API server starting", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// writeJSON serialises data as JSON and writes it to the response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// writeError writes a JSON error envelope to the response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "taskwing",
	})
}

func (s *Server) handleChatHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.llm.Provider == "" {
		status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"provider": s.llm.Provider,
		"model":    s.llm.Model,
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if s.analytics == nil {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "disabled",
			"enabled": false,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, s.analytics.Snapshot())
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
