package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/baljotchohan/Trade-Track-App/internal/auth"
	"github.com/baljotchohan/Trade-Track-App/internal/config"
	"github.com/baljotchohan/Trade-Track-App/internal/storage"
	"github.com/baljotchohan/Trade-Track-App/internal/trace"
	"go.uber.org/zap"
)

type ctxKey int

const userIDKey ctxKey = iota

const maxListLimit = 100

// Server is the REST layer over the trade repository. It authenticates the
// caller from a session cookie and passes the resolved user ID explicitly
// into every repository call.
type Server struct {
	repo       *storage.Repository
	provider   auth.ProviderInterface
	sessions   *auth.SessionStore
	logger     *zap.Logger
	cfg        *config.Server
	cookieName string
	httpServer *http.Server
}

// NewServer wires the routes and middleware chain.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	repo *storage.Repository,
	provider auth.ProviderInterface,
	sessions *auth.SessionStore,
) *Server {
	s := &Server{
		repo:       repo,
		provider:   provider,
		sessions:   sessions,
		logger:     logger,
		cfg:        &cfg.Server,
		cookieName: cfg.Auth.CookieName,
	}

	mux := http.NewServeMux()

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Auth routes
	mux.HandleFunc("GET /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/callback", s.handleCallback)
	mux.HandleFunc("GET /api/logout", s.handleLogout)
	mux.Handle("GET /api/auth/user", s.requireSession(s.handleCurrentUser))

	// Trade routes
	mux.Handle("GET /api/stats", s.requireSession(s.handleStats))
	mux.Handle("GET /api/trades", s.requireSession(s.handleListTrades))
	mux.Handle("GET /api/trades/range", s.requireSession(s.handleTradesInRange))
	mux.Handle("GET /api/trades/export", s.requireSession(s.handleExportTrades))
	mux.Handle("POST /api/trades", s.requireSession(s.handleCreateTrade))
	mux.Handle("PATCH /api/trades/{id}", s.requireSession(s.handleUpdateTrade))
	mux.Handle("DELETE /api/trades/{id}", s.requireSession(s.handleDeleteTrade))

	handler := s.traceMiddleware(s.logMiddleware(corsMiddleware(mux, cfg.Server.CORSOrigin)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("address", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- middleware ---

// requireSession authenticates the request from the session cookie and
// threads the user ID into the request context.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.cookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}

		session, err := s.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			s.logger.Error("Failed to load session", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load session")
			return
		}
		if session == nil {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, session.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the authenticated user's ID placed by requireSession.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := trace.StartSpan(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the status code written by the handler chain.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
