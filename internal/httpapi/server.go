// Package httpapi is the HTTP boundary: JSON routes over the services plus
// the WebSocket live channel. It owns no business rules; it translates
// requests into service calls and service errors into status codes.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/bobby4fischer/pettrack/internal/app"
)

type Server struct {
	app      *app.App
	logger   *slog.Logger
	router   chi.Router
	upgrader websocket.Upgrader
}

func NewServer(a *app.App, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		app:    a,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The token, not the origin, decides grouping.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleTaskList)
			r.Post("/", s.handleTaskCreate)
			r.Post("/{taskID}/complete", s.handleTaskComplete)
			r.Delete("/{taskID}", s.handleTaskDelete)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/start", s.handleSessionStart)
			r.Post("/{sessionID}/stop", s.handleSessionStop)
			r.Get("/history", s.handleSessionHistory)
		})

		r.Route("/store", func(r chi.Router) {
			r.Get("/", s.handleStoreGet)
			r.Post("/purchase", s.handleStorePurchase)
			r.Post("/spend", s.handleStoreSpend)
			r.Post("/award", s.handleStoreAward)
		})

		r.Route("/pet", func(r chi.Router) {
			r.Get("/", s.handlePetGet)
			r.Post("/feed", s.handlePetFeed)
			r.Post("/renew", s.handlePetRenew)
		})

		r.Post("/activity", s.handleActivityReport)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
