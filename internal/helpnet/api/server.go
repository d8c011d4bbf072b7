package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/api/handlers"
	"github.com/unstuck-ai/helpnet-backend/pkg/logging"
)

type Server struct {
	router     *mux.Router
	httpServer *http.Server
	logger     logging.Logger
}

func NewServer(host, port string, coordinator handlers.HelpRunner, executor handlers.ActionRunner, logger logging.Logger) *Server {
	router := mux.NewRouter()

	srv := &Server{
		router: router,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%s", host, port),
			Handler: cors.AllowAll().Handler(router),
			// Jobs can legitimately hold the help endpoint open for the
			// whole response window; only reads are bounded here.
			ReadTimeout: 30 * time.Second,
		},
	}

	srv.setupRoutes(coordinator, executor)
	return srv
}

func (s *Server) setupRoutes(coordinator handlers.HelpRunner, executor handlers.ActionRunner) {
	handler := handlers.NewHandler(coordinator, executor, s.logger)

	s.router.Use(recoveryMiddleware(s.logger))
	s.router.Use(loggingMiddleware(s.logger))

	s.router.HandleFunc("/health", handler.HandleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/help", handler.HandleHelp).Methods(http.MethodPost)
	api.HandleFunc("/execute", handler.HandleExecute).Methods(http.MethodPost)
}

// Router exposes the mux for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Infof("API server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func recoveryMiddleware(logger logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func loggingMiddleware(logger logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Infof("%s %s took %v", r.Method, r.URL.Path, time.Since(start))
		})
	}
}
