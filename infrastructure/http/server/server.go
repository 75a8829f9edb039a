package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fixora/flowauth/infrastructure/http/handler"
	"github.com/fixora/flowauth/infrastructure/http/middleware"
	"github.com/fixora/flowauth/infrastructure/http/response"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

// Handlers are the endpoints served by the router.
type Handlers struct {
	Auth  *handler.AuthHandler
	Users *handler.UserManagementHandler
}

// Pipeline is the per-request middleware. RateLimit and CORS are optional.
type Pipeline struct {
	RateLimit *middleware.RateLimitMiddleware
	Auth      *middleware.AuthMiddleware
	CORS      mux.MiddlewareFunc
}

// NewRouter registers the routes and wraps the whole router, including its
// not-found handling, in the pipeline: recovery, correlation, logging, CORS,
// rate limit, then authentication.
func NewRouter(h Handlers, p Pipeline, log logger.Logger) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	auth := router.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/login", h.Auth.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", h.Auth.Refresh).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.Auth.Logout).Methods(http.MethodPost)
	auth.HandleFunc("/me", h.Auth.Me).Methods(http.MethodGet)

	if h.Users != nil {
		router.HandleFunc("/api/users", h.Users.CreateUser).Methods(http.MethodPost)
		users := router.PathPrefix("/api/users").Subrouter()
		users.HandleFunc("/list", h.Users.ListUsers).Methods(http.MethodGet)
		users.HandleFunc("/{id:[0-9]+}", h.Users.GetUser).Methods(http.MethodGet)
		users.HandleFunc("/{id:[0-9]+}", h.Users.UpdateUser).Methods(http.MethodPut)
		users.HandleFunc("/{id:[0-9]+}", h.Users.DeleteUser).Methods(http.MethodDelete)
		users.HandleFunc("/{id:[0-9]+}/roles", h.Users.AssignRoles).Methods(http.MethodPost)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusNotFound, response.ErrorBody{
			Error:            "not_found",
			ErrorDescription: "resource not found",
		})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusMethodNotAllowed, response.ErrorBody{
			Error:            "method_not_allowed",
			ErrorDescription: "method not allowed",
		})
	})

	chain := []mux.MiddlewareFunc{
		middleware.RecoveryMiddleware(log),
		middleware.CorrelationIDMiddleware,
		middleware.LoggingMiddleware(log),
	}
	if p.CORS != nil {
		chain = append(chain, p.CORS)
	}
	if p.RateLimit != nil {
		chain = append(chain, p.RateLimit.RateLimit)
	}
	chain = append(chain, p.Auth.RequireAuth)

	var wrapped http.Handler = router
	for i := len(chain) - 1; i >= 0; i-- {
		wrapped = chain[i].Middleware(wrapped)
	}
	return wrapped
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger logger.Logger
}

func NewServer(cfg ServerConfig, h http.Handler, log logger.Logger) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	return &Server{
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      h,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: log,
	}
}

// Start blocks until the server stops. A graceful shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{
		"addr": s.server.Addr,
	})
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
