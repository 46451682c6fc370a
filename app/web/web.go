// Package web implements the HTTP server exposing the kanban board JSON API
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/kanban/app/board"
)

// Server represents the web server
type Server struct {
	svc     BoardService
	limiter *limiter.Limiter // per-ip limiter for mutating endpoints, nil if disabled
	baseURL string           // base URL path for reverse proxy (e.g., /kanban), empty for root
	version string
}

// BoardService defines board operations used by API handlers
type BoardService interface {
	GetBoard(ctx context.Context) (board.Board, error)
	CreateTask(ctx context.Context, columnID int, text string) (board.Task, error)
	MoveTask(ctx context.Context, taskID, newColumnID int) (board.MoveResult, error)
	UpdateTaskText(ctx context.Context, taskID int, text string) error
	DeleteTask(ctx context.Context, taskID int) error
	CreateColumn(ctx context.Context, title string) (board.Column, error)
	DeleteColumn(ctx context.Context, columnID int) error
}

// Config holds server configuration
type Config struct {
	Service   BoardService
	BaseURL   string  // base URL path for reverse proxy (e.g., /kanban), empty for root
	Version   string
	RateLimit float64 // max mutating requests per second per client ip, 0 to disable
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("web server initialization failed: board service is required")
	}

	s := &Server{svc: cfg.Service, baseURL: cfg.BaseURL, version: cfg.Version}
	if cfg.RateLimit > 0 {
		lmt := tollbooth.NewLimiter(cfg.RateLimit, nil)
		lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr", IndexFromRight: 0})
		lmt.SetMessageContentType("application/json")
		lmt.SetMessage(`{"success":false,"error":"rate limit exceeded"}`)
		s.limiter = lmt
	}
	return s, nil
}

// Run starts the web server, blocks until ctx is canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// handler returns the http.Handler with base URL wrapping applied
func (s *Server) handler() http.Handler {
	routes := s.routes()
	if s.baseURL == "" {
		return routes
	}

	mux := http.NewServeMux()
	// handle base URL without trailing slash - redirect to with trailing slash
	mux.HandleFunc(s.baseURL, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.baseURL+"/", http.StatusMovedPermanently)
	})
	mux.Handle(s.baseURL+"/", http.StripPrefix(s.baseURL, routes))
	return mux
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	// global middleware - applied to all routes
	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("kanban", "umputun", s.version),
		rest.Ping,
		rest.SizeLimit(64*1024), // 64KB max request size
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	router.Mount("/api").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)

		api.HandleFunc("GET /board", s.handleGetBoard)
		api.HandleFunc("GET /schema", s.handleSchema)

		limited := api.With(s.rateLimit)
		limited.HandleFunc("POST /task", s.handleCreateTask)
		limited.HandleFunc("POST /task/{id}/move", s.handleMoveTask)
		limited.HandleFunc("PUT /task/{id}", s.handleUpdateTask)
		limited.HandleFunc("DELETE /task/{id}", s.handleDeleteTask)
		limited.HandleFunc("POST /column", s.handleCreateColumn)
		limited.HandleFunc("DELETE /column/{id}", s.handleDeleteColumn)
	})

	return router
}

// rateLimit applies per-ip limiter if configured
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return tollbooth.HTTPMiddleware(s.limiter)(next)
}
