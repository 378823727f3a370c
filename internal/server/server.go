// Package server serves the documentation browser: the shell page, the
// websocket endpoint hosting navigation sessions, and a JSON API over the
// shared class registry and loader.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/conneroisu/docview/internal/analytics"
	"github.com/conneroisu/docview/internal/loader"
	"github.com/conneroisu/docview/internal/logging"
	"github.com/conneroisu/docview/internal/registry"
	"github.com/conneroisu/docview/internal/settings"
	"github.com/conneroisu/docview/internal/websocket"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Title          string
	// Open launches a browser once the server listens
	Open bool
}

// Deps are the shared components the server exposes.
type Deps struct {
	Catalog     *registry.ClassRegistry
	Loader      *loader.Loader
	Hub         *websocket.Hub
	Tracker     *analytics.Tracker
	Preferences *settings.Preferences
	Logger      logging.Logger
}

// Server is the documentation HTTP server.
type Server struct {
	cfg     Config
	catalog *registry.ClassRegistry
	loader  *loader.Loader
	hub     *websocket.Hub
	tracker *analytics.Tracker
	prefs   *settings.Preferences
	logger  logging.Logger
	started time.Time

	router       chi.Router
	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// New creates a server. Catalog and Loader are required; without a Hub the
// websocket endpoint answers 503.
func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.NewDiscardLogger()
	}
	if cfg.Title == "" {
		cfg.Title = "API Documentation"
	}

	s := &Server{
		cfg:     cfg,
		catalog: deps.Catalog,
		loader:  deps.Loader,
		hub:     deps.Hub,
		tracker: deps.Tracker,
		prefs:   deps.Preferences,
		logger:  deps.Logger.WithComponent("server"),
		started: time.Now(),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins(s.cfg.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleShell)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		r.Get("/classes", s.handleClasses)
		r.Get("/classes/{name}", s.handleClass)
		r.Get("/classes/{name}/members", s.handleMembers)
		r.Get("/resolve/{name}", s.handleResolve)
		r.Get("/tree", s.handleTree)
		r.Get("/stats", s.handleStats)
	})

	return r
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	s.hub.HandleWebSocket(w, r)
}

// Start listens on the configured address and serves until ctx is done or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	address := "http://" + listener.Addr().String()
	s.logger.Info(ctx, "Documentation server listening", "url", address)
	if s.cfg.Open {
		go s.openBrowser(address)
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.Serve(listener)
	}()

	select {
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown ends the websocket sessions, then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		if s.hub != nil {
			if err := s.hub.Shutdown(ctx); err != nil {
				shutdownErr = err
			}
		}
		if s.tracker != nil {
			s.tracker.Report(ctx)
		}

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			if err := server.Shutdown(ctx); err != nil {
				shutdownErr = err
			}
		}
	})

	return shutdownErr
}

func (s *Server) openBrowser(address string) {
	time.Sleep(100 * time.Millisecond)

	if u, err := url.Parse(address); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		s.logger.Warn(context.Background(), err, "Refusing to open browser", "url", address)
		return
	}

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", address).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", address).Start()
	case "darwin":
		err = exec.Command("open", address).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	if err != nil {
		s.logger.Warn(context.Background(), err, "Failed to open browser")
	}
}

// corsOrigins defaults to local development origins.
func corsOrigins(allowed []string) []string {
	if len(allowed) > 0 {
		return allowed
	}
	return []string{"http://localhost:*", "http://127.0.0.1:*"}
}

// NewOriginValidator accepts the configured origins, or any loopback origin
// when none are configured. "*" accepts everything.
func NewOriginValidator(allowed []string) websocket.OriginValidator {
	return websocket.OriginValidatorFunc(func(origin string) bool {
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		if len(allowed) > 0 {
			return false
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := u.Hostname()
		if host == "localhost" {
			return true
		}
		ip := net.ParseIP(host)
		return ip != nil && ip.IsLoopback()
	})
}
