package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"snippetbot/internal/domain/execution"
	"snippetbot/internal/ports"
)

const (
	maxRequestBytes     = 1 << 20
	defaultMaxTimeout   = 30 * time.Second
	defaultShutdownWait = 10 * time.Second
)

// languageLister is implemented by engines that know which languages they serve.
type languageLister interface {
	Languages() []execution.Language
}

// ServerConfig configures the executor HTTP server.
type ServerConfig struct {
	Executor ports.Executor
	// MaxTimeout clamps the timeout requested by clients.
	MaxTimeout time.Duration
	Logger     *zap.Logger
}

// Server exposes an executor over the remote wire contract.
type Server struct {
	executor   ports.Executor
	maxTimeout time.Duration
	logger     *zap.Logger
	router     chi.Router
	http       *http.Server
}

// NewServer validates cfg and mounts the routes.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Executor == nil {
		return nil, errors.New("executor server: executor is required")
	}
	maxTimeout := cfg.MaxTimeout
	if maxTimeout <= 0 {
		maxTimeout = defaultMaxTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		executor:   cfg.Executor,
		maxTimeout: maxTimeout,
		logger:     logger,
		router:     chi.NewRouter(),
	}
	s.setupRoutes()
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Use(jsonContentType)
		r.Get("/languages", s.handleLanguages)
		r.Post("/execute/{language}", s.handleExecute)
	})
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("executor server: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called. Calling Shutdown
// first makes Serve return immediately.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("executor server listening", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("executor server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownWait)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	var langs []execution.Language
	if lister, ok := s.executor.(languageLister); ok {
		langs = lister.Languages()
	} else {
		for _, spec := range execution.Languages() {
			langs = append(langs, spec.Language)
		}
	}

	names := make([]string, 0, len(langs))
	for _, lang := range langs {
		names = append(names, string(lang))
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, languagesResponse{Languages: names})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	lang := execution.Language(chi.URLParam(r, "language"))
	if !lang.Valid() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unsupported language %q", lang))
		return
	}

	var req executeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	outcome := s.executor.Execute(r.Context(), execution.Request{
		Language: lang,
		Source:   req.Code,
		Stdin:    req.Stdin,
	}, s.clampTimeout(req.TimeoutMS))

	if outcome.Kind == execution.KindOther {
		s.logger.Warn("execution failed in environment",
			zap.String("language", string(lang)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("message", outcome.Message))
	}
	writeJSON(w, http.StatusOK, encodeOutcome(outcome))
}

func (s *Server) clampTimeout(ms int64) time.Duration {
	if ms <= 0 || ms > s.maxTimeout.Milliseconds() {
		return s.maxTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
