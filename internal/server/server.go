// Package server exposes the mosaic pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ivlev/photomosaic/internal/config"
	"github.com/ivlev/photomosaic/internal/engine"
	"github.com/ivlev/photomosaic/internal/index"
	"github.com/ivlev/photomosaic/internal/logger"
	"github.com/ivlev/photomosaic/internal/mosaic"
	"github.com/ivlev/photomosaic/internal/report"
	"github.com/ivlev/photomosaic/internal/sampler"
)

// DefaultRequestTimeout bounds one mosaic request, material downloads included.
const DefaultRequestTimeout = 2 * time.Minute

// Server answers mosaic requests using a base configuration.
type Server struct {
	// AllowLocal lets requests name files on the server's disk. Off by
	// default: only http(s) identifiers are accepted.
	AllowLocal bool
	// RequestTimeout bounds each mosaic run; zero disables the bound.
	RequestTimeout time.Duration

	defaults *config.Config
	cache    index.ColorCache
	logger   *zap.Logger
	router   *chi.Mux
}

func New(l *zap.Logger, defaults *config.Config, cache index.ColorCache) *Server {
	if l == nil {
		l = zap.L()
	}
	s := &Server{
		RequestTimeout: DefaultRequestTimeout,
		defaults:       defaults,
		cache:          cache,
		logger:         l,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/mosaic", s.handleMosaic)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type mosaicRequest struct {
	Target       string   `json:"target"`
	Materials    []string `json:"materials"`
	Cols         int      `json:"cols"`
	Rows         int      `json:"rows"`
	IncludeAlpha *bool    `json:"include_alpha,omitempty"`
}

type mosaicResponse struct {
	Cols     int                  `json:"cols"`
	Rows     int                  `json:"rows"`
	Records  []mosaic.MatchRecord `json:"records"`
	Excluded []report.Excluded    `json:"excluded"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMosaic(w http.ResponseWriter, r *http.Request) {
	var req mosaicRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
		return
	}

	if !s.AllowLocal {
		for _, id := range append([]string{req.Target}, req.Materials...) {
			if !isRemote(id) {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "only http(s) resources are accepted: " + id})
				return
			}
		}
	}

	cfg := *s.defaults
	cfg.Target = req.Target
	cfg.Materials = req.Materials
	if req.Cols != 0 {
		cfg.Cols = req.Cols
	}
	if req.Rows != 0 {
		cfg.Rows = req.Rows
	}
	if req.IncludeAlpha != nil {
		cfg.IncludeAlpha = *req.IncludeAlpha
	}
	cfg.Output = ""
	cfg.ShowStats = false

	if err := cfg.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx := r.Context()
	if s.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RequestTimeout)
		defer cancel()
	}
	ctx = logger.NewContext(ctx, s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context()))))
	res, err := engine.NewMosaicProject(&cfg, s.cache).Run(ctx)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, mosaicResponse{
		Cols:     cfg.Cols,
		Rows:     cfg.Rows,
		Records:  res.Records,
		Excluded: res.Report.Excluded,
	})
}

func statusFor(err error) int {
	var de *sampler.DecodeError
	switch {
	case errors.Is(err, engine.ErrInvalidGrid):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.Is(err, engine.ErrEmptyIndex), errors.As(err, &de):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func isRemote(id string) bool {
	return strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://")
}
