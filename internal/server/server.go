// Package server exposes freshly built catalogs over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/amosWeiskopf/mapharvest/internal/logging"
	"github.com/amosWeiskopf/mapharvest/internal/metrics"
	"github.com/amosWeiskopf/mapharvest/pkg/analyzer"
	"github.com/amosWeiskopf/mapharvest/pkg/catalog"
	"github.com/amosWeiskopf/mapharvest/pkg/reporter"
	"go.uber.org/zap"
)

// CatalogBuilder builds one catalog per call
type CatalogBuilder interface {
	Build(ctx context.Context) (*catalog.Result, error)
}

// Server serves catalogs. Every request triggers a new build; nothing is cached.
type Server struct {
	builder  CatalogBuilder
	reporter *reporter.Reporter
	logger   *zap.Logger
}

// New creates a Server
func New(builder CatalogBuilder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		builder:  builder,
		reporter: reporter.New(),
		logger:   logger,
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /catalog", s.handleCatalog)
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	return logging.Middleware(s.logger, mux)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = reporter.FormatJSON
	}
	if !supported(format) {
		http.Error(w, "unsupported format: "+format, http.StatusBadRequest)
		return
	}

	result, ok := s.build(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.reporter.Render(&buf, result.Root, format); err != nil {
		s.logger.Error("render catalog", zap.Error(err))
		http.Error(w, "failed to render catalog", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", reporter.ContentType(format))
	w.Header().Set("X-Build-ID", result.BuildID)
	w.Header().Set("X-Degraded-Regions", strconv.Itoa(len(result.Degraded)))
	w.Write(buf.Bytes())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	result, ok := s.build(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Build-ID", result.BuildID)
	json.NewEncoder(w).Encode(analyzer.Summarize(result.Root))
}

func (s *Server) build(w http.ResponseWriter, r *http.Request) (*catalog.Result, bool) {
	result, err := s.builder.Build(r.Context())
	if err == nil {
		return result, true
	}

	switch {
	case catalog.IsTransportError(err):
		http.Error(w, "could not reach listing source: "+err.Error(), http.StatusBadGateway)
	case catalog.IsSourceFormatError(err):
		http.Error(w, "listing source format changed: "+err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "catalog build failed: "+err.Error(), http.StatusInternalServerError)
	}
	return nil, false
}

func supported(format string) bool {
	for _, f := range reporter.Formats {
		if f == format {
			return true
		}
	}
	return false
}
