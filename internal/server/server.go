// Package server exposes the case-file pipeline over HTTP.
//
// Routes:
//
//	GET /healthz                               liveness probe
//	GET /summary?variant=a&variant=b           JSON summary (all variants by default)
//	GET /variants                              variant ids with bus and component counts
//	GET /variants/{variant}/diagram/{format}   dot or svg diagram of one variant
//
// Every request goes through the pipeline runner, so responses are served
// from its cache while the case files are unchanged. Add refresh=1 to any
// route to bypass it.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/gridcore/pkg/errors"
	gridio "github.com/matzehuels/gridcore/pkg/io"
	"github.com/matzehuels/gridcore/pkg/pipeline"
)

// Server answers HTTP requests about a fixed set of case files.
type Server struct {
	runner  *pipeline.Runner
	cases   []string
	mergeID string
	logger  *log.Logger
}

// New creates a server for cases. Several cases are merged under mergeID.
func New(runner *pipeline.Runner, cases []string, mergeID string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, cases: cases, mergeID: mergeID, logger: logger}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/summary", s.handleSummary)
	r.Route("/variants", func(r chi.Router) {
		r.Get("/", s.handleVariants)
		r.Get("/{variant}/diagram/{format}", s.handleDiagram)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr, "cases", len(s.cases))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) options(r *http.Request, formats ...string) pipeline.Options {
	return pipeline.Options{
		Cases:   s.cases,
		MergeID: s.mergeID,
		Formats: formats,
		Refresh: r.URL.Query().Get("refresh") == "1",
		Logger:  s.logger,
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	opts := s.options(r, pipeline.FormatJSON)
	opts.Variants = r.URL.Query()["variant"]
	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := gridio.WriteSummary(result.Summary, w); err != nil {
		s.logger.Warn("write summary", "error", err)
	}
}

// variantInfo is one entry of the /variants response.
type variantInfo struct {
	ID                    string `json:"id"`
	Buses                 int    `json:"buses"`
	BusBreakerBuses       int    `json:"bus_breaker_buses"`
	ConnectedComponents   int    `json:"connected_components"`
	SynchronousComponents int    `json:"synchronous_components"`
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	result, err := s.runner.Execute(r.Context(), s.options(r, pipeline.FormatJSON))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]variantInfo, len(result.Summary.Variants))
	for i, v := range result.Summary.Variants {
		out[i] = variantInfo{
			ID:                    v.ID,
			Buses:                 len(v.Buses),
			BusBreakerBuses:       v.BusBreakerBuses,
			ConnectedComponents:   len(v.ConnectedComponents),
			SynchronousComponents: len(v.SynchronousComponents),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

var contentTypes = map[string]string{
	pipeline.FormatDOT: "text/vnd.graphviz",
	pipeline.FormatSVG: "image/svg+xml",
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	ctype, ok := contentTypes[format]
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "unsupported diagram format %q (want dot or svg)", format))
		return
	}
	opts := s.options(r, format)
	opts.RenderVariant = chi.URLParam(r, "variant")
	opts.Detailed = r.URL.Query().Get("detailed") == "1"
	opts.Clusters = r.URL.Query().Get("clusters") == "1"

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", ctype)
	if _, err := w.Write(result.Artifacts[format]); err != nil {
		s.logger.Warn("write diagram", "error", err)
	}
}

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// statusOf maps error codes to HTTP statuses.
func statusOf(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPath, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidFormat, errors.ErrCodeValidation, errors.ErrCodeDuplicateID:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{
		Error:     errors.UserMessage(err),
		Code:      string(errors.GetCode(err)),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// logRequests logs one line per request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
