// Package server exposes kernel argument extraction over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwbudde/clargs/internal/kernelargs"
	"github.com/cwbudde/clargs/internal/store"
)

// Options configures optional server behaviour.
type Options struct {
	// Store enables the report endpoints and saving. May be nil.
	Store store.Store

	// History receives one entry per extraction request. May be nil.
	History *store.HistoryWriter

	// SaveReports stores every successful extraction, not only those that
	// ask for it.
	SaveReports bool
}

// Server represents the HTTP server
type Server struct {
	extractor   *kernelargs.Extractor
	store       store.Store
	history     *store.HistoryWriter
	saveReports bool
	broadcaster *EventBroadcaster
	addr        string
	server      *http.Server
}

// NewServer creates a new HTTP server
func NewServer(addr string, opts Options) *Server {
	return &Server{
		extractor:   kernelargs.NewExtractor(nil),
		store:       opts.Store,
		history:     opts.History,
		saveReports: opts.SaveReports,
		broadcaster: NewEventBroadcaster(),
		addr:        addr,
	}
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)

	mux.HandleFunc("/api/v1/extract", s.handleExtract)
	mux.HandleFunc("/api/v1/reports", s.handleReports)
	mux.HandleFunc("/api/v1/reports/", s.handleReportWithID)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr, "reports", s.store != nil)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	s.broadcaster.Close()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
