// Package httpapi exposes ingestion, query and theme identification over HTTP.
//
// Routes:
//
//	POST   /api/documents/upload                multipart field "files"
//	GET    /api/documents                       indexed documents
//	GET    /api/documents/status/{doc_id}       status record
//	GET    /api/documents/status/{doc_id}/stream websocket status stream
//	DELETE /api/documents/{doc_id}              always 501
//	POST   /api/queries/process                 {"query", "doc_ids"}
//	POST   /api/themes/identify                 a query result
package httpapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/doclens/internal/core/ports/driving"
	"github.com/custodia-labs/doclens/internal/logger"
)

// Default limits.
const (
	DefaultMaxUploadBytes = 100 << 20
	DefaultPollInterval   = 250 * time.Millisecond
)

// ErrMissingPorts is returned when a required service is not provided.
var ErrMissingPorts = errors.New("httpapi: ingestion, query and themes services are required")

// Ports aggregates the driving ports served over HTTP.
type Ports struct {
	Ingestion driving.IngestionService
	Query     driving.QueryService
	Themes    driving.ThemeService
}

// Validate ensures all ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Ingestion == nil || p.Query == nil || p.Themes == nil {
		return ErrMissingPorts
	}
	return nil
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes caps the size of an upload request body.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithPollInterval sets how often status streams poll for changes.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// Server serves the HTTP API.
type Server struct {
	ports          *Ports
	mux            *http.ServeMux
	validate       *validator.Validate
	maxUploadBytes int64
	pollInterval   time.Duration
}

// NewServer creates a Server and registers its routes.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		ports:          ports,
		mux:            http.NewServeMux(),
		validate:       validator.New(),
		maxUploadBytes: DefaultMaxUploadBytes,
		pollInterval:   DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/documents/upload", s.handleUpload)
	s.mux.HandleFunc("GET /api/documents", s.handleList)
	s.mux.HandleFunc("GET /api/documents/list", s.handleList)
	s.mux.HandleFunc("GET /api/documents/status/{doc_id}", s.handleStatus)
	s.mux.HandleFunc("GET /api/documents/status/{doc_id}/stream", s.handleStatusStream)
	s.mux.HandleFunc("DELETE /api/documents/{doc_id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/queries/process", s.handleQuery)
	s.mux.HandleFunc("POST /api/themes/identify", s.handleThemes)
}

// Handler returns the root handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("HTTP API listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serving %s: %w", addr, err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the underlying writer for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
