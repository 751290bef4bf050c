package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/doclens/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// DefaultInstructions tells clients how the tools fit together.
const DefaultInstructions = `doclens answers questions from documents the user has indexed.
Use "query" to retrieve cited passages (document, page, paragraph) and
"identify_themes" to group those passages into summarised themes. Upload new
files with "upload" and poll "document_status" until processing completes
before querying them.`

const shutdownTimeout = 5 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithInstructions replaces DefaultInstructions.
func WithInstructions(text string) Option {
	return func(s *Server) {
		s.instructions = text
	}
}

// WithUploadWaitTimeout bounds how long the upload tool blocks when asked to wait.
func WithUploadWaitTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.uploadWait = d
		}
	}
}

// Server is the MCP server for doclens.
type Server struct {
	ports        *Ports
	server       *mcp.Server
	instructions string
	uploadWait   time.Duration
}

// NewServer creates an MCP server. Themes, upload and status tools are only
// registered when the matching port is set.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports:        ports,
		instructions: DefaultInstructions,
		uploadWait:   defaultUploadWait,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcp.NewServer(
		&mcp.Implementation{Name: "doclens", Version: Version},
		&mcp.ServerOptions{Instructions: s.instructions},
	)
	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("mcp: serving over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves MCP over streamable HTTP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutdown: %v", err)
		}
	}()

	logger.Info("mcp: listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
