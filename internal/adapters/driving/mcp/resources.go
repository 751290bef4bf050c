package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

const (
	uriScheme       = "doclens://"
	documentsURI    = uriScheme + "documents"
	queueURI        = uriScheme + "queue"
	documentURIBase = documentsURI + "/"
)

// registerResources exposes read-only views of the ingestion state. Nothing
// is registered without an ingestion port.
func (s *Server) registerResources() {
	if s.ports.Ingestion == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Every indexed document with page and paragraph counts",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         queueURI,
		Name:        "queue",
		Description: "Status records of uploads handled since the server started, oldest first",
		MIMEType:    "application/json",
	}, s.handleQueueResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentURIBase + "{documentId}",
		Name:        "document-status",
		Description: "Processing status of one document",
		MIMEType:    "application/json",
	}, s.handleStatusResource)
}

func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Ingestion.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	if docs == nil {
		docs = []domain.DocumentSummary{}
	}
	return jsonResource(req.Params.URI, docs)
}

func (s *Server) handleQueueResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records := s.ports.Ingestion.Statuses(ctx)
	out := make([]StatusOutput, len(records))
	for i := range records {
		out[i] = statusOutput(&records[i])
	}
	return jsonResource(req.Params.URI, out)
}

func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractDocumentID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Ingestion.Status(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	case err != nil:
		return nil, fmt.Errorf("status of %s: %w", id, err)
	}
	return jsonResource(req.Params.URI, statusOutput(doc))
}

// extractDocumentID returns the id in doclens://documents/{id}, or "" for
// any other URI.
func extractDocumentID(uri string) string {
	id, ok := strings.CutPrefix(uri, documentURIBase)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
