package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

// QueryInput is the input schema for the query and themes tools.
type QueryInput struct {
	Query       string   `json:"query" jsonschema:"the question to answer from the indexed documents"`
	DocumentIDs []string `json:"doc_ids,omitempty" jsonschema:"restrict retrieval to these document IDs"`
	TopK        int      `json:"top_k,omitempty" jsonschema:"number of passages to retrieve (default from settings)"`
}

// PassageOutput is one retrieved paragraph.
type PassageOutput struct {
	DocumentID string  `json:"doc_id"`
	FileName   string  `json:"file_name,omitempty"`
	Page       int     `json:"page"`
	Paragraph  int     `json:"paragraph"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// ThemesOutput is the output schema for the themes tool.
type ThemesOutput struct {
	Themes       []domain.Theme `json:"themes"`
	PassageCount int            `json:"passage_count"`
}

// UploadInput is the input schema for the upload tool.
type UploadInput struct {
	Path string `json:"path" jsonschema:"absolute path of a local file to ingest"`
	Wait bool   `json:"wait,omitempty" jsonschema:"wait until processing has finished"`
}

// UploadOutput is the output schema for the upload tool.
type UploadOutput struct {
	DocumentID string        `json:"doc_id,omitempty"`
	Status     string        `json:"status"`
	Message    string        `json:"message"`
	Document   *StatusOutput `json:"document,omitempty"`
}

// StatusOutput is the status record of one document.
type StatusOutput struct {
	DocumentID string `json:"doc_id"`
	FileName   string `json:"file_name"`
	FileType   string `json:"file_type"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Pages      int    `json:"pages,omitempty"`
	Paragraphs int    `json:"paragraphs,omitempty"`
	UpdatedAt  string `json:"updated_at"`
}

func statusOutput(doc *domain.Document) StatusOutput {
	return StatusOutput{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		FileType:   doc.FileType,
		Status:     doc.Status.String(),
		Progress:   doc.Progress,
		Message:    doc.Message,
		Error:      doc.Error,
		Pages:      doc.PageCount,
		Paragraphs: doc.ParagraphCount,
		UpdatedAt:  doc.UpdatedAt.Format(time.RFC3339),
	}
}

// StatusInput is the input schema for the status tool.
type StatusInput struct {
	DocumentID string `json:"doc_id" jsonschema:"the document ID returned by upload"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Retrieve the paragraphs most relevant to a question, ranked by similarity",
	}, s.handleQuery)

	if s.ports.Themes != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "identify_themes",
			Description: "Answer a question as themes: labelled groups of passages with summaries and citations",
		}, s.handleThemes)
	}

	if s.ports.Ingestion != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "upload",
			Description: "Ingest a local file (pdf, image, docx, doc, odt, rtf, md, html, txt)",
		}, s.handleUpload)
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "document_status",
			Description: "Report the processing status of an uploaded document",
		}, s.handleStatus)
	}
}

func queryRequest(input QueryInput) domain.QueryRequest {
	return domain.QueryRequest{Query: input.Query, DocumentIDs: input.DocumentIDs, TopK: input.TopK}
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	result, err := s.ports.Query.Process(ctx, queryRequest(input))
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Passages: make([]PassageOutput, len(result.Passages)),
		Count:    len(result.Passages),
	}
	for i, p := range result.Passages {
		output.Passages[i] = PassageOutput{
			DocumentID: p.DocumentID,
			FileName:   p.FileName,
			Page:       p.PageIndex,
			Paragraph:  p.ParagraphIndex,
			Score:      p.Score,
			Text:       p.Text,
		}
	}
	return nil, output, nil
}

// handleThemes runs a query and clusters its passages.
func (s *Server) handleThemes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, ThemesOutput, error) {
	result, err := s.ports.Query.Process(ctx, queryRequest(input))
	if err != nil {
		return nil, ThemesOutput{}, err
	}
	themes, err := s.ports.Themes.Identify(ctx, result)
	if err != nil {
		return nil, ThemesOutput{}, err
	}
	if themes == nil {
		themes = []domain.Theme{}
	}
	return nil, ThemesOutput{Themes: themes, PassageCount: len(result.Passages)}, nil
}

// defaultUploadWait bounds the upload tool's wait mode.
const defaultUploadWait = 2 * time.Minute

// handleUpload reads a local file and enqueues it.
func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, UploadOutput, error) {
	if input.Path == "" {
		return nil, UploadOutput{}, fmt.Errorf("path: %w", domain.ErrInvalidInput)
	}
	content, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, UploadOutput{}, fmt.Errorf("reading %s: %w", input.Path, err)
	}

	result := s.ports.Ingestion.Enqueue(ctx, domain.FileUpload{
		FileName: filepath.Base(input.Path),
		Content:  content,
	})
	output := UploadOutput{
		DocumentID: result.DocumentID,
		Status:     string(result.Status),
		Message:    result.Message,
	}
	if !result.Accepted() || !input.Wait {
		return nil, output, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.uploadWait)
	defer cancel()
	doc, err := s.ports.Ingestion.Wait(waitCtx, result.DocumentID)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		output.Message = fmt.Sprintf("Still processing after %s; poll the status tool", s.uploadWait)
		return nil, output, nil
	}
	if err != nil {
		return nil, output, err
	}
	status := statusOutput(doc)
	output.Status = status.Status
	output.Document = &status
	return nil, output, nil
}

// handleStatus reports the status record for a document.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	doc, err := s.ports.Ingestion.Status(ctx, input.DocumentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, StatusOutput{}, fmt.Errorf("document not found: %s", input.DocumentID)
	}
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, statusOutput(doc), nil
}
