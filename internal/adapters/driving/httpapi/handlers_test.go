package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

type fixture struct {
	ingest *mockIngestionService
	query  *mockQueryService
	themes *mockThemeService
	server *Server
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		ingest: &mockIngestionService{},
		query:  &mockQueryService{},
		themes: &mockThemeService{},
	}
	server, err := NewServer(&Ports{Ingestion: f.ingest, Query: f.query, Themes: f.themes}, opts...)
	require.NoError(t, err)
	f.server = server
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestNewServer_RequiresPorts(t *testing.T) {
	_, err := NewServer(&Ports{Query: &mockQueryService{}})
	assert.ErrorIs(t, err, ErrMissingPorts)

	_, err = NewServer(nil)
	assert.ErrorIs(t, err, ErrMissingPorts)
}

func TestHandleUpload(t *testing.T) {
	t.Run("reports rejected files", func(t *testing.T) {
		f := newFixture(t)
		body, contentType := multipartBody(t, map[string]string{"setup.exe": "MZ"})
		req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := f.do(req)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp UploadResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "Documents uploaded and queued for processing", resp.Message)
		require.Len(t, resp.Documents, 1)
		assert.Equal(t, domain.UploadError, resp.Documents[0].Status)
		assert.Equal(t, "Unsupported file type: exe", resp.Documents[0].Message)
	})

	t.Run("single file", func(t *testing.T) {
		f := newFixture(t)
		body, contentType := multipartBody(t, map[string]string{"contract.pdf": "%PDF-1.4"})
		req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := f.do(req)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp UploadResponse
		decodeBody(t, rec, &resp)
		require.Len(t, resp.Documents, 1)
		assert.Equal(t, "DOC00000001", resp.Documents[0].DocumentID)
		assert.Equal(t, "Document queued for processing", resp.Documents[0].Message)

		require.Len(t, f.ingest.uploads, 1)
		assert.Equal(t, "contract.pdf", f.ingest.uploads[0].FileName)
		assert.Equal(t, "%PDF-1.4", string(f.ingest.uploads[0].Content))
	})

	t.Run("no files", func(t *testing.T) {
		f := newFixture(t)
		body, contentType := multipartBody(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := f.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "No files uploaded")
	})

	t.Run("not multipart", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")

		rec := f.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		f := newFixture(t, WithMaxUploadBytes(64))
		body, contentType := multipartBody(t, map[string]string{"big.txt": strings.Repeat("x", 1024)})
		req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
		req.Header.Set("Content-Type", contentType)

		rec := f.do(req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Empty(t, f.ingest.uploads)
	})
}

func TestHandleStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/documents/status/DOCMISSING", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Document not found")

	f.ingest.statuses = []domain.Document{{
		ID: "DOC00000001", FileName: "a.pdf", Status: domain.StatusCompleted, Progress: 100, PageCount: 3,
	}}
	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/documents/status/DOC00000001", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc domain.Document
	decodeBody(t, rec, &doc)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, 3, doc.PageCount)
}

func TestHandleList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/documents", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"documents": []}`, rec.Body.String())
	})

	t.Run("summaries", func(t *testing.T) {
		f := newFixture(t)
		f.ingest.summaries = []domain.DocumentSummary{{
			DocumentID: "DOC00000001", FileName: "a.pdf", FileType: "pdf", PageCount: 2, ParagraphCount: 9,
		}}
		for _, path := range []string{"/api/documents", "/api/documents/list"} {
			rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, rec.Code, path)
			assert.Contains(t, rec.Body.String(), `"total_pages":2`)
			assert.Contains(t, rec.Body.String(), `"total_paragraphs":9`)
		}
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture(t)
		f.ingest.listErr = errors.New("index unavailable")
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/documents", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "index unavailable")
	})
}

func TestHandleDelete(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodDelete, "/api/documents/DOC00000001", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Contains(t, rec.Body.String(), "Document deletion not implemented")
}

func TestHandleQuery(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "valid", body: `{"query": "late fees", "doc_ids": ["DOC00000001"]}`, wantStatus: http.StatusOK},
		{name: "missing query", body: `{"doc_ids": ["DOC00000001"]}`, wantStatus: http.StatusBadRequest},
		{name: "negative top_k", body: `{"query": "x", "top_k": -1}`, wantStatus: http.StatusBadRequest},
		{name: "malformed json", body: `{"query":`, wantStatus: http.StatusBadRequest},
		{name: "embedding failure", body: `{"query": "x"}`, err: domain.ErrEmbeddingUnavailable, wantStatus: http.StatusInternalServerError},
		{name: "model mismatch", body: `{"query": "x"}`, err: domain.ErrEmbeddingModelMismatch, wantStatus: http.StatusInternalServerError},
		{name: "invalid query", body: `{"query": "x"}`, err: domain.ErrInvalidInput, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.query.err = tt.err

			req := httptest.NewRequest(http.MethodPost, "/api/queries/process", strings.NewReader(tt.body))
			rec := f.do(req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	t.Run("forwards request", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/api/queries/process",
			strings.NewReader(`{"query": "late fees", "doc_ids": ["DOC00000001"], "top_k": 5}`))
		rec := f.do(req)
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, "late fees", f.query.got.Query)
		assert.Equal(t, []string{"DOC00000001"}, f.query.got.DocumentIDs)
		assert.Equal(t, 5, f.query.got.TopK)

		var result domain.QueryResult
		decodeBody(t, rec, &result)
		assert.Equal(t, "late fees", result.Query)
	})
}

func TestHandleThemes(t *testing.T) {
	t.Run("identifies themes", func(t *testing.T) {
		f := newFixture(t)
		f.themes.themes = []domain.Theme{{
			Label:     "Payment terms",
			Citations: []domain.Citation{{DocumentID: "DOC00000001", PageIndex: 1, ParagraphIndex: 2}},
		}}
		body := `{"query": "payment", "passages": [{"doc_id": "DOC00000001", "page": 1, "paragraph": 2, "text": "Net 30.", "score": 0.8}]}`

		rec := f.do(httptest.NewRequest(http.MethodPost, "/api/themes/identify", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		require.NotNil(t, f.themes.got)
		require.Len(t, f.themes.got.Passages, 1)
		assert.Equal(t, "Net 30.", f.themes.got.Passages[0].Text)

		var resp ThemesResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "payment", resp.Query)
		require.Len(t, resp.Themes, 1)
		assert.Equal(t, "Payment terms", resp.Themes[0].Label)
	})

	t.Run("no themes", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodPost, "/api/themes/identify", strings.NewReader(`{"query": "x", "passages": []}`)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"query": "x", "themes": []}`, rec.Body.String())
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture(t)
		f.themes.err = domain.ErrLLMUnavailable
		rec := f.do(httptest.NewRequest(http.MethodPost, "/api/themes/identify", strings.NewReader(`{"query": "x"}`)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrDuplicateDocument, http.StatusConflict},
		{domain.ErrUnsupportedFileType, http.StatusUnsupportedMediaType},
		{domain.ErrNotImplemented, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRouting_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/queries/process", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
