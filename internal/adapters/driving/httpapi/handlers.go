package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/logger"
)

// Response messages.
const (
	msgBatchQueued     = "Documents uploaded and queued for processing"
	msgNotFound        = "Document not found"
	msgDeleteNotImpl   = "Document deletion not implemented"
	msgNoFiles         = "No files uploaded"
	multipartMaxMemory = 32 << 20
)

// UploadResponse is the body of a successful upload request.
type UploadResponse struct {
	Message   string                `json:"message"`
	Documents []domain.UploadResult `json:"documents"`
}

// ListResponse is the body of a document listing.
type ListResponse struct {
	Documents []domain.DocumentSummary `json:"documents"`
}

// ThemesResponse is the body of a theme identification.
type ThemesResponse struct {
	Query  string         `json:"query"`
	Themes []domain.Theme `json:"themes"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parsing upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, msgNoFiles)
		return
	}

	uploads := make([]domain.FileUpload, 0, len(headers))
	for _, fh := range headers {
		upload, err := readPart(fh)
		if err != nil {
			logger.Error("reading upload %s: %v", fh.Filename, err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		uploads = append(uploads, upload)
	}

	results := s.ports.Ingestion.EnqueueBatch(r.Context(), uploads)
	writeJSON(w, http.StatusAccepted, UploadResponse{
		Message:   msgBatchQueued,
		Documents: results,
	})
}

// isTooLarge reports whether err came from the upload size limit. The
// multipart reader does not always wrap the underlying read error.
func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func readPart(fh *multipart.FileHeader) (domain.FileUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.FileUpload{}, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return domain.FileUpload{}, fmt.Errorf("reading %s: %w", fh.Filename, err)
	}
	return domain.FileUpload{FileName: fh.Filename, Content: content}, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ports.Ingestion.Status(r.Context(), r.PathValue("doc_id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.ports.Ingestion.List(r.Context())
	if err != nil {
		logger.Error("listing documents: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []domain.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Documents: docs})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.ports.Ingestion.Delete(r.Context(), r.PathValue("doc_id"))
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if errors.Is(err, domain.ErrNotImplemented) {
		writeError(w, http.StatusNotImplemented, msgDeleteNotImpl)
		return
	}
	writeError(w, statusFor(err), err.Error())
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := s.ports.Query.Process(r.Context(), req)
	if err != nil {
		logger.Error("processing query: %v", err)
		writeError(w, queryStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	var result domain.QueryResult
	if err := decodeJSON(r, &result); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	themes, err := s.ports.Themes.Identify(r.Context(), &result)
	if err != nil {
		logger.Error("identifying themes: %v", err)
		writeError(w, queryStatus(err), err.Error())
		return
	}
	if themes == nil {
		themes = []domain.Theme{}
	}
	writeJSON(w, http.StatusOK, ThemesResponse{Query: result.Query, Themes: themes})
}

// queryStatus reports invalid input as 400 and every other failure as 500.
func queryStatus(err error) int {
	if errors.Is(err, domain.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("invalid %s: failed %q", fe.Field(), fe.Tag())
}
