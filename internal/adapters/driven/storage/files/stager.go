// Package files stages uploaded bytes on the local filesystem.
//
// Uploads are written to the upload directory as <doc_id>.<ext> and moved to
// the processed directory once the orchestrator has finished with them.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
)

// Ensure Stager implements the interface.
var _ driven.FileStager = (*Stager)(nil)

// Stager writes uploads under uploadDir and archives them to processedDir.
type Stager struct {
	uploadDir    string
	processedDir string
}

// NewStager creates both directories if they do not exist.
func NewStager(uploadDir, processedDir string) (*Stager, error) {
	for _, dir := range []string{uploadDir, processedDir} {
		if dir == "" {
			return nil, fmt.Errorf("staging directory: %w", domain.ErrInvalidInput)
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Stager{uploadDir: uploadDir, processedDir: processedDir}, nil
}

// UploadDir returns the staging directory.
func (s *Stager) UploadDir() string {
	return s.uploadDir
}

// ProcessedDir returns the archive directory.
func (s *Stager) ProcessedDir() string {
	return s.processedDir
}

// Stage writes content to a temporary file and renames it into place so a
// partially written upload is never visible under its final name.
func (s *Stager) Stage(ctx context.Context, docID, ext string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if docID == "" || filepath.Base(docID) != docID {
		return "", fmt.Errorf("stage %q: %w", docID, domain.ErrInvalidInput)
	}

	name := docID
	if ext != "" {
		name += "." + ext
	}
	path := filepath.Join(s.uploadDir, name)

	tmp, err := os.CreateTemp(s.uploadDir, "."+docID+"-*")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	return path, nil
}

// Archive moves path into the processed directory, replacing any earlier
// file of the same name. A missing source is reported as ErrNotFound.
func (s *Stager) Archive(_ context.Context, path string) (string, error) {
	dest := filepath.Join(s.processedDir, filepath.Base(path))

	err := os.Rename(path, dest)
	if err == nil {
		return dest, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("archive %s: %w", path, domain.ErrNotFound)
	}

	// Rename fails across filesystems; fall back to copy and remove.
	if err := copyFile(path, dest); err != nil {
		return "", fmt.Errorf("archive %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("archive %s: %w", path, err)
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
