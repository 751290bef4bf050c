// Package extractors turns uploaded files into pages of paragraphs.
//
// Each subpackage handles one family of formats and implements
// driven.ContentExtractor. The Registry selects one by file extension.
// Helpers in this package are shared by the subpackages: paragraph
// splitting, page splitting on form feeds and running external tools.
package extractors

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps lower-case extensions to extractors. A later registration
// for the same extension replaces the earlier one.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.ContentExtractor
}

// NewRegistry creates a registry holding the given extractors.
func NewRegistry(extractors ...driven.ContentExtractor) *Registry {
	r := &Registry{extractors: make(map[string]driven.ContentExtractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor for all of its supported extensions.
func (r *Registry) Register(extractor driven.ContentExtractor) {
	if extractor == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range extractor.SupportedExtensions() {
		r.extractors[normalise(ext)] = extractor
	}
}

// Get returns the extractor for ext, or domain.ErrUnsupportedFileType.
func (r *Registry) Get(ext string) (driven.ContentExtractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[normalise(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, ext)
	}
	return e, nil
}

// Extensions returns every extension with a registered extractor, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalise(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
