package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// ErrUnknownPrompt is returned for a name with no built-in template.
var ErrUnknownPrompt = errors.New("unknown prompt")

// promptTemplate is a built-in prompt and the fmt verbs, in order, that
// every replacement must keep.
type promptTemplate struct {
	text  string
	verbs []rune
}

var builtinPrompts = map[string]promptTemplate{
	driven.PromptThemeSummary: {
		verbs: []rune{'s', 'd', 's'},
		text: `You are summarising one theme found in passages retrieved for a question.

Question: %s

Write a neutral summary of what the passages below say, in %d characters or less.
Use only the passages. Do not add facts, opinions or citations.

Passages:
%s

Summary:`,
	},
}

// PromptStore serves summariser prompts from <dir>/<name>.txt. A missing
// file is created from the built-in template; an empty file, or one whose
// placeholders do not match the built-in's, is ignored in favour of it.
type PromptStore struct {
	dir   string
	mu    sync.Mutex
	cache map[string]string
}

// NewPromptStore creates a prompt store rooted at dir (~/.doclens/prompts when empty).
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Load returns the template for name.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, ok := builtinPrompts[name]
	if !ok {
		return "", fmt.Errorf("load prompt %q: %w", name, ErrUnknownPrompt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prompt, ok := s.cache[name]; ok {
		return prompt, nil
	}
	prompt := s.resolve(name, builtin)
	s.cache[name] = prompt
	return prompt, nil
}

// Reload drops cached templates so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Path returns the file backing the named prompt.
func (s *PromptStore) Path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func (s *PromptStore) resolve(name string, builtin promptTemplate) string {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.writeDefault(path, builtin.text); err != nil {
			logger.Warn("prompts: %v", err)
		}
		return builtin.text
	}
	if err != nil {
		logger.Warn("prompts: reading %s: %v", path, err)
		return builtin.text
	}

	text := strings.TrimSpace(string(data))
	switch {
	case text == "":
		return builtin.text
	case !slices.Equal(formatVerbs(text), builtin.verbs):
		logger.Warn("prompts: %s must use the placeholders %s in that order; using the built-in prompt",
			path, verbList(builtin.verbs))
		return builtin.text
	}
	return text
}

func (s *PromptStore) writeDefault(path, text string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("write default prompt: %w", err)
	}
	return nil
}

// formatVerbs lists the fmt verbs in template, skipping %% escapes.
func formatVerbs(template string) []rune {
	var verbs []rune
	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' {
			continue
		}
		i++
		for i < len(runes) && strings.ContainsRune("+-# 0123456789.", runes[i]) {
			i++
		}
		if i < len(runes) && runes[i] != '%' {
			verbs = append(verbs, runes[i])
		}
	}
	return verbs
}

func verbList(verbs []rune) string {
	parts := make([]string, len(verbs))
	for i, v := range verbs {
		parts[i] = "%" + string(v)
	}
	return strings.Join(parts, ", ")
}
