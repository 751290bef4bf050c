// Package llm holds the prompt handling shared by the theme summariser
// adapters in the openai and ollama subpackages.
package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/textutil"
)

// DefaultThemeSummaryPrompt is used when no PromptStore is configured or
// the store cannot provide the template.
const DefaultThemeSummaryPrompt = `Summarise what the passages below say about the question.

Question: %s

Answer in %d characters or less, using only the passages.

Passages:
%s

Summary:`

// ThemeSummaryPrompt renders the theme summary template with numbered passages.
func ThemeSummaryPrompt(store driven.PromptStore, query string, passages []string, maxLength int) string {
	template := DefaultThemeSummaryPrompt
	if store != nil {
		if loaded, err := store.Load(driven.PromptThemeSummary); err == nil && strings.TrimSpace(loaded) != "" {
			template = loaded
		}
	}

	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(p))
	}
	return fmt.Sprintf(template, query, maxLength, strings.TrimRight(b.String(), "\n"))
}

// SummaryTemperature keeps summaries close to the passages.
const SummaryTemperature = 0.2

// MaxTokens estimates a completion budget for maxLength characters.
func MaxTokens(maxLength int) int {
	// Rough estimate: 4 chars per token, with headroom
	return maxLength/4 + 16
}

// Clip trims a model answer to at most maxLength runes, ellipsis included.
func Clip(answer string, maxLength int) string {
	answer = strings.TrimSpace(answer)
	if maxLength <= 1 || utf8.RuneCountInString(answer) <= maxLength {
		return answer
	}
	return textutil.Truncate(answer, maxLength-1)
}
