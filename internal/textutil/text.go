// Package textutil holds the tokenisation and sentence handling shared by
// the local embedder, theme labelling and extractive summaries.
package textutil

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that",
		"these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such",
		"into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off",
		"own", "same", "too", "very", "can", "will", "just", "don", "should", "now", "not", "no", "we",
		"our", "you", "your", "they", "their", "he", "she", "his", "her", "has", "have", "had", "do",
		"does", "did", "which", "who", "what", "when", "where", "how", "all", "any", "each", "also",
		"may", "more", "most", "other", "some", "there", "here", "would", "could", "one", "i", "me", "my",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// IsStopword reports whether the lower-case token carries no topical meaning.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// Tokens returns the lower-case word tokens of text, including stopwords.
func Tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Terms returns the lower-case tokens of text with stopwords and
// single-character tokens removed.
func Terms(text string) []string {
	raw := Tokens(text)
	out := raw[:0]
	for _, t := range raw {
		if utf8.RuneCountInString(t) < 2 || IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SplitSentences splits content on sentence terminators and newlines.
func SplitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// Truncate shortens s to at most limit runes, cutting at a word boundary
// when one is close, and appends an ellipsis when anything was removed.
func Truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "…"
}

// Summarise returns up to maxSentences sentences of text ranked by term
// frequency, in their original order.
func Summarise(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	sentences := SplitSentences(text)
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " ")
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range Terms(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		terms := Terms(sent)
		score := 0.0
		for _, tok := range terms {
			score += freq[tok] / maxF
		}
		if l := float64(len(Tokens(sent))); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, 0, maxSentences)
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " ")
}
