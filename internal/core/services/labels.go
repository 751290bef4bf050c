package services

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/doclens/internal/textutil"
)

const (
	labelTerms        = 3
	fallbackLabelSize = 48
)

// labelGroups derives a short label for every group of passage texts.
//
// Terms are weighted by their frequency within the group and by how few other
// groups use them, so each label names what sets its group apart. Terms of
// the query itself are skipped while other candidates remain. A group with no
// usable terms is labelled with the start of its representative passage.
func labelGroups(groups [][]int, texts []string, query string, reps []int) []string {
	queryTerms := make(map[string]bool)
	for _, t := range textutil.Terms(query) {
		queryTerms[t] = true
	}

	tfs := make([]map[string]int, len(groups))
	groupFreq := make(map[string]int)
	for g, group := range groups {
		tf := make(map[string]int)
		for _, idx := range group {
			for _, term := range textutil.Terms(texts[idx]) {
				tf[term]++
			}
		}
		for term := range tf {
			groupFreq[term]++
		}
		tfs[g] = tf
	}

	labels := make([]string, len(groups))
	n := float64(len(groups))
	for g, tf := range tfs {
		terms := topTerms(tf, groupFreq, n, queryTerms)
		if len(terms) == 0 {
			labels[g] = textutil.Truncate(texts[reps[g]], fallbackLabelSize)
			continue
		}
		labels[g] = capitalise(strings.Join(terms, ", "))
	}
	return labels
}

// topTerms returns up to labelTerms terms of tf ordered by weight, then alphabetically.
func topTerms(tf map[string]int, groupFreq map[string]int, groups float64, exclude map[string]bool) []string {
	type weighted struct {
		term   string
		weight float64
	}

	candidates := make([]weighted, 0, len(tf))
	for term, count := range tf {
		if exclude[term] {
			continue
		}
		w := float64(count) * math.Log(1+groups/float64(groupFreq[term]))
		candidates = append(candidates, weighted{term, w})
	}
	if len(candidates) == 0 && len(exclude) > 0 {
		return topTerms(tf, groupFreq, groups, nil)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].weight != candidates[j].weight {
			return candidates[i].weight > candidates[j].weight
		}
		return candidates[i].term < candidates[j].term
	})

	if len(candidates) > labelTerms {
		candidates = candidates[:labelTerms]
	}
	terms := make([]string, len(candidates))
	for i, c := range candidates {
		terms[i] = c.term
	}
	return terms
}

func capitalise(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
