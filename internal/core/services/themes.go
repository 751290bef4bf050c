package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/core/ports/driven"
	"github.com/custodia-labs/doclens/internal/core/ports/driving"
	"github.com/custodia-labs/doclens/internal/logger"
	"github.com/custodia-labs/doclens/internal/textutil"
)

// Ensure ThemeDetector implements the interface.
var _ driving.ThemeService = (*ThemeDetector)(nil)

const (
	summarySentences = 2
	summaryMaxLength = 600
)

// ThemeDetector groups retrieved passages into labelled themes with citations.
type ThemeDetector struct {
	embedder   driven.EmbeddingService
	summariser driven.Summariser
	settings   domain.ThemeSettings
}

// NewThemeDetector creates a theme detector.
// embedder is used for passages that arrive without embeddings and may be nil
// when every passage carries one. summariser is optional.
func NewThemeDetector(
	embedder driven.EmbeddingService,
	summariser driven.Summariser,
	settings domain.ThemeSettings,
) *ThemeDetector {
	defaults := domain.DefaultAppSettings().Themes
	if settings.SimilarityThreshold <= 0 || settings.SimilarityThreshold > 1 {
		settings.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if settings.MaxThemes <= 0 {
		settings.MaxThemes = defaults.MaxThemes
	}
	if settings.SnippetLength <= 0 {
		settings.SnippetLength = defaults.SnippetLength
	}
	return &ThemeDetector{
		embedder:   embedder,
		summariser: summariser,
		settings:   settings,
	}
}

type rankedTheme struct {
	theme     domain.Theme
	size      int
	bestScore float64
}

// Identify clusters the passages of result into themes.
// An empty result yields an empty slice.
func (d *ThemeDetector) Identify(ctx context.Context, result *domain.QueryResult) ([]domain.Theme, error) {
	if result == nil || result.IsEmpty() {
		return []domain.Theme{}, nil
	}

	logger.Section("Theme Detection")
	passages := result.Passages

	embeddings, err := d.passageEmbeddings(ctx, passages)
	if err != nil {
		return nil, err
	}

	groups := clusterEmbeddings(embeddings, d.settings.SimilarityThreshold, d.settings.MaxThemes)
	logger.Debug("Clustered %d passages into %d groups", len(passages), len(groups))

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	reps := make([]int, len(groups))
	for g, group := range groups {
		reps[g] = representative(group, embeddings)
	}
	labels := labelGroups(groups, texts, result.Query, reps)

	ranked := make([]rankedTheme, 0, len(groups))
	for g, group := range groups {
		summary, err := d.summarise(ctx, result.Query, group, texts)
		if err != nil {
			return nil, fmt.Errorf("summarise theme %q: %w", labels[g], err)
		}

		citations := make([]domain.Citation, 0, len(group))
		best := passages[group[0]].Score
		for _, idx := range group {
			p := passages[idx]
			citations = append(citations, domain.Citation{
				DocumentID:     p.DocumentID,
				FileName:       p.FileName,
				PageIndex:      p.PageIndex,
				ParagraphIndex: p.ParagraphIndex,
				Snippet:        textutil.Truncate(p.Text, d.settings.SnippetLength),
				ChunkID:        p.ChunkID,
			})
			if p.Score > best {
				best = p.Score
			}
		}

		ranked = append(ranked, rankedTheme{
			theme: domain.Theme{
				Label:     labels[g],
				Summary:   summary,
				Citations: citations,
			},
			size:      len(group),
			bestScore: best,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].size != ranked[j].size {
			return ranked[i].size > ranked[j].size
		}
		return ranked[i].bestScore > ranked[j].bestScore
	})

	themes := make([]domain.Theme, len(ranked))
	for i, r := range ranked {
		themes[i] = r.theme
	}
	return themes, nil
}

// passageEmbeddings returns one embedding per passage, embedding the passages
// that arrived without one in a single batch.
func (d *ThemeDetector) passageEmbeddings(ctx context.Context, passages []domain.RetrievedPassage) ([][]float32, error) {
	embeddings := make([][]float32, len(passages))
	var missing []int
	for i, p := range passages {
		if len(p.Embedding) == 0 {
			missing = append(missing, i)
			continue
		}
		embeddings[i] = p.Embedding
	}
	if len(missing) == 0 {
		return embeddings, nil
	}
	if d.embedder == nil {
		return nil, fmt.Errorf("%d passages without embeddings: %w", len(missing), domain.ErrEmbeddingUnavailable)
	}

	texts := make([]string, len(missing))
	for i, idx := range missing {
		texts[i] = passages[idx].Text
	}
	vecs, err := d.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed passages: %w: %w", domain.ErrEmbeddingFailure, err)
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embed passages: got %d vectors for %d texts: %w",
			len(vecs), len(missing), domain.ErrEmbeddingFailure)
	}
	for i, idx := range missing {
		embeddings[idx] = vecs[i]
	}
	return embeddings, nil
}

func (d *ThemeDetector) summarise(ctx context.Context, query string, group []int, texts []string) (string, error) {
	members := make([]string, len(group))
	for i, idx := range group {
		members[i] = texts[idx]
	}

	if d.summariser != nil {
		summary, err := d.summariser.Summarise(ctx, query, members, summaryMaxLength)
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
		}
		return strings.TrimSpace(summary), nil
	}

	return textutil.Summarise(strings.Join(members, "\n"), summarySentences), nil
}
