package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/doclens/internal/core/domain"
	"github.com/custodia-labs/doclens/internal/textutil"
)

// Palette shared by every command's output.
var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorAccent  = lipgloss.Color("#06B6D4")
	colorMuted   = lipgloss.Color("#6C7086")
	colorSuccess = lipgloss.Color("#A6E3A1")
	colorWarning = lipgloss.Color("#F9E2AF")
	colorError   = lipgloss.Color("#F38BA8")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	quoteStyle   = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(colorMuted)
)

// snippetWidth bounds passage text in terminal output.
const snippetWidth = 240

func statusStyle(s domain.DocumentStatus) lipgloss.Style {
	switch s {
	case domain.StatusCompleted:
		return successStyle
	case domain.StatusError:
		return errorStyle
	case domain.StatusProcessing:
		return warningStyle
	default:
		return mutedStyle
	}
}

// renderStatus formats one status record.
func renderStatus(doc *domain.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(doc.ID), doc.FileName)
	fmt.Fprintf(&b, "  Status:   %s (%d%%)\n", statusStyle(doc.Status).Render(doc.Status.String()), doc.Progress)
	if doc.Message != "" {
		fmt.Fprintf(&b, "  Message:  %s\n", doc.Message)
	}
	if doc.Error != "" {
		fmt.Fprintf(&b, "  Error:    %s\n", errorStyle.Render(doc.Error))
	}
	if doc.Status == domain.StatusCompleted {
		fmt.Fprintf(&b, "  Pages:    %d\n", doc.PageCount)
		fmt.Fprintf(&b, "  Paragraphs: %d\n", doc.ParagraphCount)
	}
	fmt.Fprintf(&b, "  Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	return b.String()
}

// renderUploadResults lists one line per submitted file.
func renderUploadResults(results []domain.UploadResult) string {
	var b strings.Builder
	for _, r := range results {
		if r.Accepted() {
			fmt.Fprintf(&b, "  %s %s  %s\n", successStyle.Render("queued"), r.DocumentID, r.FileName)
			continue
		}
		fmt.Fprintf(&b, "  %s %s: %s\n", errorStyle.Render("rejected"), r.FileName, r.Message)
	}
	return b.String()
}

// renderSummaries lists indexed documents.
func renderSummaries(docs []domain.DocumentSummary) string {
	if len(docs) == 0 {
		return "No documents indexed.\n"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Documents") + "\n\n")
	for i := range docs {
		d := &docs[i]
		fmt.Fprintf(&b, "  %s  %s\n", labelStyle.Render(d.DocumentID), d.FileName)
		fmt.Fprintf(&b, "    %s\n", mutedStyle.Render(fmt.Sprintf(
			"%s, %d pages, %d paragraphs, %d chunks, %s",
			d.FileType, d.PageCount, d.ParagraphCount, d.ChunkCount, d.EmbeddingModel.Name)))
	}
	fmt.Fprintf(&b, "\nTotal: %d documents\n", len(docs))
	return b.String()
}

// location renders a zero-based page/paragraph pair for people.
func location(page, paragraph int) string {
	return fmt.Sprintf("page %d, paragraph %d", page+1, paragraph+1)
}

// renderPassages formats a query result.
func renderPassages(result *domain.QueryResult) string {
	if result.IsEmpty() {
		return "No matching passages.\n"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Passages") + "\n\n")
	for i, p := range result.Passages {
		name := p.FileName
		if name == "" {
			name = p.DocumentID
		}
		fmt.Fprintf(&b, "  [%d] %s %s %s\n", i+1, labelStyle.Render(name),
			mutedStyle.Render(location(p.PageIndex, p.ParagraphIndex)),
			mutedStyle.Render(fmt.Sprintf("(%.3f)", p.Score)))
		b.WriteString(indent(quoteStyle.Render(textutil.Truncate(p.Text, snippetWidth)), "      "))
		b.WriteString("\n\n")
	}
	return b.String()
}

// renderThemes formats themes with their citations.
func renderThemes(themes []domain.Theme) string {
	if len(themes) == 0 {
		return "No themes found.\n"
	}
	var b strings.Builder
	for i, t := range themes {
		fmt.Fprintf(&b, "%s %s\n", titleStyle.Render(fmt.Sprintf("Theme %d:", i+1)), labelStyle.Render(t.Label))
		if t.Summary != "" {
			b.WriteString(indent(t.Summary, "  "))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(fmt.Sprintf("%d citations from %d documents",
			len(t.Citations), len(t.DocumentIDs()))))
		for _, c := range t.Citations {
			name := c.FileName
			if name == "" {
				name = c.DocumentID
			}
			fmt.Fprintf(&b, "    - %s, %s: %s\n", name, location(c.PageIndex, c.ParagraphIndex), c.Snippet)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
