package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/doclens/internal/core/domain"
)

const pollInterval = 150 * time.Millisecond

type statusFunc func(ctx context.Context, id string) (*domain.Document, error)

type progressItem struct {
	id   string
	name string
	doc  *domain.Document
}

// pollMsg carries the latest records, keyed by document ID.
type pollMsg map[string]*domain.Document

type tickMsg time.Time

// progressModel shows one progress bar per queued document until every
// document reaches a terminal status.
type progressModel struct {
	ctx      context.Context
	status   statusFunc
	items    []progressItem
	bar      progress.Model
	quit     key.Binding
	interval time.Duration
	done     bool
	aborted  bool
}

func newProgressModel(ctx context.Context, status statusFunc, results []domain.UploadResult) progressModel {
	m := progressModel{
		ctx:      ctx,
		status:   status,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "stop watching")),
		interval: pollInterval,
	}
	for _, r := range results {
		if r.Accepted() {
			m.items = append(m.items, progressItem{id: r.DocumentID, name: r.FileName})
		}
	}
	return m
}

func (m progressModel) Init() tea.Cmd {
	return m.poll()
}

func (m progressModel) poll() tea.Cmd {
	ctx, status := m.ctx, m.status
	ids := make([]string, len(m.items))
	for i, it := range m.items {
		ids[i] = it.id
	}
	return func() tea.Msg {
		docs := make(pollMsg, len(ids))
		for _, id := range ids {
			if doc, err := status(ctx, id); err == nil {
				docs[id] = doc
			}
		}
		return docs
	}
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.quit) {
			m.aborted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if w := msg.Width - 40; w > 10 && w < 60 {
			m.bar.Width = w
		}
	case pollMsg:
		for i := range m.items {
			if doc, ok := msg[m.items[i].id]; ok {
				m.items[i].doc = doc
			}
		}
		if m.finished() {
			m.done = true
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
	case tickMsg:
		return m, m.poll()
	}
	return m, nil
}

func (m progressModel) finished() bool {
	for _, it := range m.items {
		if it.doc == nil || !it.doc.Status.IsTerminal() {
			return false
		}
	}
	return true
}

func (m progressModel) View() string {
	var b strings.Builder
	for _, it := range m.items {
		pct, state := 0, domain.StatusQueued
		msg := ""
		if it.doc != nil {
			pct, state, msg = it.doc.Progress, it.doc.Status, it.doc.Message
			if it.doc.Error != "" {
				msg = it.doc.Error
			}
		}
		fmt.Fprintf(&b, "%s %s\n  %s %s %s\n",
			labelStyle.Render(it.id), it.name,
			m.bar.ViewAs(float64(pct)/100),
			statusStyle(state).Render(state.String()),
			mutedStyle.Render(msg))
	}
	if !m.done && !m.aborted {
		b.WriteString(mutedStyle.Render("\nq: "+m.quit.Help().Desc) + "\n")
	}
	return b.String()
}

// documents returns the last seen record of every item.
func (m progressModel) documents() []domain.Document {
	docs := make([]domain.Document, 0, len(m.items))
	for _, it := range m.items {
		if it.doc != nil {
			docs = append(docs, *it.doc)
		}
	}
	return docs
}
