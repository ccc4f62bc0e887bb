package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/sift/internal/meili"
	"github.com/five82/sift/internal/state"
)

const defaultRefresh = 250 * time.Millisecond

// Model renders the progress of awaited tasks from a state.Store.
type Model struct {
	store     *state.Store
	refresh   time.Duration
	themeName string
	styles    Styles
	spinner   spinner.Model
	snapshot  state.Snapshot
	width     int
	finished  bool
	aborted   bool
}

// NewModel builds a watch model reading from store.
func NewModel(store *state.Store, themeName string, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	th := GetTheme(themeName)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(th.Accent))
	return Model{
		store:     store,
		refresh:   refresh,
		themeName: th.Name,
		styles:    th.Styles(),
		spinner:   sp,
	}
}

// ThemeName returns the active theme, which the user may have cycled.
func (m Model) ThemeName() string {
	return m.themeName
}

// Aborted reports whether the user quit before every task finished.
func (m Model) Aborted() bool {
	return m.aborted
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchSnapshotCmd(m.store))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.aborted = !m.finished
			return m, tea.Quit
		case "t":
			m.setTheme(NextTheme(m.themeName))
		}
		return m, nil

	case tickMsg:
		return m, fetchSnapshotCmd(m.store)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		if m.snapshot.Done() {
			m.finished = true
			return m, tea.Quit
		}
		return m, tickCmd(m.refresh)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) setTheme(name string) {
	th := GetTheme(name)
	m.themeName = th.Name
	m.styles = th.Styles()
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(th.Accent))
}

// View implements tea.Model.
func (m Model) View() string {
	s := m.styles
	var b strings.Builder

	header := fmt.Sprintf("sift · %d task", len(m.snapshot.Tasks))
	if len(m.snapshot.Tasks) != 1 {
		header += "s"
	}
	b.WriteString(s.Header.Render(header))
	b.WriteString("\n")

	if len(m.snapshot.Tasks) == 0 {
		b.WriteString(s.MutedText.Render("  waiting for the first poll…"))
		b.WriteString("\n")
	}
	for _, p := range m.snapshot.Tasks {
		b.WriteString(m.renderRow(p))
		b.WriteString("\n")
	}

	footer := "q quit · t theme"
	if m.finished {
		footer = summary(m.snapshot)
	}
	b.WriteString(s.Footer.Render(footer))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderRow(p state.Progress) string {
	s := m.styles

	var marker string
	switch {
	case p.Succeeded():
		marker = s.SuccessText.Render("✓")
	case p.Done:
		marker = s.DangerText.Render("✗")
	default:
		marker = m.spinner.View()
	}

	status := p.Task.Status
	if !p.HasTask {
		status = meili.TaskEnqueued
	}

	parts := []string{
		marker,
		s.Text.Render(fmt.Sprintf("task %d", p.UID)),
		s.StatusStyle(status).Render(string(status)),
		s.MutedText.Render(attemptLabel(p)),
	}
	if p.HasTask && (p.Task.IndexUID != "" || p.Task.Type != "") {
		parts = append(parts, s.FaintText.Render(strings.TrimSpace(p.Task.IndexUID+" "+p.Task.Type)))
	}
	row := "  " + strings.Join(parts, " ")

	if p.Err != nil {
		row += "\n    " + s.DangerText.Render(errorLine(p.Err))
	}
	if m.width > 0 {
		row = lipgloss.NewStyle().MaxWidth(m.width).Render(row)
	}
	return row
}

func attemptLabel(p state.Progress) string {
	if p.Attempt == 0 {
		return "not polled yet"
	}
	if p.MaxAttempts == 0 {
		return fmt.Sprintf("attempt %d", p.Attempt)
	}
	return fmt.Sprintf("attempt %d/%d", p.Attempt, p.MaxAttempts)
}

func errorLine(err error) string {
	var failed *meili.TaskFailedError
	if errors.As(err, &failed) && failed.Err != nil {
		return failed.Err.Error()
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

func summary(snap state.Snapshot) string {
	failures := snap.Failures()
	if failures == 0 {
		return fmt.Sprintf("all %d succeeded", len(snap.Tasks))
	}
	return fmt.Sprintf("%d of %d failed", failures, len(snap.Tasks))
}

type tickMsg time.Time

type snapshotMsg state.Snapshot

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}
