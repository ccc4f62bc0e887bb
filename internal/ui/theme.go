package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/sift/internal/meili"
)

// Theme defines the colors of the watch view.
type Theme struct {
	Name string

	Background string
	Surface    string
	Border     string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string

	StatusColors map[meili.TaskStatus]string
}

// Styles contains pre-built Lipgloss styles for a theme.
type Styles struct {
	Header      lipgloss.Style
	Footer      lipgloss.Style
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	DangerText  lipgloss.Style
	Box         lipgloss.Style

	statusColors map[meili.TaskStatus]string
	background   string
	muted        string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Bold(true).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Faint)).
			Padding(0, 1),
		Text:       lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),
		DangerText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),

		statusColors: t.StatusColors,
		background:   t.Background,
		muted:        t.Muted,
	}
}

// StatusStyle returns a badge style for status.
func (s Styles) StatusStyle(status meili.TaskStatus) lipgloss.Style {
	color := s.statusColors[status]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

var themes = map[string]Theme{
	"Dracula": draculaTheme(),
	"Slate":   slateTheme(),
}

var themeOrder = []string{"Dracula", "Slate"}

// GetTheme returns a theme by name, case-insensitively, falling back to
// Dracula.
func GetTheme(name string) Theme {
	if canonical, ok := LookupTheme(name); ok {
		return themes[canonical]
	}
	return draculaTheme()
}

// LookupTheme resolves name to a known theme name.
func LookupTheme(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	for _, known := range themeOrder {
		if strings.EqualFold(known, trimmed) {
			return known, true
		}
	}
	return "", false
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return append([]string(nil), themeOrder...)
}

func draculaTheme() Theme {
	// Dracula palette: https://draculatheme.com/contribute
	return Theme{
		Name: "Dracula",

		Background: "#21222c",
		Surface:    "#282a36", // background
		Border:     "#44475a", // current line

		Text:    "#f8f8f2", // foreground
		Muted:   "#bfbfbf",
		Faint:   "#6272a4", // comment
		Accent:  "#bd93f9", // purple
		Success: "#50fa7b", // green
		Warning: "#f1fa8c", // yellow
		Danger:  "#ff5555", // red

		StatusColors: map[meili.TaskStatus]string{
			meili.TaskEnqueued:   "#6272a4", // comment
			meili.TaskProcessing: "#8be9fd", // cyan
			meili.TaskSucceeded:  "#50fa7b", // green
			meili.TaskFailed:     "#ff5555", // red
		},
	}
}

func slateTheme() Theme {
	// Tailwind CSS Slate/Sky palette: https://tailwindcss.com/docs/colors
	return Theme{
		Name: "Slate",

		Background: "#020617", // slate-950
		Surface:    "#0f172a", // slate-900
		Border:     "#334155", // slate-700

		Text:    "#f1f5f9", // slate-100
		Muted:   "#94a3b8", // slate-400
		Faint:   "#64748b", // slate-500
		Accent:  "#38bdf8", // sky-400
		Success: "#22c55e", // green-500
		Warning: "#f59e0b", // amber-500
		Danger:  "#ef4444", // red-500

		StatusColors: map[meili.TaskStatus]string{
			meili.TaskEnqueued:   "#64748b", // slate-500
			meili.TaskProcessing: "#0ea5e9", // sky-500
			meili.TaskSucceeded:  "#16a34a", // green-600
			meili.TaskFailed:     "#dc2626", // red-600
		},
	}
}
