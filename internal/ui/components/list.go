package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// LineList shows the newest Height lines of a growing list, each cut to
// the display width
type LineList struct {
	Title      string
	Lines      []string
	Height     int
	Width      int
	Empty      string
	TitleStyle lipgloss.Style
	LineStyle  lipgloss.Style
}

// NewLineList creates a new line list
func NewLineList(title string, height, width int) LineList {
	return LineList{
		Title:  title,
		Height: height,
		Width:  width,
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		LineStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
}

// SetLines replaces the list content, oldest first
func (l *LineList) SetLines(lines []string) {
	l.Lines = lines
}

// Visible returns the lines that fit, oldest first
func (l LineList) Visible() []string {
	lines := l.Lines
	if l.Height > 0 && len(lines) > l.Height {
		lines = lines[len(lines)-l.Height:]
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = Truncate(line, l.Width)
	}
	return out
}

// View renders the list
func (l LineList) View() string {
	var sb strings.Builder
	if l.Title != "" {
		sb.WriteString(l.TitleStyle.Render(l.Title))
		sb.WriteString("\n")
	}

	visible := l.Visible()
	if len(visible) == 0 {
		sb.WriteString(l.Empty)
		return sb.String()
	}
	for i, line := range visible {
		sb.WriteString(l.LineStyle.Render(line))
		if i < len(visible)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Truncate cuts s to width display cells, marking the cut with "…".
// A width of zero or less leaves s unchanged.
func Truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
