package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar shows the elapsed part of a track's play length
type ProgressBar struct {
	Width       int
	Current     time.Duration
	Total       time.Duration
	Paused      bool
	BarChar     string
	EmptyChar   string
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
	TimeStyle   lipgloss.Style
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int) ProgressBar {
	return ProgressBar{
		Width:       width,
		BarChar:     "█",
		EmptyChar:   "░",
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		TimeStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// SetProgress sets the current position
func (p *ProgressBar) SetProgress(current, total time.Duration) {
	p.Current = current
	p.Total = total
}

// Percent returns the elapsed fraction clamped to [0, 1]
func (p ProgressBar) Percent() float64 {
	if p.Total <= 0 || p.Current <= 0 {
		return 0
	}
	return min(1, float64(p.Current)/float64(p.Total))
}

// View renders "bar (mm:ss)/(mm:ss)"
func (p ProgressBar) View() string {
	clock := fmt.Sprintf("%s/%s", FormatClock(p.Current), FormatClock(p.Total))
	if p.Paused {
		clock += " paused"
	}

	barWidth := max(10, p.Width-lipgloss.Width(clock)-1)
	filled := int(float64(barWidth) * p.Percent())

	var sb strings.Builder
	sb.WriteString(p.FilledStyle.Render(strings.Repeat(p.BarChar, filled)))
	sb.WriteString(p.EmptyStyle.Render(strings.Repeat(p.EmptyChar, barWidth-filled)))
	sb.WriteString(" ")
	sb.WriteString(p.TimeStyle.Render(clock))
	return sb.String()
}

// FormatClock formats a duration as (mm:ss), truncating partial seconds
func FormatClock(d time.Duration) string {
	secs := int(max(0, d) / time.Second)
	return fmt.Sprintf("(%02d:%02d)", secs/60, secs%60)
}
