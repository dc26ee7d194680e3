package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/chiptune_player/internal/audio"
)

// Scope draws the newest visualization frame as an oscilloscope trace
// with a peak meter beneath it
type Scope struct {
	Width      int
	Height     int
	Frame      *audio.Frame
	TraceChar  string
	TraceStyle lipgloss.Style
	AxisStyle  lipgloss.Style
	MeterStyle lipgloss.Style
}

// NewScope creates a scope of width columns and height rows
func NewScope(width, height int) Scope {
	return Scope{
		Width:      width,
		Height:     height,
		TraceChar:  "•",
		TraceStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		AxisStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
		MeterStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// SetFrame replaces the frame being drawn
func (s *Scope) SetFrame(f audio.Frame) {
	s.Frame = &f
}

// Rows maps each column to the row its averaged mono sample falls on.
// Row 0 is the top; an empty frame sits on the centre line.
func (s Scope) Rows() []int {
	if s.Width <= 0 || s.Height <= 0 {
		return nil
	}
	rows := make([]int, s.Width)
	centre := (s.Height - 1) / 2
	n := 0
	if s.Frame != nil {
		n = s.Frame.Len
	}
	for col := range rows {
		if n == 0 {
			rows[col] = centre
			continue
		}
		lo, hi := col*n/s.Width, (col+1)*n/s.Width
		if hi <= lo {
			hi = lo + 1
		}
		sum := 0.0
		for i := lo; i < hi && i < n; i++ {
			sum += (s.Frame.Samples[i][0] + s.Frame.Samples[i][1]) / 2
		}
		v := math.Max(-1, math.Min(1, sum/float64(hi-lo)))
		rows[col] = int(math.Round((1 - v) / 2 * float64(s.Height-1)))
	}
	return rows
}

// View renders the trace and the peak meter
func (s Scope) View() string {
	rows := s.Rows()
	if rows == nil {
		return ""
	}
	centre := (s.Height - 1) / 2

	grid := make([][]string, s.Height)
	for r := range grid {
		grid[r] = make([]string, s.Width)
		for c := range grid[r] {
			if r == centre {
				grid[r][c] = s.AxisStyle.Render("─")
			} else {
				grid[r][c] = " "
			}
		}
	}
	for c, r := range rows {
		grid[r][c] = s.TraceStyle.Render(s.TraceChar)
	}

	lines := make([]string, 0, s.Height+1)
	for _, row := range grid {
		lines = append(lines, strings.Join(row, ""))
	}
	lines = append(lines, s.meter())
	return strings.Join(lines, "\n")
}

func (s Scope) meter() string {
	peak := 0.0
	if s.Frame != nil {
		peak = math.Max(0, math.Min(1, s.Frame.Peak))
	}
	filled := int(math.Round(peak * float64(s.Width)))
	return s.MeterStyle.Render(strings.Repeat("▮", filled)) + strings.Repeat(" ", s.Width-filled)
}
