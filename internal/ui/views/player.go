package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/chiptune_player/api"
	"github.com/jscyril/chiptune_player/internal/audio"
	"github.com/jscyril/chiptune_player/internal/errlog"
	"github.com/jscyril/chiptune_player/internal/player"
	"github.com/jscyril/chiptune_player/internal/ui/components"
	"github.com/samber/lo"
)

// PlayerView displays the playback status of one tick
type PlayerView struct {
	Width       int
	Height      int
	Help        []string
	Status      player.Status
	ProgressBar components.ProgressBar
	Scope       components.Scope
	Errors      components.LineList

	// Styles
	TitleStyle    lipgloss.Style
	InfoStyle     lipgloss.Style
	NoticeStyle   lipgloss.Style
	MutedStyle    lipgloss.Style
	VoiceStyle    lipgloss.Style
	StatusStyle   lipgloss.Style
	ControlsStyle lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewPlayerView creates a new player view
func NewPlayerView(width, height int, help []string, scopeWidth, scopeHeight, errRows int) PlayerView {
	errs := components.NewLineList("Errors", errRows, width-6)
	errs.Empty = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("none")

	return PlayerView{
		Width:       width,
		Height:      height,
		Help:        help,
		ProgressBar: components.NewProgressBar(width - 6),
		Scope:       components.NewScope(scopeWidth, scopeHeight),
		Errors:      errs,
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		InfoStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		NoticeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		MutedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Strikethrough(true),
		VoiceStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		ControlsStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2),
	}
}

// SetSize updates the view dimensions
func (v *PlayerView) SetSize(width, height int) {
	v.Width = width
	v.Height = height
	v.ProgressBar.Width = width - 6
	v.Errors.Width = width - 6
}

// SetStatus updates the shown status and visualization frame
func (v *PlayerView) SetStatus(s player.Status, frame audio.Frame) {
	v.Status = s
	v.ProgressBar.SetProgress(s.Elapsed, s.Total)
	v.ProgressBar.Paused = s.State == api.StatePaused
	v.Scope.SetFrame(frame)
	v.Errors.SetLines(lo.Map(s.Errors, func(e errlog.Entry, _ int) string { return e.String() }))
}

// View renders the player view
func (v PlayerView) View() string {
	s := v.Status
	width := v.Width - 6
	var sb strings.Builder

	sb.WriteString(v.ControlsStyle.Render(strings.Join(v.Help, "\n")))
	sb.WriteString("\n\n")

	if s.Path == "" {
		sb.WriteString(v.TitleStyle.Render("♪ Nothing loaded"))
		sb.WriteString("\n")
	} else {
		sb.WriteString(v.ProgressBar.View())
		sb.WriteString("\n")
		sb.WriteString(v.TitleStyle.Render(components.Truncate(s.Title(), width)))
		sb.WriteString("\n")
		sb.WriteString(v.InfoStyle.Render(s.TrackLine()))
		sb.WriteString("  ")
		sb.WriteString(v.StatusStyle.Render(fmt.Sprintf("file %d / %d", s.FileIndex+1, s.FileCount)))
		sb.WriteString("\n")
		if s.Metadata.Author != "" || s.Metadata.Copyright != "" {
			sb.WriteString(v.InfoStyle.Render(components.Truncate(strings.Join(lo.Compact([]string{s.Metadata.Author, s.Metadata.Copyright}), " · "), width)))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(v.NoticeStyle.Render(components.Truncate(s.Notice, width)))
	sb.WriteString("\n")
	sb.WriteString(v.renderVoices())
	sb.WriteString("\n")
	sb.WriteString(v.StatusStyle.Render(v.renderKnobs()))
	sb.WriteString("\n\n")
	sb.WriteString(v.Scope.View())
	sb.WriteString("\n\n")
	sb.WriteString(v.Errors.View())

	return v.BorderStyle.Width(v.Width - 2).Render(sb.String())
}

func (v PlayerView) renderVoices() string {
	if len(v.Status.Voices) == 0 {
		return ""
	}
	parts := lo.Map(v.Status.Voices, func(voice player.Voice, i int) string {
		label := fmt.Sprintf("%d:%s", i+1, voice.Name)
		if voice.Muted {
			return v.MutedStyle.Render(label)
		}
		return v.VoiceStyle.Render(label)
	})
	return strings.Join(parts, "  ")
}

func (v PlayerView) renderKnobs() string {
	s := v.Status
	return fmt.Sprintf("%s  tempo %.1f  stereo %.1f  echo %s  accurate %s  fade %s  loop %s  shuffle %s",
		s.State, s.Playback.Tempo, s.Playback.StereoDepth,
		onOff(!s.Playback.EchoDisabled), onOff(s.Playback.Accurate), onOff(s.Playback.FadeOut),
		onOff(s.Loop), onOff(s.Shuffle))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
