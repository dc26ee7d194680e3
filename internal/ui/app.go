// Package ui is the terminal front end. It drives the orchestrator tick
// from the bubbletea event loop and renders the resulting status.
package ui

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jscyril/chiptune_player/api"
	"github.com/jscyril/chiptune_player/internal/audio"
	"github.com/jscyril/chiptune_player/internal/player"
	"github.com/jscyril/chiptune_player/internal/ui/views"
)

// Controller is the part of the orchestrator the UI drives
type Controller interface {
	Tick() bool
	Submit(cmd api.Command) bool
	Status(errTail int) player.Status
}

// FrameSource supplies the newest visualization frame
type FrameSource interface {
	Latest() audio.Frame
}

// Options configures the UI model
type Options struct {
	Keys         KeyMap
	TickInterval time.Duration
	ErrorTail    int
	ScopeWidth   int
	ScopeHeight  int
	Logger       *slog.Logger
}

// Model is the main bubbletea model
type Model struct {
	// Dimensions
	width  int
	height int

	ctrl     Controller
	frames   FrameSource
	keys     KeyMap
	interval time.Duration
	errTail  int
	log      *slog.Logger

	playerView views.PlayerView
	quitting   bool
}

// TickMsg is sent at the loop cadence to run one orchestrator tick
type TickMsg time.Time

// NewModel creates a new application model
func NewModel(ctrl Controller, frames FrameSource, opts Options) Model {
	if opts.TickInterval <= 0 {
		opts.TickInterval = player.DefaultTickInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := Model{
		width:    80,
		height:   24,
		ctrl:     ctrl,
		frames:   frames,
		keys:     opts.Keys,
		interval: opts.TickInterval,
		errTail:  opts.ErrorTail,
		log:      opts.Logger,
	}
	m.playerView = views.NewPlayerView(m.width, m.height, opts.Keys.Help(), opts.ScopeWidth, opts.ScopeHeight, opts.ErrorTail)
	m.refresh()
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickCmd(m.interval)
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playerView.SetSize(m.width, m.height)

	case TickMsg:
		running := m.ctrl.Tick()
		m.refresh()
		if !running {
			m.quitting = true
			return m, tea.Quit
		}
		return m, tickCmd(m.interval)

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			m.ctrl.Submit(api.Command{Type: api.CmdQuit})
			break
		}
		cmd, ok := m.keys.Lookup(key)
		if !ok {
			break
		}
		if !m.ctrl.Submit(cmd) {
			m.log.Warn("command dropped, queue full", "key", key, "command", cmd.Type)
		}
	}

	return m, nil
}

func (m *Model) refresh() {
	var frame audio.Frame
	if m.frames != nil {
		frame = m.frames.Latest()
	}
	m.playerView.SetStatus(m.ctrl.Status(m.errTail), frame)
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.playerView.View()
}

// Run starts the bubbletea program and blocks until the player quits
func Run(ctrl Controller, frames FrameSource, opts Options) error {
	p := tea.NewProgram(NewModel(ctrl, frames, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
