package ui

import (
	"fmt"
	"strings"

	"github.com/jscyril/chiptune_player/api"
	"github.com/jscyril/chiptune_player/internal/config"
	"github.com/samber/lo"
)

// binding ties the keys of one action to its command and help text
type binding struct {
	keys []string
	cmd  api.Command
	help string
}

func bindings(km config.KeyMap) []binding {
	return []binding{
		{km.PrevTrack, api.Command{Type: api.CmdPrevTrack}, "Previous track"},
		{km.NextTrack, api.Command{Type: api.CmdNextTrack}, "Next track"},
		{km.SeekForward, api.Command{Type: api.CmdSeekForward}, "Seek one second forward"},
		{km.SeekBack, api.Command{Type: api.CmdSeekBackward}, "Seek one second backward"},
		{km.NextFile, api.Command{Type: api.CmdNextFile}, "Play next file"},
		{km.PrevFile, api.Command{Type: api.CmdPrevFile}, "Play previous file"},
		{km.Pause, api.Command{Type: api.CmdTogglePause}, "Pause/unpause"},
		{km.StereoEcho, api.Command{Type: api.CmdCycleStereo}, "Normal/slight stereo echo/more stereo echo"},
		{km.EchoDisable, api.Command{Type: api.CmdToggleEcho}, "Toggle echo processing"},
		{km.Accuracy, api.Command{Type: api.CmdToggleAccuracy}, "Enable/disable accurate emulation"},
		{km.FadeOut, api.Command{Type: api.CmdToggleFade}, "Toggle fade out between songs"},
		{km.Loop, api.Command{Type: api.CmdToggleLoop}, "Toggle track looping (infinite playback)"},
		{km.Shuffle, api.Command{Type: api.CmdToggleShuffle}, "Toggle shuffle"},
		{km.TempoDown, api.Command{Type: api.CmdTempoDown}, "Slower tempo"},
		{km.TempoUp, api.Command{Type: api.CmdTempoUp}, "Faster tempo"},
		{km.ResetTempoMute, api.Command{Type: api.CmdReset}, "Reset tempo and turn channels back on"},
		{km.Quit, api.Command{Type: api.CmdQuit}, "Quit"},
	}
}

// KeyMap resolves key names as reported by bubbletea to commands
type KeyMap struct {
	commands map[string]api.Command
	help     []string
}

// NewKeyMap builds the lookup table. Digits 1-9 always toggle voices;
// configured bindings take precedence over them.
func NewKeyMap(km config.KeyMap) KeyMap {
	m := KeyMap{commands: make(map[string]api.Command)}
	for v := 1; v <= 9; v++ {
		m.commands[fmt.Sprint(v)] = api.Command{Type: api.CmdToggleVoice, Voice: v}
	}

	for _, b := range bindings(km) {
		for _, k := range b.keys {
			m.commands[k] = b.cmd
		}
		if len(b.keys) > 0 {
			m.help = append(m.help, fmt.Sprintf("%-12s%s", strings.Join(lo.Map(b.keys, displayKey), "/"), b.help))
		}
	}
	m.help = append(m.help, fmt.Sprintf("%-12s%s", "1-9", "Toggle channel on/off"))
	return m
}

// Lookup returns the command bound to key
func (m KeyMap) Lookup(key string) (api.Command, bool) {
	cmd, ok := m.commands[key]
	return cmd, ok
}

// Help returns one usage line per action
func (m KeyMap) Help() []string {
	return m.help
}

func displayKey(k string, _ int) string {
	switch k {
	case " ":
		return "Space"
	case "esc":
		return "Esc"
	case "left", "right", "up", "down":
		return strings.ToUpper(k[:1]) + k[1:]
	}
	if len(k) == 1 {
		return strings.ToUpper(k)
	}
	return k
}
