package api

import (
	"path/filepath"
	"time"
)

// FadeUnspecified marks a track whose metadata carries no fade length.
const FadeUnspecified time.Duration = -1

// DefaultPlayLength is used when a track reports neither a length nor a loop.
const DefaultPlayLength = 150 * time.Second

// TrackMetadata describes one track of a loaded file. A fresh value is
// produced every time a track starts.
type TrackMetadata struct {
	System    string `json:"system"`
	Game      string `json:"game"`
	Song      string `json:"song"`
	Author    string `json:"author"`
	Copyright string `json:"copyright"`
	Comment   string `json:"comment"`
	Dumper    string `json:"dumper"`

	Length      time.Duration `json:"length"`
	IntroLength time.Duration `json:"intro_length"`
	LoopLength  time.Duration `json:"loop_length"`
	FadeLength  time.Duration `json:"fade_length"`
	PlayLength  time.Duration `json:"play_length"`
}

// ResolvePlayLength fills PlayLength from the other timing fields when the
// emulator left it empty.
func (m *TrackMetadata) ResolvePlayLength() {
	if m.PlayLength > 0 {
		return
	}
	switch {
	case m.Length > 0:
		m.PlayLength = m.Length
	case m.LoopLength > 0:
		m.PlayLength = m.IntroLength + 2*m.LoopLength
	default:
		m.PlayLength = DefaultPlayLength
	}
}

// DisplayTitle returns the game name, falling back to the file name.
func (m TrackMetadata) DisplayTitle(path string) string {
	if m.Game != "" {
		return m.Game
	}
	return filepath.Base(path)
}

// PlaybackState is the transport state of the loaded file
type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StateLoaded
	StatePlaying
	StatePaused
	StateEnded
)

func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// CommandType identifies a user command
type CommandType int

const (
	CmdQuit CommandType = iota
	CmdNextTrack
	CmdPrevTrack
	CmdNextFile
	CmdPrevFile
	CmdTogglePause
	CmdSeekForward
	CmdSeekBackward
	CmdTempoUp
	CmdTempoDown
	CmdToggleAccuracy
	CmdCycleStereo
	CmdToggleEcho
	CmdToggleFade
	CmdToggleLoop
	CmdToggleShuffle
	CmdReset
	CmdToggleVoice
)

// Command is one entry of the command stream. Voice is 1-based and only
// meaningful for CmdToggleVoice.
type Command struct {
	Type  CommandType
	Voice int
}

// EventType identifies the kind of player event
type EventType int

const (
	EventTrackStarted EventType = iota
	EventTrackEnded
	EventFileLoaded
	EventError
	EventStateChange
)

// AllEventTypes lists every event the orchestrator publishes
func AllEventTypes() []EventType {
	return []EventType{EventTrackStarted, EventTrackEnded, EventFileLoaded, EventError, EventStateChange}
}

func (t EventType) String() string {
	switch t {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventFileLoaded:
		return "file_loaded"
	case EventError:
		return "error"
	case EventStateChange:
		return "state_change"
	default:
		return "unknown"
	}
}

// AudioEvent is published by the orchestrator on the event bus
type AudioEvent struct {
	Type    EventType
	Path    string
	Track   int
	State   PlaybackState
	Message string
}
