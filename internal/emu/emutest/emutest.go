// Package emutest provides a scripted emulator for tests
package emutest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jscyril/chiptune_player/api"
)

// ErrRejected is returned when opening a path marked as bad
var ErrRejected = errors.New("file rejected by emulator")

// Emulator is an in-memory api.Emulator. Every Play call fills the whole
// block with one value that increases per call.
type Emulator struct {
	mu sync.Mutex

	Path       string
	SampleRate int
	Tracks     []api.TrackMetadata
	Voices     []string
	FailStart  map[int]bool

	Current      int
	Started      int
	Tempo        float64
	StereoDepth  float64
	EchoDisabled bool
	Accurate     bool
	Mask         uint32
	FadeStart    time.Duration
	FadeLength   time.Duration
	Closed       bool
	Calls        int

	pos     int64
	ended   bool
	warning string
}

// New creates an emulator with trackCount tracks and four voices
func New(path string, trackCount, sampleRate int) *Emulator {
	tracks := make([]api.TrackMetadata, trackCount)
	for i := range tracks {
		tracks[i] = api.TrackMetadata{
			Game:       "Test Game",
			Song:       fmt.Sprintf("Song %d", i+1),
			Length:     30 * time.Second,
			FadeLength: api.FadeUnspecified,
		}
	}
	return &Emulator{
		Path:       path,
		SampleRate: sampleRate,
		Tracks:     tracks,
		Voices:     []string{"Square 1", "Square 2", "Triangle", "Noise"},
		Current:    -1,
	}
}

func (e *Emulator) TrackCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Tracks)
}

func (e *Emulator) TrackInfo(index int) (api.TrackMetadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.Tracks) {
		return api.TrackMetadata{}, fmt.Errorf("no track %d", index)
	}
	return e.Tracks[index], nil
}

func (e *Emulator) StartTrack(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailStart[index] {
		return fmt.Errorf("track %d is corrupt", index)
	}
	e.Current = index
	e.Started++
	e.pos = 0
	e.ended = false
	return nil
}

func (e *Emulator) Play(out [][2]float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	v := float64(e.Calls%1000) / 1000
	for i := range out {
		out[i] = [2]float64{v, -v}
	}
	e.pos += int64(len(out))
	return len(out)
}

// End marks the current track as finished
func (e *Emulator) End() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ended = true
}

func (e *Emulator) TrackEnded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ended
}

func (e *Emulator) Tell() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tell()
}

func (e *Emulator) tell() time.Duration {
	if e.SampleRate <= 0 {
		return 0
	}
	return time.Duration(e.pos) * time.Second / time.Duration(e.SampleRate)
}

func (e *Emulator) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = int64(pos) * int64(e.SampleRate) / int64(time.Second)
	return nil
}

func (e *Emulator) SetTempo(tempo float64) {
	e.mu.Lock()
	e.Tempo = tempo
	e.mu.Unlock()
}

func (e *Emulator) SetStereoDepth(depth float64) {
	e.mu.Lock()
	e.StereoDepth = depth
	e.mu.Unlock()
}

func (e *Emulator) SetEchoDisabled(disabled bool) {
	e.mu.Lock()
	e.EchoDisabled = disabled
	e.mu.Unlock()
}

func (e *Emulator) MuteVoices(mask uint32) {
	e.mu.Lock()
	e.Mask = mask
	e.mu.Unlock()
}

func (e *Emulator) EnableAccuracy(enabled bool) {
	e.mu.Lock()
	e.Accurate = enabled
	e.mu.Unlock()
}

func (e *Emulator) SetFade(start, length time.Duration) {
	e.mu.Lock()
	e.FadeStart, e.FadeLength = start, length
	e.mu.Unlock()
}

func (e *Emulator) VoiceCount() int {
	return len(e.Voices)
}

func (e *Emulator) VoiceName(index int) string {
	if index < 0 || index >= len(e.Voices) {
		return ""
	}
	return e.Voices[index]
}

// Warn queues a warning for the next Warning call
func (e *Emulator) Warn(msg string) {
	e.mu.Lock()
	e.warning = msg
	e.mu.Unlock()
}

func (e *Emulator) Warning() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.warning
	e.warning = ""
	return w
}

func (e *Emulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closed = true
	return nil
}

// State is a copy of the emulator's observable fields
type State struct {
	Current      int
	Started      int
	Tempo        float64
	StereoDepth  float64
	EchoDisabled bool
	Accurate     bool
	Mask         uint32
	FadeStart    time.Duration
	FadeLength   time.Duration
	Closed       bool
}

// State returns the current knob values for assertions
func (e *Emulator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Current:      e.Current,
		Started:      e.Started,
		Tempo:        e.Tempo,
		StereoDepth:  e.StereoDepth,
		EchoDisabled: e.EchoDisabled,
		Accurate:     e.Accurate,
		Mask:         e.Mask,
		FadeStart:    e.FadeStart,
		FadeLength:   e.FadeLength,
		Closed:       e.Closed,
	}
}

// Opener serves emulators for a fixed set of paths
type Opener struct {
	mu       sync.Mutex
	tracks   map[string]int
	rejected map[string]bool
	opened   []*Emulator
}

// NewOpener creates an opener where each path has the given track count
func NewOpener(tracks map[string]int) *Opener {
	return &Opener{tracks: tracks, rejected: make(map[string]bool)}
}

// Reject makes every later open of path fail
func (o *Opener) Reject(path string) {
	o.mu.Lock()
	o.rejected[path] = true
	o.mu.Unlock()
}

func (o *Opener) Open(path string, byMemory bool, sampleRate int) (api.Emulator, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	count, ok := o.tracks[path]
	if !ok || o.rejected[path] {
		return nil, fmt.Errorf("%w: %s", ErrRejected, path)
	}
	e := New(path, count, sampleRate)
	o.opened = append(o.opened, e)
	return e, nil
}

// Last returns the most recently opened emulator, nil if none
func (o *Opener) Last() *Emulator {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.opened) == 0 {
		return nil
	}
	return o.opened[len(o.opened)-1]
}

// Opened returns how many emulators were opened
func (o *Opener) Opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}
