package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jscyril/chiptune_player/api"
	playerrors "github.com/jscyril/chiptune_player/pkg/errors"
)

const (
	// DefaultFade is the fade applied when fade-out is on and the track
	// does not specify its own.
	DefaultFade = 2 * time.Second
	// DisabledFade effectively turns fade-out off.
	DisabledFade = time.Millisecond

	SeekStep = time.Second

	MinTempo = 0.1
	MaxTempo = 2.0
)

// PlaybackConfig holds the user adjustable knobs applied to every track
type PlaybackConfig struct {
	Tempo        float64
	StereoDepth  float64
	EchoDisabled bool
	Accurate     bool
	FadeOut      bool
	FadeLength   time.Duration
	MuteMask     uint32
}

// DefaultPlaybackConfig returns the knobs used at startup
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		Tempo:      1.0,
		FadeOut:    true,
		FadeLength: DefaultFade,
	}
}

// GenStatus reports what Generate wrote
type GenStatus int

const (
	// GenInactive means no track is active; the output is silence.
	GenInactive GenStatus = iota
	// GenHeld means a track is active but paused or busy; the output is
	// silence and the last snapshot should stay on screen.
	GenHeld
	// GenProduced means the output holds emulator samples.
	GenProduced
)

// Session owns one emulator instance at a time. Control calls come from
// the orchestrator goroutine; Generate is called from the audio callback.
type Session struct {
	opener     api.Opener
	sampleRate int

	// mu guards the fields below. The audio path only ever TryLocks it and
	// every holder does bounded work.
	mu      sync.Mutex
	emu     api.Emulator
	path    string
	track   int
	active  bool
	meta    api.TrackMetadata
	lastErr string

	tempo       atomic.Uint64
	stereo      atomic.Uint64
	echoOff     atomic.Bool
	accurate    atomic.Bool
	fadeOut     atomic.Bool
	fadeLength  atomic.Int64
	muteMask    atomic.Uint32
	paused      atomic.Bool
	elapsed     atomic.Int64
	loadedCount atomic.Int32
}

// NewSession creates a session that opens files through opener
func NewSession(opener api.Opener, sampleRate int, cfg PlaybackConfig) *Session {
	s := &Session{opener: opener, sampleRate: sampleRate}
	s.tempo.Store(math.Float64bits(cfg.Tempo))
	s.stereo.Store(math.Float64bits(cfg.StereoDepth))
	s.echoOff.Store(cfg.EchoDisabled)
	s.accurate.Store(cfg.Accurate)
	s.fadeOut.Store(cfg.FadeOut)
	s.fadeLength.Store(int64(cfg.FadeLength))
	s.muteMask.Store(cfg.MuteMask)
	return s
}

// Load releases the current file and opens path. On failure nothing stays
// loaded and TrackCount reports 0.
func (s *Session) Load(path string, byMemory bool) error {
	s.mu.Lock()
	old := s.emu
	s.emu = nil
	s.path = ""
	s.track = 0
	s.active = false
	s.meta = api.TrackMetadata{}
	s.mu.Unlock()

	s.loadedCount.Store(0)
	s.elapsed.Store(0)
	if old != nil {
		old.Close()
	}

	emu, err := s.opener.Open(path, byMemory, s.sampleRate)
	if err != nil {
		return s.fail("load", path, err)
	}
	emu.EnableAccuracy(s.accurate.Load())

	s.mu.Lock()
	s.emu = emu
	s.path = path
	s.lastErr = ""
	s.mu.Unlock()
	s.loadedCount.Store(int32(emu.TrackCount()))
	return nil
}

// StartTrack starts track index of the loaded file, applying the current
// knobs and fade. On any failure the previously active track, if any,
// keeps playing.
func (s *Session) StartTrack(index int) (api.TrackMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emu == nil {
		return api.TrackMetadata{}, s.failLocked("start track", "", playerrors.ErrNoFileLoaded)
	}
	if count := s.emu.TrackCount(); index < 0 || index >= count {
		return api.TrackMetadata{}, s.failLocked("start track", s.path,
			fmt.Errorf("%w: %d of %d", playerrors.ErrTrackOutOfRange, index+1, count))
	}

	meta, err := s.emu.TrackInfo(index)
	if err != nil {
		return api.TrackMetadata{}, s.failLocked("track info", s.path, err)
	}
	if err := s.emu.StartTrack(index); err != nil {
		return api.TrackMetadata{}, s.failLocked("start track", s.path, err)
	}
	meta.ResolvePlayLength()

	s.emu.SetTempo(math.Float64frombits(s.tempo.Load()))
	s.emu.MuteVoices(s.muteMask.Load())
	s.emu.SetStereoDepth(math.Float64frombits(s.stereo.Load()))
	s.emu.SetEchoDisabled(s.echoOff.Load())
	s.emu.EnableAccuracy(s.accurate.Load())
	s.emu.SetFade(meta.PlayLength, s.fadeFor(meta))

	s.track = index
	s.meta = meta
	s.active = true
	s.lastErr = ""
	s.paused.Store(false)
	s.elapsed.Store(0)
	return meta, nil
}

// fadeFor resolves the fade length of a track
func (s *Session) fadeFor(meta api.TrackMetadata) time.Duration {
	if meta.FadeLength >= 0 {
		return meta.FadeLength
	}
	if !s.fadeOut.Load() {
		return DisabledFade
	}
	if l := time.Duration(s.fadeLength.Load()); l > 0 {
		return l
	}
	return DefaultFade
}

// TrackCount returns the number of tracks in the loaded file, 0 if none
func (s *Session) TrackCount() int {
	return int(s.loadedCount.Load())
}

// IsEnded reports whether the active track has finished, fade included
func (s *Session) IsEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.emu.TrackEnded()
}

// Generate fills out with the next samples. It never blocks: when the
// session is busy on another goroutine it writes silence instead.
func (s *Session) Generate(out [][2]float64) GenStatus {
	if !s.mu.TryLock() {
		silence(out)
		return GenHeld
	}
	defer s.mu.Unlock()

	if !s.active {
		silence(out)
		return GenInactive
	}
	if s.paused.Load() {
		silence(out)
		return GenHeld
	}
	n := s.emu.Play(out)
	if n < 0 {
		n = 0
	}
	silence(out[n:])
	s.elapsed.Store(int64(s.emu.Tell()))
	return GenProduced
}

func silence(out [][2]float64) {
	for i := range out {
		out[i] = [2]float64{}
	}
}

// SeekForward moves one second ahead, clamped to the play length
func (s *Session) SeekForward() error {
	return s.seek(SeekStep)
}

// SeekBackward moves one second back, clamped to the track start
func (s *Session) SeekBackward() error {
	return s.seek(-SeekStep)
}

func (s *Session) seek(delta time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}
	cur := s.emu.Tell()
	// past the play length the fade is running; forward seeks stay put
	target := min(max(cur+delta, 0), max(cur, s.meta.PlayLength))
	if target == cur {
		return nil
	}
	if err := s.emu.Seek(target); err != nil {
		return s.failLocked("seek", s.path, err)
	}
	s.elapsed.Store(int64(s.emu.Tell()))
	return nil
}

// SetTempo sets the playback speed multiplier
func (s *Session) SetTempo(tempo float64) error {
	if tempo < MinTempo-1e-9 || tempo > MaxTempo+1e-9 {
		return playerrors.ErrInvalidTempo
	}
	s.tempo.Store(math.Float64bits(tempo))
	s.apply(func(e api.Emulator) { e.SetTempo(tempo) })
	return nil
}

// SetStereoDepth sets the stereo echo depth
func (s *Session) SetStereoDepth(depth float64) {
	s.stereo.Store(math.Float64bits(depth))
	s.apply(func(e api.Emulator) { e.SetStereoDepth(depth) })
}

// SetEchoDisabled turns the format's echo effect off or on
func (s *Session) SetEchoDisabled(disabled bool) {
	s.echoOff.Store(disabled)
	s.apply(func(e api.Emulator) { e.SetEchoDisabled(disabled) })
}

// SetMuteMask mutes every voice whose bit is set
func (s *Session) SetMuteMask(mask uint32) {
	s.muteMask.Store(mask)
	s.apply(func(e api.Emulator) { e.MuteVoices(mask) })
}

// SetAccuracy toggles accurate emulation. Emulators pick it up at the next
// track start.
func (s *Session) SetAccuracy(accurate bool) {
	s.accurate.Store(accurate)
	s.apply(func(e api.Emulator) { e.EnableAccuracy(accurate) })
}

// SetFadeOut turns the default fade on or off and reapplies it to the
// active track.
func (s *Session) SetFadeOut(on bool) {
	s.fadeOut.Store(on)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.emu.SetFade(s.meta.PlayLength, s.fadeFor(s.meta))
	}
}

func (s *Session) apply(fn func(api.Emulator)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emu != nil {
		fn(s.emu)
	}
}

// SetPaused holds or resumes sample generation
func (s *Session) SetPaused(paused bool) {
	s.paused.Store(paused)
}

// Paused reports whether generation is held
func (s *Session) Paused() bool {
	return s.paused.Load()
}

// CurrentTime returns the position in the active track
func (s *Session) CurrentTime() time.Duration {
	return time.Duration(s.elapsed.Load())
}

// Metadata returns the active track's metadata
func (s *Session) Metadata() (api.TrackMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta, s.active
}

// Path returns the loaded file, empty if none
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Track returns the index of the active track
func (s *Session) Track() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// VoiceNames lists the voices of the loaded file
func (s *Session) VoiceNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emu == nil {
		return nil
	}
	names := make([]string, s.emu.VoiceCount())
	for i := range names {
		names[i] = s.emu.VoiceName(i)
	}
	return names
}

// MuteMask returns the current mute mask
func (s *Session) MuteMask() uint32 {
	return s.muteMask.Load()
}

// LastError returns and clears the latest failure or emulator warning
func (s *Session) LastError() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.lastErr
	s.lastErr = ""
	if msg == "" && s.emu != nil {
		msg = s.emu.Warning()
	}
	return msg, msg != ""
}

// Close releases the loaded emulator
func (s *Session) Close() error {
	s.mu.Lock()
	emu := s.emu
	s.emu = nil
	s.active = false
	s.mu.Unlock()

	s.loadedCount.Store(0)
	if emu == nil {
		return nil
	}
	return emu.Close()
}

func (s *Session) fail(op, path string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failLocked(op, path, err)
}

func (s *Session) failLocked(op, path string, err error) error {
	var pe *playerrors.PlayerError
	if !errors.As(err, &pe) {
		err = playerrors.NewPlayerError(op, path, err)
	}
	s.lastErr = err.Error()
	return err
}
