package api

import "time"

// Emulator is an opened music file able to render its tracks to PCM.
// Implementations are not safe for concurrent use; the session serializes
// every call.
type Emulator interface {
	TrackCount() int
	TrackInfo(index int) (TrackMetadata, error)
	StartTrack(index int) error

	// Play renders up to len(out) stereo frames in [-1, 1] and returns the
	// number written. It must not allocate or block.
	Play(out [][2]float64) int
	TrackEnded() bool
	Tell() time.Duration
	Seek(pos time.Duration) error

	SetTempo(tempo float64)
	SetStereoDepth(depth float64)
	SetEchoDisabled(disabled bool)
	MuteVoices(mask uint32)
	EnableAccuracy(enabled bool)
	SetFade(start, length time.Duration)

	VoiceCount() int
	VoiceName(index int) string

	// Warning returns and clears a non-fatal problem noticed while loading
	// or playing.
	Warning() string
	Close() error
}

// Opener opens a file as an Emulator rendering at sampleRate.
type Opener interface {
	Open(path string, byMemory bool, sampleRate int) (Emulator, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(path string, byMemory bool, sampleRate int) (Emulator, error)

func (f OpenerFunc) Open(path string, byMemory bool, sampleRate int) (Emulator, error) {
	return f(path, byMemory, sampleRate)
}
