// Package beepemu plays ordinary PCM files (wav, mp3, flac, ogg) through
// the emulator interface using beep decoders. Each file is one track with
// two voices, left and right.
package beepemu

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/faiface/beep"
	"github.com/jscyril/chiptune_player/api"
	playerrors "github.com/jscyril/chiptune_player/pkg/errors"
)

const (
	fastQuality     = 1
	accurateQuality = 6

	// stereoDelay is the cross-feed delay used for stereo depth
	stereoDelay = 20 * time.Millisecond
)

var _ api.Emulator = (*Emulator)(nil)

// Opener opens files with this backend
var Opener = api.OpenerFunc(Open)

// Emulator renders one decoded file
type Emulator struct {
	path    string
	src     beep.StreamSeekCloser
	format  beep.Format
	outRate beep.SampleRate
	meta    api.TrackMetadata

	resampler *beep.Resampler
	quality   int
	tempo     float64
	accurate  bool

	mask     uint32
	depth    float64
	echoOff  bool
	delay    [][2]float64
	delayPos int

	fadeStart time.Duration
	fadeLen   time.Duration
	started   bool
	ended     bool
	closed    bool
	warning   string
}

// Open decodes path for playback at sampleRate
func Open(path string, byMemory bool, sampleRate int) (api.Emulator, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if !IsSupported(path) {
		return nil, fmt.Errorf("%w: %s", playerrors.ErrInvalidFormat, filepath.Ext(path))
	}
	r, err := openSource(path, byMemory)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	src, format, err := decode(r, path)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("decode: %w", err)
	}

	outRate := beep.SampleRate(sampleRate)
	e := &Emulator{
		path:    path,
		src:     src,
		format:  format,
		outRate: outRate,
		tempo:   1,
		quality: fastQuality,
		delay:   make([][2]float64, max(outRate.N(stereoDelay), 1)),
	}
	e.meta, e.warning = readMetadata(path, format.SampleRate.D(src.Len()))
	return e, nil
}

// readMetadata fills track metadata from the file's tags
func readMetadata(path string, length time.Duration) (api.TrackMetadata, string) {
	meta := api.TrackMetadata{
		System:     strings.ToUpper(strings.TrimPrefix(filepath.Ext(path), ".")),
		Song:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Length:     length,
		PlayLength: length,
		FadeLength: api.FadeUnspecified,
	}

	f, err := os.Open(path)
	if err != nil {
		return meta, fmt.Sprintf("read tags: %v", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return meta, ""
		}
		return meta, fmt.Sprintf("read tags: %v", err)
	}
	if m.Title() != "" {
		meta.Song = m.Title()
	}
	meta.Author = m.Artist()
	meta.Game = m.Album()
	meta.Comment = m.Comment()
	if ft := m.FileType(); ft != "" {
		meta.System = string(ft)
	}
	return meta, ""
}

func (e *Emulator) TrackCount() int { return 1 }

func (e *Emulator) TrackInfo(index int) (api.TrackMetadata, error) {
	if index != 0 {
		return api.TrackMetadata{}, fmt.Errorf("no track %d", index)
	}
	return e.meta, nil
}

// StartTrack rewinds the file and builds a fresh resampler
func (e *Emulator) StartTrack(index int) error {
	if e.closed {
		return playerrors.ErrEmulatorClosed
	}
	if index != 0 {
		return fmt.Errorf("no track %d", index)
	}
	if err := e.src.Seek(0); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	e.quality = fastQuality
	if e.accurate {
		e.quality = accurateQuality
	}
	e.resampler = beep.Resample(e.quality, e.format.SampleRate, e.outRate, e.src)
	e.applyTempo()
	clear(e.delay)
	e.delayPos = 0
	e.started = true
	e.ended = false
	return nil
}

func (e *Emulator) Play(out [][2]float64) int {
	if e.closed || !e.started || e.ended {
		return 0
	}
	n, ok := e.resampler.Stream(out)
	if !ok || n < len(out) {
		e.ended = true
	}

	now := e.Tell()
	step := time.Duration(float64(time.Second) * e.tempo / float64(e.outRate))
	for i := 0; i < n; i++ {
		l, r := out[i][0], out[i][1]
		if e.mask&1 != 0 {
			l = 0
		}
		if e.mask&2 != 0 {
			r = 0
		}
		if e.depth > 0 && !e.echoOff {
			d := e.delay[e.delayPos]
			e.delay[e.delayPos] = [2]float64{l, r}
			e.delayPos = (e.delayPos + 1) % len(e.delay)
			l, r = l+d[1]*e.depth, r+d[0]*e.depth
		}
		g := e.gain(now - time.Duration(n-i)*step)
		if g <= 0 {
			e.ended = true
			clear(out[i:n])
			return i
		}
		out[i] = [2]float64{l * g, r * g}
	}
	return n
}

// gain is the fade multiplier at track time t
func (e *Emulator) gain(t time.Duration) float64 {
	if e.fadeLen <= 0 || t < e.fadeStart {
		return 1
	}
	return 1 - float64(t-e.fadeStart)/float64(e.fadeLen)
}

func (e *Emulator) TrackEnded() bool { return e.ended }

// Tell returns the position in the source file
func (e *Emulator) Tell() time.Duration {
	return e.format.SampleRate.D(e.src.Position())
}

func (e *Emulator) Seek(pos time.Duration) error {
	if e.closed {
		return playerrors.ErrEmulatorClosed
	}
	n := min(max(e.format.SampleRate.N(pos), 0), e.src.Len())
	if err := e.src.Seek(n); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

func (e *Emulator) SetTempo(tempo float64) {
	e.tempo = tempo
	e.applyTempo()
}

func (e *Emulator) applyTempo() {
	if e.resampler == nil {
		return
	}
	e.resampler.SetRatio(float64(e.format.SampleRate) / float64(e.outRate) * e.tempo)
}

func (e *Emulator) SetStereoDepth(depth float64) { e.depth = depth }
func (e *Emulator) SetEchoDisabled(disabled bool) { e.echoOff = disabled }
func (e *Emulator) MuteVoices(mask uint32)        { e.mask = mask }

// EnableAccuracy selects the resampler quality used from the next start
func (e *Emulator) EnableAccuracy(enabled bool) { e.accurate = enabled }

func (e *Emulator) SetFade(start, length time.Duration) {
	e.fadeStart, e.fadeLen = start, length
}

func (e *Emulator) VoiceCount() int { return 2 }

func (e *Emulator) VoiceName(index int) string {
	switch index {
	case 0:
		return "Left"
	case 1:
		return "Right"
	default:
		return ""
	}
}

func (e *Emulator) Warning() string {
	w := e.warning
	e.warning = ""
	return w
}

// Close releases the decoder. Later starts and seeks fail with
// ErrEmulatorClosed.
func (e *Emulator) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.src.Close()
}
