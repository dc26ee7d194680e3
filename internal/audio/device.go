package audio

import (
	"fmt"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	playerrors "github.com/jscyril/chiptune_player/pkg/errors"
)

// DefaultLatency is the device buffer length
const DefaultLatency = time.Second / 10

// Device is the opened audio output
type Device struct {
	SampleRate beep.SampleRate
	BufferSize int
}

// OpenDevice initializes the speaker and starts pulling from s
func OpenDevice(sampleRate int, latency time.Duration, s beep.Streamer) (*Device, error) {
	if latency <= 0 {
		latency = DefaultLatency
	}
	sr := beep.SampleRate(sampleRate)
	d := &Device{SampleRate: sr, BufferSize: sr.N(latency)}

	if err := speaker.Init(sr, d.BufferSize); err != nil {
		return nil, playerrors.NewPlayerError("speaker init", "", fmt.Errorf("%w: %v", playerrors.ErrAudioInit, err))
	}
	speaker.Play(s)
	return d, nil
}

// Close stops playback and releases the device
func (d *Device) Close() {
	speaker.Clear()
	speaker.Close()
}
