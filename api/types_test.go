package api

import (
	"testing"
	"time"
)

func TestResolvePlayLength(t *testing.T) {
	tests := []struct {
		name string
		meta TrackMetadata
		want time.Duration
	}{
		{"explicit play length", TrackMetadata{PlayLength: 5 * time.Second, Length: 9 * time.Second}, 5 * time.Second},
		{"length", TrackMetadata{Length: 90 * time.Second}, 90 * time.Second},
		{"intro and loop", TrackMetadata{IntroLength: 10 * time.Second, LoopLength: 20 * time.Second}, 50 * time.Second},
		{"nothing known", TrackMetadata{}, DefaultPlayLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.meta
			m.ResolvePlayLength()
			if m.PlayLength != tt.want {
				t.Errorf("PlayLength = %v, want %v", m.PlayLength, tt.want)
			}
		})
	}
}

func TestDisplayTitle(t *testing.T) {
	if got := (TrackMetadata{Game: "Mega Man 2"}).DisplayTitle("/x/mm2.nsf"); got != "Mega Man 2" {
		t.Errorf("DisplayTitle() = %q", got)
	}
	if got := (TrackMetadata{}).DisplayTitle("/x/mm2.nsf"); got != "mm2.nsf" {
		t.Errorf("DisplayTitle() fallback = %q", got)
	}
}

func TestPlaybackStateString(t *testing.T) {
	tests := []struct {
		state PlaybackState
		want  string
	}{
		{StateIdle, "idle"},
		{StateLoaded, "loaded"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
		{StateEnded, "ended"},
		{PlaybackState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
