package player

import (
	"fmt"
	"time"

	"github.com/jscyril/chiptune_player/api"
	"github.com/jscyril/chiptune_player/internal/audio"
	"github.com/jscyril/chiptune_player/internal/errlog"
	"github.com/samber/lo"
)

// Voice is one emulated sound channel as shown to the user
type Voice struct {
	Name  string
	Muted bool
}

// Status is everything the render sink shows for one tick
type Status struct {
	State      api.PlaybackState
	Path       string
	FileIndex  int
	FileCount  int
	Track      int
	TrackCount int
	Metadata   api.TrackMetadata
	Elapsed    time.Duration
	Total      time.Duration
	Voices     []Voice
	Notice     string
	Errors     []errlog.Entry
	Playback   audio.PlaybackConfig
	Loop       bool
	Shuffle    bool
	Quit       bool
}

// Title is the one-line summary "game: track/count song (m:ss)"
func (s Status) Title() string {
	if s.Path == "" {
		return ""
	}
	length := s.Metadata.Length
	if length <= 0 {
		length = s.Metadata.PlayLength
	}
	secs := int(length / time.Second)
	return fmt.Sprintf("%s: %d/%d %s (%d:%02d)",
		s.Metadata.DisplayTitle(s.Path), s.Track+1, s.TrackCount, s.Metadata.Song, secs/60, secs%60)
}

// TrackLine reports the track position within the file
func (s Status) TrackLine() string {
	if s.TrackCount == 0 {
		return ""
	}
	return fmt.Sprintf("Playing track %d / %d.", s.Track+1, s.TrackCount)
}

// Status returns the current state with up to errTail error log entries
func (o *Orchestrator) Status(errTail int) Status {
	mask := o.cfg.MuteMask
	voices := lo.Map(o.session.VoiceNames(), func(name string, i int) Voice {
		return Voice{Name: name, Muted: i < 32 && mask&(1<<i) != 0}
	})
	policy := o.seq.Policy()
	meta, ok := o.session.Metadata()
	if !ok {
		meta = api.TrackMetadata{}
	}

	return Status{
		State:      o.state,
		Path:       o.session.Path(),
		FileIndex:  o.seq.Cursor().Position,
		FileCount:  o.seq.Len(),
		Track:      o.session.Track(),
		TrackCount: o.session.TrackCount(),
		Metadata:   meta,
		Elapsed:    o.session.CurrentTime(),
		Total:      meta.PlayLength,
		Voices:     voices,
		Notice:     o.notice,
		Errors:     o.errs.Tail(errTail),
		Playback:   o.cfg,
		Loop:       policy.Loop,
		Shuffle:    policy.Shuffle,
		Quit:       o.quit,
	}
}
