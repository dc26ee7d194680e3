package player

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jscyril/chiptune_player/api"
	"github.com/jscyril/chiptune_player/internal/audio"
	"github.com/jscyril/chiptune_player/internal/emu/emutest"
	"github.com/jscyril/chiptune_player/internal/playlist"
	playerrors "github.com/jscyril/chiptune_player/pkg/errors"
	"github.com/jscyril/chiptune_player/pkg/events"
)

// fixedRand always returns the same value, clamped into range
type fixedRand int

func (f fixedRand) IntN(n int) int {
	return min(int(f), n-1)
}

type fixture struct {
	orch   *Orchestrator
	opener *emutest.Opener
}

func newFixture(t *testing.T, tracks map[string]int, files []string, opts Options) fixture {
	t.Helper()
	if opts.SampleRate == 0 {
		opts.SampleRate = 1000
	}
	if opts.Playback == (audio.PlaybackConfig{}) {
		opts.Playback = audio.DefaultPlaybackConfig()
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	opener := emutest.NewOpener(tracks)
	orch, err := New(opener, files, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { orch.Close() })
	return fixture{orch: orch, opener: opener}
}

func (f fixture) send(t *testing.T, cmds ...api.Command) {
	t.Helper()
	for _, c := range cmds {
		if !f.orch.Submit(c) {
			t.Fatalf("Submit(%v) dropped", c.Type)
		}
	}
	f.orch.Tick()
}

func (f fixture) endTrack() {
	f.opener.Last().End()
	f.orch.Tick()
}

func (f fixture) position(t *testing.T) (string, int) {
	t.Helper()
	st := f.orch.Status(0)
	return st.Path, st.Track
}

func threeByTwo() (map[string]int, []string) {
	return map[string]int{"f0.nsf": 2, "f1.nsf": 2, "f2.nsf": 2}, []string{"f0.nsf", "f1.nsf", "f2.nsf"}
}

func TestNewWithoutFiles(t *testing.T) {
	_, err := New(emutest.NewOpener(nil), nil, Options{})
	if !errors.Is(err, playerrors.ErrNoFiles) {
		t.Errorf("err = %v, want ErrNoFiles", err)
	}
}

func TestLinearTrackEndOrder(t *testing.T) {
	tracks, files := threeByTwo()
	f := newFixture(t, tracks, files, Options{})
	f.orch.Start()

	if path, track := f.position(t); path != "f0.nsf" || track != 0 {
		t.Fatalf("start at %s/%d, want f0.nsf/0", path, track)
	}

	want := []struct {
		path  string
		track int
	}{
		{"f0.nsf", 1},
		{"f1.nsf", 0},
		{"f1.nsf", 1},
	}
	for i, w := range want {
		f.endTrack()
		path, track := f.position(t)
		if path != w.path || track != w.track {
			t.Errorf("after track end %d: %s/%d, want %s/%d", i+1, path, track, w.path, w.track)
		}
		if st := f.orch.Status(0); st.State != api.StatePlaying {
			t.Errorf("after track end %d: state %v", i+1, st.State)
		}
		if got := f.opener.Last().State().FadeLength; got != audio.DefaultFade {
			t.Errorf("fade length = %v, want %v", got, audio.DefaultFade)
		}
	}
	if f.orch.Errors().Len() != 0 {
		t.Errorf("unexpected errors: %v", f.orch.Errors().Tail(5))
	}
}

func TestRejectedLoad(t *testing.T) {
	tracks, files := threeByTwo()
	f := newFixture(t, tracks, files, Options{})
	f.opener.Reject("f1.nsf")
	f.orch.Start()
	before := f.orch.Status(0).State

	f.send(t, api.Command{Type: api.CmdNextFile})

	st := f.orch.Status(10)
	if len(st.Errors) != 1 {
		t.Fatalf("error log has %d entries, want 1", len(st.Errors))
	}
	if !strings.Contains(st.Errors[0].Message, "f1.nsf") {
		t.Errorf("error should name the file: %q", st.Errors[0].Message)
	}
	if st.State != before {
		t.Errorf("state = %v, want %v", st.State, before)
	}

	f.orch.Tick()
	if f.orch.Errors().Len() != 1 {
		t.Error("later ticks should not add entries")
	}

	f.send(t, api.Command{Type: api.CmdNextFile})
	if path, track := f.position(t); path != "f2.nsf" || track != 0 {
		t.Errorf("next file after failure: %s/%d, want f2.nsf/0", path, track)
	}
	if f.orch.Errors().Len() != 1 {
		t.Error("successful load added an error")
	}
}

func TestTrackEndFailureHalts(t *testing.T) {
	f := newFixture(t, map[string]int{"a.nsf": 1, "b.nsf": 1}, []string{"a.nsf", "b.nsf"}, Options{})
	f.orch.Start()
	f.opener.Reject("b.nsf")
	opened := f.opener.Opened()

	f.endTrack()
	if st := f.orch.Status(0); st.State != api.StateEnded {
		t.Errorf("state = %v, want ended", st.State)
	}
	for i := 0; i < 5; i++ {
		f.orch.Tick()
	}
	if f.orch.Errors().Len() != 1 {
		t.Errorf("error log has %d entries, want 1", f.orch.Errors().Len())
	}
	if f.opener.Opened() != opened {
		t.Error("orchestrator retried on its own")
	}

	f.send(t, api.Command{Type: api.CmdNextFile})
	if st := f.orch.Status(0); st.State != api.StatePlaying || st.Path != "a.nsf" {
		t.Errorf("user command should recover, got %v %q", st.State, st.Path)
	}
}

func TestStartTrackFailureLogged(t *testing.T) {
	f := newFixture(t, map[string]int{"a.nsf": 3}, []string{"a.nsf"}, Options{})
	f.orch.Start()
	f.opener.Last().FailStart = map[int]bool{1: true}

	emu := f.opener.Last()
	emu.FailStart = map[int]bool{1: true}

	f.send(t, api.Command{Type: api.CmdNextTrack})
	if f.orch.Errors().Len() != 1 {
		t.Errorf("error log has %d entries, want 1", f.orch.Errors().Len())
	}
	st := f.orch.Status(0)
	if st.State != api.StatePlaying {
		t.Errorf("state = %v, want unchanged playing", st.State)
	}
	if st.Track != 0 || f.orch.seq.Cursor().Track != 0 {
		t.Errorf("status track %d, cursor track %d, want both 0", st.Track, f.orch.seq.Cursor().Track)
	}
	if st.Metadata.Song != "Song 1" || st.Total != 30*time.Second {
		t.Errorf("metadata = %+v, total %v", st.Metadata, st.Total)
	}
	if got := f.orch.Session().Generate(make([][2]float64, 16)); got != audio.GenProduced {
		t.Errorf("Generate after failed start = %v, want GenProduced", got)
	}

	// the next command retries the same track rather than skipping it
	emu.FailStart = nil
	f.send(t, api.Command{Type: api.CmdNextTrack})
	if st := f.orch.Status(0); st.Track != 1 || emu.State().Current != 1 {
		t.Errorf("retry played track %d (emulator %d), want 1", st.Track, emu.State().Current)
	}
	if f.orch.Errors().Len() != 1 {
		t.Errorf("error log has %d entries after retry, want 1", f.orch.Errors().Len())
	}
}

func TestFailedTrackEndAdvanceKeepsCursor(t *testing.T) {
	f := newFixture(t, map[string]int{"a.nsf": 3}, []string{"a.nsf"}, Options{})
	f.orch.Start()
	f.opener.Last().FailStart = map[int]bool{1: true}

	f.endTrack()
	st := f.orch.Status(0)
	if st.State != api.StateEnded || st.Track != 0 || f.orch.seq.Cursor().Track != 0 {
		t.Errorf("state %v, status track %d, cursor track %d", st.State, st.Track, f.orch.seq.Cursor().Track)
	}
	if f.orch.Errors().Len() != 1 {
		t.Errorf("error log has %d entries, want 1", f.orch.Errors().Len())
	}

	f.send(t, api.Command{Type: api.CmdPrevTrack})
	if st := f.orch.Status(0); st.Track != 0 || st.State != api.StatePlaying {
		t.Errorf("previous track from 0 gave %v track %d", st.State, st.Track)
	}
}

func TestFailRecordsPendingWarning(t *testing.T) {
	tests := []struct {
		name    string
		warning string
		want    []string
	}{
		{"no warning", "", []string{"boom"}},
		{"warning kept", "bad header", []string{"boom", "bad header"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]int{"a.nsf": 1}, []string{"a.nsf"}, Options{})
			f.orch.Start()
			if tt.warning != "" {
				f.opener.Last().Warn(tt.warning)
			}

			f.orch.fail(errors.New("boom"))
			f.orch.Tick()
			got := f.orch.Errors().Tail(5)
			if len(got) != len(tt.want) {
				t.Fatalf("error log = %v, want %v", got, tt.want)
			}
			for i, w := range tt.want {
				if got[i].Message != w {
					t.Errorf("entry %d = %q, want %q", i, got[i].Message, w)
				}
			}
		})
	}
}

func TestSessionFailureLoggedOnce(t *testing.T) {
	f := newFixture(t, map[string]int{"a.nsf": 3}, []string{"a.nsf"}, Options{})
	f.orch.Start()
	f.opener.Last().FailStart = map[int]bool{2: true}

	f.orch.startTrack(2)
	f.orch.Tick()
	if got := f.orch.Errors().Len(); got != 1 {
		t.Errorf("error log has %d entries, want 1: %v", got, f.orch.Errors().Tail(5))
	}
}

func TestLoopTakesPrecedence(t *testing.T) {
	tracks, files := threeByTwo()
	f := newFixture(t, tracks, files, Options{Policy: playlist.Policy{Shuffle: true}, Rand: fixedRand(0)})
	f.orch.Start()
	f.send(t, api.Command{Type: api.CmdToggleLoop})

	path, track := f.position(t)
	emu := f.opener.Last()
	for i := 0; i < 3; i++ {
		f.endTrack()
		if p, tr := f.position(t); p != path || tr != track {
			t.Fatalf("loop moved playback to %s/%d", p, tr)
		}
	}
	if got := emu.State().Started; got != 4 {
		t.Errorf("track started %d times, want 4", got)
	}

	f.send(t, api.Command{Type: api.CmdToggleLoop})
	f.endTrack()
	if p, _ := f.position(t); p == path {
		t.Error("shuffle should pick another file once loop is off")
	}
}

func TestShuffleStart(t *testing.T) {
	tracks, files := threeByTwo()
	f := newFixture(t, tracks, files, Options{Policy: playlist.Policy{Shuffle: true}, Rand: fixedRand(1)})
	f.orch.Start()
	if path, track := f.position(t); path != "f1.nsf" || track != 1 {
		t.Errorf("shuffled start = %s/%d, want f1.nsf/1", path, track)
	}
}

func TestMuteToggle(t *testing.T) {
	tracks, files := threeByTwo()
	f := newFixture(t, tracks, files, Options{})
	f.orch.Start()

	voice := func(n int) api.Command { return api.Command{Type: api.CmdToggleVoice, Voice: n} }

	f.send(t, voice(2))
	if got := f.opener.Last().State().Mask; got != 0b10 {
		t.Errorf("mask = %b, want 10", got)
	}
	st := f.orch.Status(0)
	if !st.Voices[1].Muted || st.Voices[0].Muted {
		t.Errorf("voices = %+v", st.Voices)
	}

	f.send(t, voice(2))
	if got := f.opener.Last().State().Mask; got != 0 {
		t.Errorf("toggling twice left mask %b", got)
	}

	f.send(t, voice(0), voice(10), voice(4))
	if got := f.orch.Status(0).Playback.MuteMask; got != 0b1000 {
		t.Errorf("out of range voices changed the mask: %b", got)
	}

	f.send(t, api.Command{Type: api.CmdNextFile})
	if got := f.opener.Last().State().Mask; got != 0 {
		t.Errorf("new file kept mask %b", got)
	}
}

func TestPauseToggle(t *testing.T) {
	tracks, files := threeByTwo()
	f := newFixture(t, tracks, files, Options{})
	f.orch.Start()

	pause := api.Command{Type: api.CmdTogglePause}
	f.send(t, pause)
	st := f.orch.Status(0)
	if st.State != api.StatePaused || st.Notice != "Music paused." || !f.orch.Session().Paused() {
		t.Errorf("after pause: %v %q", st.State, st.Notice)
	}

	f.opener.Last().End()
	f.orch.Tick()
	if f.orch.Status(0).State != api.StatePaused {
		t.Error("track end should wait while paused")
	}

	f.send(t, pause)
	st = f.orch.Status(0)
	if st.Notice != "Music unpaused." || f.orch.Session().Paused() {
		t.Errorf("after unpause: %v %q", st.State, st.Notice)
	}
}

func TestKnobCommands(t *testing.T) {
	tracks, files := threeByTwo()
	f := newFixture(t, tracks, files, Options{})
	f.orch.Start()

	repeat := func(c api.CommandType, n int) {
		for i := 0; i < n; i++ {
			f.send(t, api.Command{Type: c})
		}
	}

	repeat(api.CmdTempoUp, 15)
	if got := f.orch.Status(0).Playback.Tempo; got != 2.0 {
		t.Errorf("tempo = %v, want 2.0", got)
	}
	repeat(api.CmdTempoDown, 25)
	if got := f.opener.Last().State().Tempo; got != 0.1 {
		t.Errorf("emulator tempo = %v, want 0.1", got)
	}

	f.send(t, api.Command{Type: api.CmdToggleVoice, Voice: 1})
	f.send(t, api.Command{Type: api.CmdReset})
	if st := f.opener.Last().State(); st.Tempo != 1.0 || st.Mask != 0 {
		t.Errorf("reset left tempo %v mask %b", st.Tempo, st.Mask)
	}

	var depths []float64
	for i := 0; i < 4; i++ {
		f.send(t, api.Command{Type: api.CmdCycleStereo})
		depths = append(depths, f.opener.Last().State().StereoDepth)
	}
	if depths[0] != 0.2 || depths[1] != 0.4 || depths[2] != 0 || depths[3] != 0.2 {
		t.Errorf("stereo depth cycle = %v", depths)
	}

	tests := []struct {
		cmd    api.CommandType
		notice string
		check  func(emutest.State) bool
	}{
		{api.CmdToggleEcho, "SPC echo is disabled", func(s emutest.State) bool { return s.EchoDisabled }},
		{api.CmdToggleEcho, "SPC echo is enabled", func(s emutest.State) bool { return !s.EchoDisabled }},
		{api.CmdToggleAccuracy, "Accurate emulation on.", func(s emutest.State) bool { return s.Accurate }},
		{api.CmdToggleFade, "No fade out between songs.  May cause songs to play forever or a really long time.",
			func(s emutest.State) bool { return s.FadeLength == audio.DisabledFade }},
		{api.CmdToggleFade, "2 seconds of fade out between songs.",
			func(s emutest.State) bool { return s.FadeLength == audio.DefaultFade }},
	}
	for _, tt := range tests {
		f.send(t, api.Command{Type: tt.cmd})
		if got := f.orch.Status(0).Notice; got != tt.notice {
			t.Errorf("notice = %q, want %q", got, tt.notice)
		}
		if !tt.check(f.opener.Last().State()) {
			t.Errorf("%q not applied: %+v", tt.notice, f.opener.Last().State())
		}
	}
}

func TestPolicyToggles(t *testing.T) {
	tracks, files := threeByTwo()
	f := newFixture(t, tracks, files, Options{})
	f.orch.Start()

	f.send(t, api.Command{Type: api.CmdToggleShuffle})
	if st := f.orch.Status(0); !st.Shuffle || st.Notice != "Shuffle mode on." {
		t.Errorf("shuffle = %v, notice %q", st.Shuffle, st.Notice)
	}
	f.send(t, api.Command{Type: api.CmdToggleLoop})
	if st := f.orch.Status(0); !st.Loop || st.Notice != "Playing current track forever" {
		t.Errorf("loop = %v, notice %q", st.Loop, st.Notice)
	}
	f.send(t, api.Command{Type: api.CmdToggleLoop})
	if st := f.orch.Status(0); st.Loop || st.Notice != "Will play next track or stop at track end" {
		t.Errorf("loop = %v, notice %q", st.Loop, st.Notice)
	}
}

func TestTrackCommands(t *testing.T) {
	f := newFixture(t, map[string]int{"a.nsf": 3}, []string{"a.nsf"}, Options{})
	f.orch.Start()

	steps := []struct {
		cmd  api.CommandType
		want int
	}{
		{api.CmdPrevTrack, 0},
		{api.CmdNextTrack, 1},
		{api.CmdNextTrack, 2},
		{api.CmdNextTrack, 2},
		{api.CmdPrevTrack, 1},
		{api.CmdPrevTrack, 0},
	}
	for i, st := range steps {
		f.send(t, api.Command{Type: st.cmd})
		if _, track := f.position(t); track != st.want {
			t.Errorf("step %d: track %d, want %d", i, track, st.want)
		}
	}
	if got := f.opener.Last().State().Started; got != 6 {
		t.Errorf("tracks started %d times, want 6", got)
	}
}

func TestSeekCommands(t *testing.T) {
	f := newFixture(t, map[string]int{"a.nsf": 1}, []string{"a.nsf"}, Options{})
	f.orch.Start()

	f.send(t, api.Command{Type: api.CmdSeekBackward})
	f.send(t, api.Command{Type: api.CmdSeekForward}, api.Command{Type: api.CmdSeekForward})
	if got := f.orch.Status(0).Elapsed; got != 2*time.Second {
		t.Errorf("elapsed = %v, want 2s", got)
	}
	if f.orch.Errors().Len() != 0 {
		t.Error("seeking at a boundary should not be an error")
	}
}

func TestUnknownAndQuit(t *testing.T) {
	f := newFixture(t, map[string]int{"a.nsf": 1}, []string{"a.nsf"}, Options{})
	f.orch.Start()

	f.orch.Submit(api.Command{Type: api.CommandType(999)})
	if !f.orch.Tick() {
		t.Error("unknown command stopped the loop")
	}
	f.orch.Submit(api.Command{Type: api.CmdQuit})
	if f.orch.Tick() {
		t.Error("Tick should report false after quit")
	}
	if !f.orch.Status(0).Quit {
		t.Error("status should report quit")
	}
}

func TestSubmitQueueFull(t *testing.T) {
	f := newFixture(t, map[string]int{"a.nsf": 1}, []string{"a.nsf"}, Options{QueueSize: 2})
	cmd := api.Command{Type: api.CmdTempoUp}
	if !f.orch.Submit(cmd) || !f.orch.Submit(cmd) {
		t.Fatal("queue should accept two commands")
	}
	if f.orch.Submit(cmd) {
		t.Error("Submit should drop when the queue is full")
	}
}

func TestStatusText(t *testing.T) {
	f := newFixture(t, map[string]int{"/music/mm2.nsf": 24}, []string{"/music/mm2.nsf"}, Options{})
	if f.orch.Status(0).Title() != "" {
		t.Error("title before start should be empty")
	}
	f.orch.Start()

	st := f.orch.Status(0)
	if got := st.Title(); got != "Test Game: 1/24 Song 1 (0:30)" {
		t.Errorf("Title() = %q", got)
	}
	if got := st.TrackLine(); got != "Playing track 1 / 24." {
		t.Errorf("TrackLine() = %q", got)
	}
	if got := st.Notice; got != "Loaded file: /music/mm2.nsf" {
		t.Errorf("Notice = %q", got)
	}
	if st.FileCount != 1 || st.Total != 30*time.Second || len(st.Voices) != 4 {
		t.Errorf("status = %+v", st)
	}
}

func TestEventsPublished(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()
	ch := bus.SubscribeAll()

	f := newFixture(t, map[string]int{"a.nsf": 1}, []string{"a.nsf"}, Options{Bus: bus})
	f.orch.Start()

	var got []api.EventType
	for len(ch) > 0 {
		got = append(got, (<-ch).Type)
	}
	want := []api.EventType{api.EventStateChange, api.EventFileLoaded, api.EventStateChange, api.EventTrackStarted}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
}
