// Package player runs the cooperative control loop: it applies user
// commands, notices finished tracks and decides what plays next.
package player

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jscyril/chiptune_player/api"
	"github.com/jscyril/chiptune_player/internal/audio"
	"github.com/jscyril/chiptune_player/internal/errlog"
	"github.com/jscyril/chiptune_player/internal/playlist"
	playerrors "github.com/jscyril/chiptune_player/pkg/errors"
	"github.com/jscyril/chiptune_player/pkg/events"
)

// DefaultTickInterval is the loop cadence, about 100 Hz
const DefaultTickInterval = 10 * time.Millisecond

const defaultQueueSize = 64

// Options configures an Orchestrator
type Options struct {
	SampleRate   int
	ByMemory     bool
	Playback     audio.PlaybackConfig
	Policy       playlist.Policy
	ErrorLogSize int
	QueueSize    int
	Rand         playlist.Rand
	Logger       *slog.Logger
	Bus          *events.EventBus
}

// Orchestrator owns the playback context for one run. Tick, Status and
// Start must be called from one goroutine; Submit is safe from any.
type Orchestrator struct {
	session  *audio.Session
	seq      *playlist.Sequencer
	errs     *errlog.Log
	bus      *events.EventBus
	log      *slog.Logger
	byMemory bool

	cfg      audio.PlaybackConfig
	state    api.PlaybackState
	notice   string
	commands chan api.Command
	quit     bool
}

// New builds the playback context over files. An empty list is a fatal
// startup error.
func New(opener api.Opener, files []string, opts Options) (*Orchestrator, error) {
	if len(files) == 0 {
		return nil, playerrors.NewPlayerError("start", "", playerrors.ErrNoFiles)
	}
	seq, err := playlist.NewSequencer(files, opts.Policy, opts.Rand)
	if err != nil {
		return nil, playerrors.NewPlayerError("start", "", err)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Playback.Tempo == 0 {
		opts.Playback.Tempo = 1
	}

	return &Orchestrator{
		session:  audio.NewSession(opener, opts.SampleRate, opts.Playback),
		seq:      seq,
		errs:     errlog.New(opts.ErrorLogSize),
		bus:      opts.Bus,
		log:      opts.Logger,
		byMemory: opts.ByMemory,
		cfg:      opts.Playback,
		commands: make(chan api.Command, opts.QueueSize),
	}, nil
}

// Session returns the emulator session fed to the audio bridge
func (o *Orchestrator) Session() *audio.Session {
	return o.session
}

// Errors returns the error log
func (o *Orchestrator) Errors() *errlog.Log {
	return o.errs
}

// Start loads the first file: a random one under shuffle, else the first
func (o *Orchestrator) Start() {
	o.loadAndPlay(o.seq.Start())
}

// Submit queues a command for the next tick. It reports false when the
// queue is full and the command was dropped.
func (o *Orchestrator) Submit(cmd api.Command) bool {
	select {
	case o.commands <- cmd:
		return true
	default:
		return false
	}
}

// Tick runs one loop iteration and reports whether the loop should go on
func (o *Orchestrator) Tick() bool {
	if o.state == api.StatePlaying && o.session.IsEnded() {
		o.handleTrackEnd()
	}

drain:
	for {
		select {
		case cmd := <-o.commands:
			o.apply(cmd)
		default:
			break drain
		}
	}

	if msg, ok := o.session.LastError(); ok {
		o.record(msg)
	}
	return !o.quit
}

// Close releases the loaded file
func (o *Orchestrator) Close() error {
	return o.session.Close()
}

func (o *Orchestrator) handleTrackEnd() {
	o.setState(api.StateEnded)
	o.publish(api.AudioEvent{Type: api.EventTrackEnded, Path: o.session.Path(), Track: o.session.Track()})

	d, err := o.seq.NextTrackOrFile(o.session.TrackCount())
	if err != nil {
		o.fail(err)
		return
	}
	o.log.Debug("track ended", "next", d.Kind.String(), "path", d.Path, "track", d.Track)

	switch d.Kind {
	case playlist.ReplayTrack, playlist.NextTrack:
		o.startTrack(d.Track)
	case playlist.NextFile:
		o.loadAndPlay(d.Path)
	}
}

// loadAndPlay loads path with a fresh voice set and starts its first track
func (o *Orchestrator) loadAndPlay(path string) bool {
	o.cfg.MuteMask = 0
	o.session.SetMuteMask(0)

	if err := o.session.Load(path, o.byMemory); err != nil {
		o.fail(err)
		return false
	}
	o.setState(api.StateLoaded)
	o.notice = fmt.Sprintf("Loaded file: %s", path)
	o.log.Info("file loaded", "path", path, "tracks", o.session.TrackCount())
	o.publish(api.AudioEvent{Type: api.EventFileLoaded, Path: path})

	return o.startTrack(o.seq.StartTrack(o.session.TrackCount()))
}

// startTrack moves the sequencer cursor only when the session accepted the
// track, so a failure leaves both on what is still playing.
func (o *Orchestrator) startTrack(index int) bool {
	meta, err := o.session.StartTrack(index)
	if err != nil {
		o.fail(err)
		return false
	}
	o.seq.CommitTrack(index)
	o.setState(api.StatePlaying)
	path := o.session.Path()
	o.log.Info("track started", "path", path, "track", index+1, "of", o.session.TrackCount(), "song", meta.Song)
	o.publish(api.AudioEvent{Type: api.EventTrackStarted, Path: path, Track: index})
	return true
}

func (o *Orchestrator) setState(s api.PlaybackState) {
	if o.state == s {
		return
	}
	o.state = s
	o.publish(api.AudioEvent{Type: api.EventStateChange, State: s})
}

// fail records err. The session keeps its own copy of a failure as its last
// error; that copy is consumed here so the next tick does not log it again,
// while a pending emulator warning is still logged after err.
func (o *Orchestrator) fail(err error) {
	o.record(err.Error())
	if msg, ok := o.session.LastError(); ok && msg != err.Error() {
		o.record(msg)
	}
}

func (o *Orchestrator) record(msg string) {
	e := o.errs.Append(msg)
	o.log.Warn("playback error", "msg", e.Message)
	o.publish(api.AudioEvent{Type: api.EventError, Path: o.session.Path(), Message: e.Message})
}

func (o *Orchestrator) publish(ev api.AudioEvent) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}
