package player

import (
	"fmt"
	"math"
	"time"

	"github.com/jscyril/chiptune_player/api"
	"github.com/jscyril/chiptune_player/internal/audio"
)

const (
	tempoStep  = 0.1
	depthStep  = 0.2
	maxDepth   = 0.5
	maxVoiceNo = 9
)

// apply runs one command. Unknown commands are ignored.
func (o *Orchestrator) apply(cmd api.Command) {
	switch cmd.Type {
	case api.CmdQuit:
		o.quit = true

	case api.CmdNextTrack:
		if track, ok := o.seq.NextTrack(o.session.TrackCount()); ok {
			o.startTrack(track)
		}

	case api.CmdPrevTrack:
		if o.session.TrackCount() > 0 {
			o.startTrack(o.seq.PreviousTrack())
		}

	case api.CmdNextFile:
		o.changeFile(o.seq.NextFile)

	case api.CmdPrevFile:
		o.changeFile(o.seq.PreviousFile)

	case api.CmdTogglePause:
		switch o.state {
		case api.StatePlaying:
			o.session.SetPaused(true)
			o.setState(api.StatePaused)
			o.notice = "Music paused."
		case api.StatePaused:
			o.session.SetPaused(false)
			o.setState(api.StatePlaying)
			o.notice = "Music unpaused."
		}

	case api.CmdSeekForward:
		if err := o.session.SeekForward(); err != nil {
			o.fail(err)
		}

	case api.CmdSeekBackward:
		if err := o.session.SeekBackward(); err != nil {
			o.fail(err)
		}

	case api.CmdTempoUp:
		o.setTempo(o.cfg.Tempo + tempoStep)

	case api.CmdTempoDown:
		o.setTempo(o.cfg.Tempo - tempoStep)

	case api.CmdToggleAccuracy:
		o.cfg.Accurate = !o.cfg.Accurate
		o.session.SetAccuracy(o.cfg.Accurate)
		o.notice = fmt.Sprintf("Accurate emulation %s.", onOff(o.cfg.Accurate))

	case api.CmdCycleStereo:
		depth := round1(o.cfg.StereoDepth + depthStep)
		if depth > maxDepth {
			depth = 0
		}
		o.cfg.StereoDepth = depth
		o.session.SetStereoDepth(depth)
		o.notice = fmt.Sprintf("Stereo depth %.1f.", depth)

	case api.CmdToggleEcho:
		o.cfg.EchoDisabled = !o.cfg.EchoDisabled
		o.session.SetEchoDisabled(o.cfg.EchoDisabled)
		if o.cfg.EchoDisabled {
			o.notice = "SPC echo is disabled"
		} else {
			o.notice = "SPC echo is enabled"
		}

	case api.CmdToggleFade:
		o.cfg.FadeOut = !o.cfg.FadeOut
		o.session.SetFadeOut(o.cfg.FadeOut)
		if o.cfg.FadeOut {
			o.notice = fmt.Sprintf("%d seconds of fade out between songs.", int(o.fadeLength().Seconds()))
		} else {
			o.notice = "No fade out between songs.  May cause songs to play forever or a really long time."
		}

	case api.CmdToggleLoop:
		if o.seq.ToggleLoop() {
			o.notice = "Playing current track forever"
		} else {
			o.notice = "Will play next track or stop at track end"
		}

	case api.CmdToggleShuffle:
		o.notice = fmt.Sprintf("Shuffle mode %s.", onOff(o.seq.ToggleShuffle()))

	case api.CmdReset:
		o.setTempo(1.0)
		o.setMuteMask(0)

	case api.CmdToggleVoice:
		if cmd.Voice >= 1 && cmd.Voice <= maxVoiceNo {
			o.setMuteMask(o.cfg.MuteMask ^ 1<<(cmd.Voice-1))
		}
	}
}

func (o *Orchestrator) changeFile(step func() (string, error)) {
	path, err := step()
	if err != nil {
		o.fail(err)
		return
	}
	o.loadAndPlay(path)
}

func (o *Orchestrator) setTempo(tempo float64) {
	tempo = math.Max(audio.MinTempo, math.Min(audio.MaxTempo, round1(tempo)))
	if err := o.session.SetTempo(tempo); err != nil {
		o.fail(err)
		return
	}
	o.cfg.Tempo = tempo
	o.notice = fmt.Sprintf("Tempo %.1f.", tempo)
}

func (o *Orchestrator) setMuteMask(mask uint32) {
	o.cfg.MuteMask = mask
	o.session.SetMuteMask(mask)
}

func (o *Orchestrator) fadeLength() time.Duration {
	if o.cfg.FadeLength > 0 {
		return o.cfg.FadeLength
	}
	return audio.DefaultFade
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
