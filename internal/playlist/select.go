package playlist

import (
	playerrors "github.com/jscyril/chiptune_player/pkg/errors"
)

// Rand is the randomness the sequencer needs. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	IntN(n int) int
}

// Cursor is the sequencer position: file index, track index within that
// file and the shuffle offset. Under shuffle Position is always the file
// where the current shuffle run began plus ShuffleOffset, mod the file
// count; a linear step starts a new run at offset 0.
type Cursor struct {
	Position      int
	Track         int
	ShuffleOffset int
}

// Direction of a file change
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Policy holds the two independent selection toggles
type Policy struct {
	Loop    bool
	Shuffle bool
}

// DecisionKind is the outcome of a track-end
type DecisionKind int

const (
	ReplayTrack DecisionKind = iota
	NextTrack
	NextFile
)

func (k DecisionKind) String() string {
	switch k {
	case ReplayTrack:
		return "replay"
	case NextTrack:
		return "next track"
	case NextFile:
		return "next file"
	default:
		return "unknown"
	}
}

// Decide picks what follows a finished track. Loop wins over shuffle, and
// under shuffle every track end is a file boundary.
func Decide(track, trackCount int, p Policy) DecisionKind {
	switch {
	case p.Loop:
		return ReplayTrack
	case p.Shuffle:
		return NextFile
	case track+1 < trackCount:
		return NextTrack
	default:
		return NextFile
	}
}

// SelectNext moves the cursor to another file and resets the track to 0.
// Without shuffle it steps linearly in dir with wraparound. With shuffle
// it ignores dir and adds a random non-zero stride to the offset, so the
// new file always differs from the current one when more than one file
// exists.
func SelectNext(c Cursor, fileCount int, dir Direction, shuffle bool, rng Rand) (Cursor, error) {
	if fileCount <= 0 {
		return c, playerrors.ErrEmptyPlaylist
	}

	var next Cursor
	switch {
	case fileCount == 1:
		next.Position = 0
	case shuffle:
		origin := ((c.Position-c.ShuffleOffset)%fileCount + fileCount) % fileCount
		stride := 1 + rng.IntN(fileCount-1)
		next.ShuffleOffset = (c.ShuffleOffset + stride) % fileCount
		next.Position = (origin + next.ShuffleOffset) % fileCount
	case dir == Backward:
		next.Position = (c.Position - 1 + fileCount) % fileCount
	default:
		next.Position = (c.Position + 1) % fileCount
	}
	return next, nil
}
