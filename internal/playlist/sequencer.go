package playlist

import (
	"math/rand/v2"
	"sync"

	playerrors "github.com/jscyril/chiptune_player/pkg/errors"
)

// Decision is the outcome of NextTrackOrFile. Track is the track to start
// for ReplayTrack and NextTrack; for NextFile the caller loads Path and then
// asks StartTrack for the first track. Either way the caller commits the
// track after it starts.
type Decision struct {
	Kind  DecisionKind
	Path  string
	Track int
}

// Sequencer owns the ordered file list and decides what plays next
type Sequencer struct {
	files  []string
	cursor Cursor
	policy Policy
	rng    Rand
	mu     sync.RWMutex
}

// NewSequencer creates a sequencer over files in the given order. A nil rng
// falls back to a randomly seeded generator.
func NewSequencer(files []string, policy Policy, rng Rand) (*Sequencer, error) {
	if len(files) == 0 {
		return nil, playerrors.ErrEmptyPlaylist
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	list := make([]string, len(files))
	copy(list, files)
	return &Sequencer{files: list, policy: policy, rng: rng}, nil
}

// Files returns a copy of the file list
func (s *Sequencer) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]string, len(s.files))
	copy(list, s.files)
	return list
}

// Len returns the number of files
func (s *Sequencer) Len() int {
	return len(s.files)
}

// Cursor returns the current cursor
func (s *Sequencer) Cursor() Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Current returns the path under the cursor
func (s *Sequencer) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files[s.cursor.Position]
}

// Policy returns the current toggles
func (s *Sequencer) Policy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// ToggleLoop flips looping and returns the new value
func (s *Sequencer) ToggleLoop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy.Loop = !s.policy.Loop
	return s.policy.Loop
}

// ToggleShuffle flips shuffle and returns the new value
func (s *Sequencer) ToggleShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy.Shuffle = !s.policy.Shuffle
	return s.policy.Shuffle
}

// Start places the cursor on the first file to play: a random one under
// shuffle, otherwise the first.
func (s *Sequencer) Start() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursor = Cursor{}
	if s.policy.Shuffle {
		s.cursor.Position = s.rng.IntN(len(s.files))
	}
	return s.files[s.cursor.Position]
}

// StartTrack picks the first track of a freshly loaded file with
// trackCount tracks. The cursor moves only on CommitTrack.
func (s *Sequencer) StartTrack(trackCount int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy.Shuffle && trackCount > 1 {
		return s.rng.IntN(trackCount)
	}
	return 0
}

// CommitTrack records track as playing once the session has started it
func (s *Sequencer) CommitTrack(track int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor.Track = track
}

// NextTrackOrFile decides what follows the current track ending. A file
// change moves the cursor to the new file at track 0; a track choice is
// only proposed and waits for CommitTrack.
func (s *Sequencer) NextTrackOrFile(trackCount int) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	track := s.cursor.Track
	kind := Decide(track, trackCount, s.policy)
	switch kind {
	case ReplayTrack:
	case NextTrack:
		track++
	case NextFile:
		if err := s.advance(Forward); err != nil {
			return Decision{}, err
		}
		track = s.cursor.Track
	}
	return Decision{Kind: kind, Path: s.files[s.cursor.Position], Track: track}, nil
}

// NextFile moves to the next file, or a random other one under shuffle
func (s *Sequencer) NextFile() (string, error) {
	return s.step(Forward)
}

// PreviousFile moves to the previous file, or a random other one under
// shuffle
func (s *Sequencer) PreviousFile() (string, error) {
	return s.step(Backward)
}

// NextTrack returns the track after the committed one. It reports false
// on the last track.
func (s *Sequencer) NextTrack(trackCount int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cursor.Track+1 >= trackCount {
		return s.cursor.Track, false
	}
	return s.cursor.Track + 1, true
}

// PreviousTrack returns the track before the committed one, stopping at 0
func (s *Sequencer) PreviousTrack() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return max(s.cursor.Track-1, 0)
}

func (s *Sequencer) step(dir Direction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.advance(dir); err != nil {
		return "", err
	}
	return s.files[s.cursor.Position], nil
}

func (s *Sequencer) advance(dir Direction) error {
	next, err := SelectNext(s.cursor, len(s.files), dir, s.policy.Shuffle, s.rng)
	if err != nil {
		return err
	}
	s.cursor = next
	return nil
}
