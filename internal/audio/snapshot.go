package audio

import (
	"math"
	"sync"
	"sync/atomic"
)

// FrameSize is the number of stereo frames kept for visualization
const FrameSize = 1024

const freshBit = 1 << 31

// Frame is one published visualization window
type Frame struct {
	Samples [FrameSize][2]float64
	Len     int
	Seq     uint64
	Peak    float64
}

// Snapshot hands frames from the audio callback to the UI without locks on
// the writer side. It is a triple buffer: the writer fills its back slot
// and swaps it with the shared middle slot; the reader swaps the middle
// slot for its front slot only when a fresh frame is waiting. A frame is
// therefore always read whole, never mixed with a later one.
//
// Publish and Clear must be called from a single goroutine.
type Snapshot struct {
	bufs   [3]Frame
	middle atomic.Uint32

	// writer owned
	back    int
	seq     uint64
	cleared bool

	// reader owned
	readMu sync.Mutex
	front  int
}

// NewSnapshot creates a snapshot holding an empty frame
func NewSnapshot() *Snapshot {
	s := &Snapshot{back: 0, front: 2, cleared: true}
	s.middle.Store(1)
	return s
}

// Publish stores the last FrameSize frames of samples as the newest frame
func (s *Snapshot) Publish(samples [][2]float64) {
	if len(samples) > FrameSize {
		samples = samples[len(samples)-FrameSize:]
	}
	f := &s.bufs[s.back]
	n := copy(f.Samples[:], samples)
	peak := 0.0
	for i := 0; i < n; i++ {
		peak = math.Max(peak, math.Max(math.Abs(f.Samples[i][0]), math.Abs(f.Samples[i][1])))
	}
	f.Len = n
	f.Peak = peak
	s.cleared = false
	s.swap(f)
}

// Clear publishes a silent frame. Repeated calls are no-ops.
func (s *Snapshot) Clear() {
	if s.cleared {
		return
	}
	f := &s.bufs[s.back]
	f.Samples = [FrameSize][2]float64{}
	f.Len = 0
	f.Peak = 0
	s.cleared = true
	s.swap(f)
}

func (s *Snapshot) swap(f *Frame) {
	s.seq++
	f.Seq = s.seq
	prev := s.middle.Swap(uint32(s.back) | freshBit)
	s.back = int(prev &^ freshBit)
}

// Latest returns the newest complete frame
func (s *Snapshot) Latest() Frame {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if s.middle.Load()&freshBit != 0 {
		prev := s.middle.Swap(uint32(s.front))
		s.front = int(prev &^ freshBit)
	}
	return s.bufs[s.front]
}
