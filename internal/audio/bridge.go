package audio

import "github.com/faiface/beep"

// Ensure Bridge implements beep.Streamer at compile time
var _ beep.Streamer = (*Bridge)(nil)

// Bridge is the streamer handed to the speaker. Each Stream call pulls one
// block from the session and publishes it for visualization. It never
// allocates, logs or blocks.
type Bridge struct {
	session  *Session
	snapshot *Snapshot
}

// NewBridge connects a session to a snapshot
func NewBridge(session *Session, snapshot *Snapshot) *Bridge {
	return &Bridge{session: session, snapshot: snapshot}
}

// Stream fills samples completely and never drains
func (b *Bridge) Stream(samples [][2]float64) (n int, ok bool) {
	switch b.session.Generate(samples) {
	case GenProduced:
		b.snapshot.Publish(samples)
	case GenInactive:
		b.snapshot.Clear()
	}
	return len(samples), true
}

// Err always returns nil; failures surface through the session
func (b *Bridge) Err() error {
	return nil
}
