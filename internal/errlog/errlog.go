// Package errlog keeps a bounded, timestamped record of playback failures
// for display. It is advisory only and never drives control flow.
package errlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

const (
	// DefaultCapacity is the number of entries kept when none is configured
	DefaultCapacity = 64
	// MaxMessageWidth bounds the display width of a stored message
	MaxMessageWidth = 256
)

// Entry is one logged failure
type Entry struct {
	Time    time.Time
	Message string
}

func (e Entry) String() string {
	return fmt.Sprintf("%d: %s", e.Time.Unix(), e.Message)
}

// Log is a fixed-capacity ring of entries; the oldest entry is overwritten
// once the ring is full.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	count   int
	now     func() time.Time
}

// New creates a log holding at most capacity entries
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries: make([]Entry, capacity),
		now:     time.Now,
	}
}

// Append records msg, truncated to MaxMessageWidth cells
func (l *Log) Append(msg string) Entry {
	e := Entry{
		Time:    l.now(),
		Message: runewidth.Truncate(msg, MaxMessageWidth, "…"),
	}

	l.mu.Lock()
	l.entries[l.next] = e
	l.next = (l.next + 1) % len(l.entries)
	if l.count < len(l.entries) {
		l.count++
	}
	l.mu.Unlock()
	return e
}

// Len returns the number of stored entries
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Tail returns up to n of the newest entries, oldest first
func (l *Log) Tail(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > l.count {
		n = l.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Entry, n)
	start := l.next - n
	if start < 0 {
		start += len(l.entries)
	}
	for i := range out {
		out[i] = l.entries[(start+i)%len(l.entries)]
	}
	return out
}
