package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNoFiles         = errors.New("no playable files found")
	ErrEmptyPlaylist   = errors.New("playlist is empty")
	ErrTrackOutOfRange = errors.New("track index out of range")
	ErrNoFileLoaded    = errors.New("no file loaded")
	ErrInvalidFormat   = errors.New("unsupported file format")
	ErrInvalidTempo    = errors.New("tempo must be between 0.1 and 2.0")
	ErrEmulatorClosed  = errors.New("emulator is closed")
	ErrAudioInit       = errors.New("audio device initialization failed")
)

// PlayerError wraps errors with additional context
type PlayerError struct {
	Op   string // Operation that failed
	Path string // File path if applicable
	Err  error  // Underlying error
}

func (e *PlayerError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PlayerError) Unwrap() error {
	return e.Err
}

// NewPlayerError creates a new PlayerError
func NewPlayerError(op, path string, err error) *PlayerError {
	return &PlayerError{Op: op, Path: path, Err: err}
}

// ScanError represents an error during directory scanning
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan error at %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
