package beepemu

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
	playerrors "github.com/jscyril/chiptune_player/pkg/errors"
)

// SupportedFormats returns the extensions this backend decodes
func SupportedFormats() []string {
	return []string{".flac", ".mp3", ".ogg", ".wav"}
}

// IsSupported checks if a file format is supported
func IsSupported(filePath string) bool {
	return slices.Contains(SupportedFormats(), strings.ToLower(filepath.Ext(filePath)))
}

// decode picks a decoder by extension
func decode(r io.ReadSeekCloser, filePath string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".mp3":
		return mp3.Decode(r)
	case ".wav":
		return wav.Decode(r)
	case ".flac":
		return flac.Decode(r)
	case ".ogg":
		return vorbis.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", playerrors.ErrInvalidFormat, ext)
	}
}

// openSource opens path from disk, or reads it fully first when byMemory
// is set.
func openSource(path string, byMemory bool) (io.ReadSeekCloser, error) {
	if !byMemory {
		return os.Open(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return nopCloser{bytes.NewReader(data)}, nil
}

type nopCloser struct {
	io.ReadSeeker
}

func (nopCloser) Close() error { return nil }
