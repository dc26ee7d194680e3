// Package emu routes files to emulator backends by extension
package emu

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jscyril/chiptune_player/api"
	"github.com/jscyril/chiptune_player/internal/emu/beepemu"
	playerrors "github.com/jscyril/chiptune_player/pkg/errors"
	"github.com/samber/lo"
)

// ChiptuneExtensions lists the game music formats the player looks for
func ChiptuneExtensions() []string {
	return []string{".ay", ".gbs", ".gym", ".hes", ".kss", ".nsf", ".nsfe", ".sap", ".spc", ".vgm", ".vgz"}
}

// Registry maps file extensions to openers
type Registry struct {
	mu      sync.RWMutex
	openers map[string]api.Opener
}

var _ api.Opener = (*Registry)(nil)

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{openers: make(map[string]api.Opener)}
}

// DefaultRegistry returns a registry with every built-in backend
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(beepemu.Opener, beepemu.SupportedFormats()...)
	return r
}

// Register routes each extension to opener, replacing earlier entries
func (r *Registry) Register(opener api.Opener, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range exts {
		r.openers[normalizeExt(ext)] = opener
	}
}

// Extensions returns the registered extensions, sorted
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := lo.Keys(r.openers)
	sort.Strings(exts)
	return exts
}

// Supports reports whether path has a registered backend
func (r *Registry) Supports(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.openers[normalizeExt(filepath.Ext(path))]
	return ok
}

// Open opens path with the backend registered for its extension
func (r *Registry) Open(path string, byMemory bool, sampleRate int) (api.Emulator, error) {
	ext := normalizeExt(filepath.Ext(path))

	r.mu.RLock()
	opener, ok := r.openers[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no emulator for %s", playerrors.ErrInvalidFormat, ext)
	}
	return opener.Open(path, byMemory, sampleRate)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
