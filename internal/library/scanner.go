package library

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	playerrors "github.com/jscyril/chiptune_player/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Scanner finds playable files under a set of directories
type Scanner struct {
	formats   []string
	recursive bool
}

// NewScanner creates a scanner accepting the given extensions
func NewScanner(formats []string, recursive bool) *Scanner {
	return &Scanner{
		formats:   lo.Uniq(lo.Map(formats, func(f string, _ int) string { return strings.ToLower(f) })),
		recursive: recursive,
	}
}

// SupportedFormats returns list of accepted extensions
func (s *Scanner) SupportedFormats() []string {
	return s.formats
}

// isSupported checks if a file format is supported
func (s *Scanner) isSupported(filePath string) bool {
	return slices.Contains(s.formats, strings.ToLower(filepath.Ext(filePath)))
}

// Scan walks every root concurrently and returns the matching files,
// deduplicated and sorted. Problems with individual entries do not stop
// the scan; they come back joined in the error alongside the files.
func (s *Scanner) Scan(ctx context.Context, paths []string) ([]string, error) {
	var (
		mu       sync.Mutex
		found    []string
		problems []error
	)
	report := func(err error) {
		mu.Lock()
		problems = append(problems, err)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, root := range paths {
		g.Go(func() error {
			var local []string
			err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					report(&playerrors.ScanError{Path: p, Err: err})
					if d != nil && d.IsDir() {
						return fs.SkipDir
					}
					return nil
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if d.IsDir() {
					if p != root && !s.recursive {
						return fs.SkipDir
					}
					return nil
				}
				if s.isSupported(p) {
					local = append(local, filepath.Clean(p))
				}
				return nil
			})
			if err != nil {
				return err
			}
			mu.Lock()
			found = append(found, local...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	found = lo.Uniq(found)
	sort.Strings(found)
	return found, errors.Join(problems...)
}
