package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	playerrors "github.com/jscyril/chiptune_player/pkg/errors"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.vgm", "a.NSF", "notes.txt", "sub/c.spc", "sub/d.mp3"} {
		touch(t, filepath.Join(root, name))
	}
	other := t.TempDir()
	touch(t, filepath.Join(other, "z.gbs"))

	tests := []struct {
		name      string
		recursive bool
		roots     []string
		want      []string
	}{
		{
			name:      "recursive",
			recursive: true,
			roots:     []string{root},
			want:      []string{"a.NSF", "b.vgm", "sub/c.spc"},
		},
		{
			name:  "top level only",
			roots: []string{root},
			want:  []string{"a.NSF", "b.vgm"},
		},
		{
			name:  "duplicate roots are merged",
			roots: []string{root, root + string(filepath.Separator)},
			want:  []string{"a.NSF", "b.vgm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner([]string{".nsf", ".vgm", ".spc", ".gbs", ".NSF"}, tt.recursive)
			got, err := s.Scan(context.Background(), tt.roots)
			if err != nil {
				t.Fatalf("Scan: %v", err)
			}
			want := make([]string, len(tt.want))
			for i, w := range tt.want {
				want[i] = filepath.Join(root, w)
			}
			if !slices.Equal(got, want) {
				t.Errorf("Scan() = %v, want %v", got, want)
			}
		})
	}

	t.Run("multiple roots sorted", func(t *testing.T) {
		s := NewScanner([]string{".nsf", ".gbs"}, false)
		got, err := s.Scan(context.Background(), []string{other, root})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{filepath.Join(root, "a.NSF"), filepath.Join(other, "z.gbs")}
		slices.Sort(want)
		if !slices.Equal(got, want) {
			t.Errorf("Scan() = %v, want %v", got, want)
		}
	})
}

func TestScanMissingRoot(t *testing.T) {
	s := NewScanner([]string{".nsf"}, true)
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.nsf"))

	got, err := s.Scan(context.Background(), []string{root, filepath.Join(root, "missing")})
	var se *playerrors.ScanError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want a ScanError", err)
	}
	if len(got) != 1 {
		t.Errorf("files from the good root should survive, got %v", got)
	}
}

func TestScanCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "a.nsf"))
	if _, err := NewScanner([]string{".nsf"}, true).Scan(ctx, []string{root}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestScanFileRoots(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.nsf"))
	touch(t, filepath.Join(root, "b.mp3"))

	tests := []struct {
		name string
		root string
		want []string
	}{
		{"supported file", filepath.Join(root, ".", "a.nsf"), []string{filepath.Join(root, "a.nsf")}},
		{"unsupported file", filepath.Join(root, "b.mp3"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewScanner([]string{".nsf"}, false).Scan(context.Background(), []string{tt.root})
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Scan(%s) = %v, want %v", tt.root, got, tt.want)
			}
		})
	}
}
