// Package disksource opens PGN archives from the local filesystem.
package disksource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/discochess/pgnspy/internal/codec"
	"github.com/discochess/pgnspy/internal/source"
)

// Compile-time checks that Source implements source.Source and source.Lister.
var (
	_ source.Source = (*Source)(nil)
	_ source.Lister = (*Source)(nil)
)

// Source opens files relative to a root directory. Absolute names are
// opened as given.
type Source struct {
	root string
}

// New creates a disk source rooted at root. An empty root resolves names
// against the working directory.
func New(root string) (*Source, error) {
	if root != "" {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat root directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", root)
		}
	}
	return &Source{root: root}, nil
}

// Open opens and decompresses the named file.
func (s *Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", source.ErrNotFound, name)
		}
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return source.Decompress(name, f)
}

// List returns the PGN files in the directory dir, plain or compressed.
// Subdirectories are not descended.
func (s *Source) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.path(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", source.ErrNotFound, dir)
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsPGN(e.Name()) {
			continue
		}
		names = append(names, filepath.Join(dir, e.Name()))
	}
	slices.Sort(names)
	return names, nil
}

// Close releases any resources held by the source.
func (s *Source) Close() error {
	return nil
}

func (s *Source) path(name string) string {
	if s.root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.root, name)
}

// IsPGN reports whether name is a PGN file, possibly compressed.
func IsPGN(name string) bool {
	return filepath.Ext(codec.Strip(name)) == ".pgn"
}
