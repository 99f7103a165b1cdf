// Package memsource provides an in-memory source for testing.
package memsource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/discochess/pgnspy/internal/source"
)

// Compile-time checks that Source implements source.Source and source.Lister.
var (
	_ source.Source = (*Source)(nil)
	_ source.Lister = (*Source)(nil)
)

// Source serves archives from memory. Names with a compression extension
// must hold compressed data.
type Source struct {
	mu       sync.RWMutex
	archives map[string][]byte
	closed   bool
}

// New creates an empty in-memory source.
func New() *Source {
	return &Source{archives: make(map[string][]byte)}
}

// Set stores data under name (for test setup).
// The data is copied to prevent caller mutations from affecting the source.
func (s *Source) Set(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[name] = bytes.Clone(data)
}

// Open returns the archive stored under name.
func (s *Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.archives[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", source.ErrNotFound, name)
	}
	return source.Decompress(name, io.NopCloser(bytes.NewReader(data)))
}

// List returns the stored names starting with prefix.
func (s *Source) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.archives {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Close marks the source closed.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Source) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
