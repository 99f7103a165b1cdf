package source

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
)

// Factory creates the source for one bucket.
type Factory func(ctx context.Context, bucket string) (Source, error)

// Mux opens locations of any registered scheme, creating one source per
// bucket on first use. It is safe for concurrent use.
type Mux struct {
	local Source

	mu        sync.Mutex
	factories map[string]Factory
	buckets   map[string]Source
}

// NewMux returns a mux serving plain paths from local.
func NewMux(local Source) *Mux {
	return &Mux{
		local:     local,
		factories: make(map[string]Factory),
		buckets:   make(map[string]Source),
	}
}

// Register serves locations of scheme with sources made by f.
func (m *Mux) Register(scheme string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[scheme] = f
}

// Open returns the decompressed content at location.
func (m *Mux) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	src, err := m.sourceFor(ctx, loc)
	if err != nil {
		return nil, err
	}
	return src.Open(ctx, loc.Key)
}

// List returns the locations of the archives under location, which must
// belong to a source implementing Lister.
func (m *Mux) List(ctx context.Context, location string) ([]string, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	src, err := m.sourceFor(ctx, loc)
	if err != nil {
		return nil, err
	}
	lister, ok := src.(Lister)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot be listed", ErrUnsupported, location)
	}
	names, err := lister.List(ctx, loc.Key)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = Location{Scheme: loc.Scheme, Bucket: loc.Bucket, Key: name}.String()
	}
	return out, nil
}

func (m *Mux) sourceFor(ctx context.Context, loc Location) (Source, error) {
	if loc.Scheme == "" {
		if m.local == nil {
			return nil, fmt.Errorf("%w: local paths", ErrUnsupported)
		}
		return m.local, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := loc.Scheme + "://" + loc.Bucket
	if src, ok := m.buckets[key]; ok {
		return src, nil
	}
	f, ok := m.factories[loc.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupported, loc.Scheme)
	}
	src, err := f(ctx, loc.Bucket)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", key, err)
	}
	m.buckets[key] = src
	return src, nil
}

// Close closes every source the mux created, and the local source.
func (m *Mux) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for key, src := range m.buckets {
		err = multierr.Append(err, src.Close())
		delete(m.buckets, key)
	}
	if m.local != nil {
		err = multierr.Append(err, m.local.Close())
	}
	return err
}
