// Package gcssource opens PGN archives stored in Google Cloud Storage.
package gcssource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/discochess/pgnspy/internal/source"
	"github.com/discochess/pgnspy/internal/source/disksource"
)

// Compile-time checks that Source implements source.Source and source.Lister.
var (
	_ source.Source = (*Source)(nil)
	_ source.Lister = (*Source)(nil)
)

// bucket is the subset of a GCS bucket the source uses.
type bucket interface {
	reader(ctx context.Context, key string) (io.ReadCloser, error)
	names(ctx context.Context, prefix string) ([]string, error)
}

// Source reads objects from one bucket.
type Source struct {
	client *storage.Client
	bucket bucket
	name   string
	prefix string
}

// Option configures a Source.
type Option func(*Source)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Source) {
		s.prefix = strings.TrimSuffix(prefix, "/")
		if s.prefix != "" {
			s.prefix += "/"
		}
	}
}

// New creates a GCS source for the named bucket using application default
// credentials.
func New(ctx context.Context, name string, opts ...Option) (*Source, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	s := &Source{
		client: client,
		bucket: handle{client.Bucket(name)},
		name:   name,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open fetches and decompresses the object at key.
func (s *Source) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := s.bucket.reader(ctx, s.prefix+key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", source.ErrNotFound, s.name, s.prefix+key)
		}
		return nil, fmt.Errorf("creating reader: %w", err)
	}
	return source.Decompress(key, r)
}

// List returns the names of the PGN objects under prefix, relative to the
// source's own prefix.
func (s *Source) List(ctx context.Context, prefix string) ([]string, error) {
	all, err := s.bucket.names(ctx, s.prefix+prefix)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}

	var keys []string
	for _, name := range all {
		key := strings.TrimPrefix(name, s.prefix)
		if disksource.IsPGN(key) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Close releases the GCS client.
func (s *Source) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// handle adapts a storage.BucketHandle to bucket.
type handle struct {
	b *storage.BucketHandle
}

func (h handle) reader(ctx context.Context, key string) (io.ReadCloser, error) {
	return h.b.Object(key).NewReader(ctx)
}

func (h handle) names(ctx context.Context, prefix string) ([]string, error) {
	it := h.b.Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}
}
