// Package source opens PGN archives from local disk and object stores.
//
// Archives are named by location: a plain path for local files, or
// "s3://bucket/key" and "gs://bucket/key" for objects. Archives whose name
// ends in a compression extension are decompressed transparently.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"

	"github.com/discochess/pgnspy/internal/codec"
)

var (
	// ErrNotFound is returned when an archive does not exist.
	ErrNotFound = errors.New("source: archive not found")

	// ErrUnsupported is returned for a location scheme with no registered
	// source.
	ErrUnsupported = errors.New("source: unsupported location")
)

// Source opens archives by name within one root, such as a directory or a
// bucket.
type Source interface {
	// Open returns the decompressed content of the named archive.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Close releases any resources held by the source.
	Close() error
}

// Lister is implemented by sources that can enumerate archives.
type Lister interface {
	// List returns the names of the archives under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Location is a parsed archive location.
type Location struct {
	// Scheme is "s3", "gs" or empty for a local path.
	Scheme string
	Bucket string
	// Key is the object key, or the path for local files.
	Key string
}

// ParseLocation splits s into scheme, bucket and key.
func ParseLocation(s string) (Location, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		if s == "" {
			return Location{}, fmt.Errorf("%w: empty location", ErrUnsupported)
		}
		return Location{Key: s}, nil
	}
	if scheme == "file" {
		return Location{Key: rest}, nil
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("%w: %q has no bucket", ErrUnsupported, s)
	}
	return Location{Scheme: strings.ToLower(scheme), Bucket: bucket, Key: key}, nil
}

func (l Location) String() string {
	if l.Scheme == "" {
		return l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// Decompress wraps rc with the codec matching name's extension. Closing
// the result closes rc.
func Decompress(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	c := codec.ForPath(name)
	if c.Extension() == "" {
		return rc, nil
	}
	r, err := c.Reader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("decompressing %s: %w", name, err)
	}
	return &stackedReader{Reader: r, closers: []io.Closer{r, rc}}, nil
}

type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
