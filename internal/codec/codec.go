// Package codec selects the compression of PGN archives and result files
// from their file extension.
package codec

import (
	"io"
	"path"
	"strings"
)

// Codec compresses and decompresses one stream format.
type Codec interface {
	// Reader wraps r to decompress data read from it.
	Reader(r io.Reader) (io.ReadCloser, error)
	// Writer wraps w to compress data written to it.
	Writer(w io.Writer) (io.WriteCloser, error)
	// Extension returns the file extension without dot (e.g., "zst", "gz").
	// Returns empty string for no compression.
	Extension() string
}

var known = []Codec{Zstd{}, Gzip{}}

// ForPath returns the codec matching the extension of name, or Plain when
// the name carries no known compression extension. Both local paths and
// object keys are accepted.
func ForPath(name string) Codec {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	for _, c := range known {
		if strings.EqualFold(ext, c.Extension()) {
			return c
		}
	}
	return Plain{}
}

// Strip returns name without its compression extension, so that
// "games.pgn.zst" becomes "games.pgn".
func Strip(name string) string {
	c := ForPath(name)
	if c.Extension() == "" {
		return name
	}
	return name[:len(name)-len(c.Extension())-1]
}

// Plain passes data through unchanged. Like the compressing codecs, its
// readers and writers never close the stream they wrap.
type Plain struct{}

var _ Codec = Plain{}

func (Plain) Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

func (Plain) Writer(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (Plain) Extension() string { return "" }

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
