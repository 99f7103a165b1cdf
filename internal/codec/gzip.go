package codec

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// Gzip handles .gz streams.
type Gzip struct{}

var _ Codec = Gzip{}

// Reader wraps r to decompress gzip data.
func (Gzip) Reader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// Writer wraps w to compress data with gzip.
func (Gzip) Writer(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (Gzip) Extension() string { return "gz" }
