package codec

import (
	"bytes"
	"io"
	"testing"
)

func TestForPath(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"games.pgn", ""},
		{"games.pgn.zst", "zst"},
		{"lichess_db_standard_rated_2013-01.pgn.ZST", "zst"},
		{"archive/games.pgn.gz", "gz"},
		{"s3://bucket/games.pgn.gz", "gz"},
		{"noext", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForPath(tt.name).Extension(); got != tt.want {
				t.Errorf("ForPath(%q).Extension() = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestStrip(t *testing.T) {
	tests := map[string]string{
		"games.pgn.zst": "games.pgn",
		"games.pgn.gz":  "games.pgn",
		"games.pgn":     "games.pgn",
	}
	for in, want := range tests {
		if got := Strip(in); got != want {
			t.Errorf("Strip(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 "), 2000)

	for _, c := range []Codec{Plain{}, Gzip{}, Zstd{}} {
		t.Run("ext="+c.Extension(), func(t *testing.T) {
			var compressed bytes.Buffer
			w, err := c.Writer(&compressed)
			if err != nil {
				t.Fatalf("Writer() error = %v", err)
			}
			if _, err := w.Write(original); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if c.Extension() != "" && compressed.Len() >= len(original) {
				t.Errorf("compressed size %d not smaller than %d", compressed.Len(), len(original))
			}

			r, err := c.Reader(&compressed)
			if err != nil {
				t.Fatalf("Reader() error = %v", err)
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if err := r.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if !bytes.Equal(got, original) {
				t.Error("round trip changed the data")
			}
		})
	}
}

func TestGzip_InvalidData(t *testing.T) {
	if _, err := (Gzip{}).Reader(bytes.NewReader([]byte("not gzip"))); err == nil {
		t.Error("Reader() on invalid data should fail")
	}
}
