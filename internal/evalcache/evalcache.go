// Package evalcache keeps recent engine evaluations keyed by position.
package evalcache

import (
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/discochess/pgnspy/internal/fen"
	"github.com/discochess/pgnspy/internal/uci"
)

// DefaultSize is the capacity used when New is given a non-positive size.
const DefaultSize = 100_000

// Cache is a fixed-size LRU of candidate lines keyed by normalised FEN.
// It is safe for concurrent use.
type Cache struct {
	lines *lru.Cache[string, []uci.Line]

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a snapshot of cache usage.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// New returns a cache holding up to size positions.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, []uci.Line](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lines: c}, nil
}

// Get returns the lines stored for position. The returned slice is a copy.
func (c *Cache) Get(position string) ([]uci.Line, bool) {
	key, err := fen.Normalize(position)
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}
	lines, ok := c.lines.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return slices.Clone(lines), true
}

// Add stores lines for position. Positions with an unparseable FEN are
// not cached.
func (c *Cache) Add(position string, lines []uci.Line) {
	key, err := fen.Normalize(position)
	if err != nil || len(lines) == 0 {
		return
	}
	c.lines.Add(key, slices.Clone(lines))
}

// Len returns the number of cached positions.
func (c *Cache) Len() int {
	return c.lines.Len()
}

// Stats returns hit, miss and size counts.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.lines.Len(),
	}
}
