// Package pgnload splits PGN archives into games and replays a game into
// the positions an engine is asked to evaluate.
package pgnload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/notnil/chess"

	"github.com/discochess/pgnspy/internal/fen"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrNoGame indicates the text holds no parseable game.
var ErrNoGame = errors.New("pgnload: no game in text")

// Chunk is the raw text of one game plus the player names read from its
// tags.
type Chunk struct {
	Text  string
	White string
	Black string
}

// Ply is one half-move of a game together with the position it was
// played from.
type Ply struct {
	// Index is the 0-based half-move index.
	Index int

	// MoveNumber is the full-move number of the position.
	MoveNumber int

	// Black is true when black played Move.
	Black bool

	// FEN is the position before Move.
	FEN string

	// Move is the played move in UCI notation.
	Move string
}

// Record is a replayed game.
type Record struct {
	Event       string
	Date        string
	White       string
	Black       string
	Result      string
	TimeControl string

	// StartFEN is empty for games starting from the standard position.
	StartFEN string

	Plies []Ply
}

// Moves returns the UCI moves played before ply i.
func (r *Record) Moves(i int) []string {
	moves := make([]string, 0, i)
	for _, p := range r.Plies[:i] {
		moves = append(moves, p.Move)
	}
	return moves
}

// Load parses a single PGN game and replays it.
func Load(text string) (*Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoGame
	}
	opt, err := chess.PGN(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parsing PGN: %w", err)
	}
	game := chess.NewGame(opt)

	rec := &Record{
		Event:       tag(game, "Event"),
		Date:        tag(game, "Date"),
		White:       tag(game, "White"),
		Black:       tag(game, "Black"),
		Result:      tag(game, "Result"),
		TimeControl: tag(game, "TimeControl"),
	}

	positions := game.Positions()
	moves := game.Moves()
	if len(positions) > 0 && positions[0].String() != StartFEN {
		rec.StartFEN = positions[0].String()
	}

	notation := chess.UCINotation{}
	rec.Plies = make([]Ply, 0, len(moves))
	for i, m := range moves {
		pos := positions[i]
		f := pos.String()
		fields, err := fen.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("ply %d: %w", i, err)
		}
		rec.Plies = append(rec.Plies, Ply{
			Index:      i,
			MoveNumber: fields.FullMove,
			Black:      pos.Turn() == chess.Black,
			FEN:        f,
			Move:       notation.Encode(pos, m),
		})
	}
	return rec, nil
}

func tag(g *chess.Game, key string) string {
	if tp := g.GetTagPair(key); tp != nil {
		return tp.Value
	}
	return ""
}

var tagLine = regexp.MustCompile(`^\[(\w+)\s+"(.*)"\]\s*$`)

// Split reads an archive of concatenated games and calls fn with each one
// in order. A game starts at its [Event tag. Text before the first [Event
// tag is ignored.
func Split(r io.Reader, fn func(Chunk) error) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines.
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var (
		cur   Chunk
		text  strings.Builder
		found bool
	)
	flush := func() error {
		if !found || strings.TrimSpace(text.String()) == "" {
			return nil
		}
		cur.Text = text.String()
		err := fn(cur)
		cur = Chunk{}
		text.Reset()
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "[Event ") {
			if err := flush(); err != nil {
				return err
			}
			found = true
		}
		if !found {
			continue
		}
		if m := tagLine.FindStringSubmatch(line); m != nil {
			switch m[1] {
			case "White":
				cur.White = m[2]
			case "Black":
				cur.Black = m[2]
			}
		}
		text.WriteString(line)
		text.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading PGN: %w", err)
	}
	return flush()
}

// SplitAll returns every game in r.
func SplitAll(r io.Reader) ([]Chunk, error) {
	var chunks []Chunk
	err := Split(r, func(c Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	return chunks, err
}
