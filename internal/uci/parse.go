package uci

import (
	"fmt"
	"strconv"
	"strings"
)

// MateScore is the centipawn magnitude assigned to a forced mate. A mate in
// N scores MateScore-N for the mating side, so nearer mates rank higher.
const MateScore = 32000

// Line is the final evaluation of one candidate move.
type Line struct {
	// Rank is the 0-based multipv rank reported by the engine.
	Rank int

	// Depth is the search depth the evaluation was reached at.
	Depth int

	// TimeMs is the engine-reported search time in milliseconds.
	TimeMs int

	// Score is in centipawns from the side to move's perspective, with
	// mates mapped through MateScore.
	Score int

	// Mate is set when Score came from a mate score.
	Mate bool

	// Move is the first move of the principal variation in UCI notation.
	Move string
}

// Analysis is the parsed result of one search.
type Analysis struct {
	// Lines are ordered by engine rank.
	Lines []Line

	// BestMove is the move named by the terminal bestmove line.
	BestMove string

	// Ordered is false when scores were not non-increasing by rank.
	Ordered bool
}

// IsBestMove reports whether line is the terminal marker of a search.
func IsBestMove(line string) bool {
	return strings.HasPrefix(line, "bestmove")
}

// Parse converts the raw output of one search into ranked lines.
//
// Progress lines are superseded by later lines for the same rank at the
// same or greater depth, so only the deepest evaluation per rank survives.
// Lines are ordered by the engine's multipv label, not by score. Ranks above
// multiPV are ignored, and the lines stop at the first rank the engine left
// out, so a Line's index always equals its Rank. Output without a bestmove line, or with a bestmove
// but no evaluations, is a protocol error; "bestmove (none)" yields an
// empty analysis.
func Parse(output []string, multiPV int) (Analysis, error) {
	if multiPV < 1 {
		multiPV = 1
	}

	deepest := make(map[int]Line, multiPV)
	var (
		best     string
		terminal bool
	)

	for _, raw := range output {
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "bestmove" {
			if len(fields) < 2 {
				return Analysis{}, opError("parse", ErrProtocol, fmt.Errorf("bare bestmove line"))
			}
			best = fields[1]
			terminal = true
			break
		}
		if fields[0] != "info" {
			continue
		}

		line, ok, err := parseInfo(fields[1:])
		if err != nil {
			return Analysis{}, opError("parse", ErrProtocol, fmt.Errorf("%w in %q", err, raw))
		}
		if !ok || line.Rank >= multiPV {
			continue
		}
		if prev, seen := deepest[line.Rank]; seen && prev.Depth > line.Depth {
			continue
		}
		deepest[line.Rank] = line
	}

	if !terminal {
		return Analysis{}, opError("parse", ErrProtocol, fmt.Errorf("no bestmove in %d lines", len(output)))
	}
	if best == "(none)" || best == "0000" {
		return Analysis{BestMove: best, Ordered: true}, nil
	}
	if len(deepest) == 0 {
		return Analysis{}, opError("parse", ErrProtocol, fmt.Errorf("bestmove %s without evaluations", best))
	}
	if _, ok := deepest[0]; !ok {
		return Analysis{}, opError("parse", ErrProtocol, fmt.Errorf("bestmove %s without a multipv 1 line", best))
	}

	a := Analysis{
		Lines:    make([]Line, 0, len(deepest)),
		BestMove: best,
		Ordered:  true,
	}
	for r := 0; r < multiPV; r++ {
		l, ok := deepest[r]
		if !ok {
			break
		}
		a.Lines = append(a.Lines, l)
	}

	for i := 1; i < len(a.Lines); i++ {
		if a.Lines[i].Score > a.Lines[i-1].Score {
			a.Ordered = false
			break
		}
	}
	return a, nil
}

// parseInfo extracts an evaluated line from the tokens following "info".
// ok is false for lines that carry no usable evaluation: info strings,
// currmove updates, and bound-only scores from aspiration re-searches.
func parseInfo(tokens []string) (line Line, ok bool, err error) {
	var hasScore, hasPV, bound bool
	rank := 1

	value := func(i int) (int, error) {
		if i+1 >= len(tokens) {
			return 0, fmt.Errorf("missing value for %s", tokens[i])
		}
		n, err := strconv.Atoi(tokens[i+1])
		if err != nil {
			return 0, fmt.Errorf("bad %s value %q", tokens[i], tokens[i+1])
		}
		return n, nil
	}

	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "string":
			return Line{}, false, nil

		case "depth":
			if line.Depth, err = value(i); err != nil {
				return Line{}, false, err
			}
			i++

		case "time":
			if line.TimeMs, err = value(i); err != nil {
				return Line{}, false, err
			}
			i++

		case "multipv":
			if rank, err = value(i); err != nil {
				return Line{}, false, err
			}
			if rank < 1 {
				return Line{}, false, fmt.Errorf("multipv %d out of range", rank)
			}
			i++

		case "seldepth", "nodes", "nps", "hashfull", "tbhits", "cpuload", "currmovenumber", "currmove", "sbhits":
			i++

		case "score":
			if i+2 >= len(tokens) {
				return Line{}, false, fmt.Errorf("truncated score")
			}
			n, err := strconv.Atoi(tokens[i+2])
			if err != nil {
				return Line{}, false, fmt.Errorf("bad score value %q", tokens[i+2])
			}
			switch tokens[i+1] {
			case "cp":
				line.Score = n
			case "mate":
				line.Score = mateToCentipawns(n)
				line.Mate = true
			default:
				return Line{}, false, fmt.Errorf("unknown score type %q", tokens[i+1])
			}
			hasScore = true
			i += 2
			if i+1 < len(tokens) && (tokens[i+1] == "lowerbound" || tokens[i+1] == "upperbound") {
				bound = true
				i++
			}

		case "pv":
			if i+1 < len(tokens) {
				line.Move = tokens[i+1]
				hasPV = true
			}
			i = len(tokens)
		}
	}

	if !hasScore || !hasPV || bound {
		return Line{}, false, nil
	}
	line.Rank = rank - 1
	return line, true, nil
}

// mateToCentipawns maps a "mate N" score onto the centipawn scale.
// Mate 0 means the side to move is already mated.
func mateToCentipawns(n int) int {
	switch {
	case n > 0:
		return MateScore - n
	case n < 0:
		return -MateScore - n
	default:
		return -MateScore
	}
}
