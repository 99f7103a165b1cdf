package uci

import (
	"errors"
	"strings"
	"testing"
)

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestParse_RanksByLabel(t *testing.T) {
	out := lines(`
info depth 12 seldepth 18 multipv 2 score cp 80 nodes 100 time 15 pv d2d4 d7d5
info depth 12 seldepth 18 multipv 3 score cp 40 nodes 100 time 15 pv g1f3
info depth 12 seldepth 18 multipv 1 score cp 120 nodes 100 time 15 pv e2e4 e7e5
bestmove e2e4 ponder e7e5`)

	a, err := Parse(out, 3)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []Line{
		{Rank: 0, Depth: 12, TimeMs: 15, Score: 120, Move: "e2e4"},
		{Rank: 1, Depth: 12, TimeMs: 15, Score: 80, Move: "d2d4"},
		{Rank: 2, Depth: 12, TimeMs: 15, Score: 40, Move: "g1f3"},
	}
	if len(a.Lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(a.Lines), len(want))
	}
	for i := range want {
		if a.Lines[i] != want[i] {
			t.Errorf("Lines[%d] = %+v, want %+v", i, a.Lines[i], want[i])
		}
	}
	if a.BestMove != "e2e4" {
		t.Errorf("BestMove = %q, want e2e4", a.BestMove)
	}
	if !a.Ordered {
		t.Error("Ordered = false, want true")
	}
}

func TestParse_KeepsDeepestPerRank(t *testing.T) {
	out := lines(`
info depth 1 multipv 1 score cp 10 time 1 pv a2a3
info depth 1 multipv 2 score cp 30 time 1 pv b2b3
info depth 2 multipv 1 score cp 25 time 3 pv e2e4
info depth 2 multipv 1 score cp 27 time 4 pv d2d4
info depth 2 multipv 2 score cp 5 time 4 pv c2c4
info depth 3 currmove g1f3 currmovenumber 1
info string some note
bestmove d2d4`)

	a, err := Parse(out, 2)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(a.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(a.Lines))
	}
	if a.Lines[0].Move != "d2d4" || a.Lines[0].Score != 27 || a.Lines[0].TimeMs != 4 {
		t.Errorf("rank 0 = %+v, want later depth-2 line d2d4/27", a.Lines[0])
	}
	if a.Lines[1].Move != "c2c4" || a.Lines[1].Depth != 2 {
		t.Errorf("rank 1 = %+v, want depth-2 line c2c4", a.Lines[1])
	}
}

func TestParse_ShallowerLineDoesNotReplaceDeeper(t *testing.T) {
	out := lines(`
info depth 20 multipv 1 score cp 50 pv e2e4
info depth 19 multipv 1 score cp 90 pv d2d4
bestmove e2e4`)

	a, err := Parse(out, 1)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if a.Lines[0].Depth != 20 || a.Lines[0].Move != "e2e4" {
		t.Errorf("rank 0 = %+v, want depth 20 e2e4", a.Lines[0])
	}
}

func TestParse_MateScores(t *testing.T) {
	out := lines(`
info depth 30 multipv 1 score mate 3 pv d1h5
info depth 30 multipv 2 score cp 250 pv f1c4
info depth 30 multipv 3 score mate -2 pv g1h3
bestmove d1h5`)

	a, err := Parse(out, 3)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got, want := a.Lines[0].Score, MateScore-3; got != want || !a.Lines[0].Mate {
		t.Errorf("mate 3 score = %d (mate=%v), want %d", got, a.Lines[0].Mate, want)
	}
	if got, want := a.Lines[2].Score, -MateScore+2; got != want {
		t.Errorf("mate -2 score = %d, want %d", got, want)
	}
	if !a.Ordered {
		t.Error("Ordered = false, want true")
	}
}

func TestMateToCentipawns(t *testing.T) {
	tests := []struct {
		mate int
		want int
	}{
		{1, MateScore - 1},
		{5, MateScore - 5},
		{-1, -MateScore + 1},
		{0, -MateScore},
	}
	for _, tt := range tests {
		if got := mateToCentipawns(tt.mate); got != tt.want {
			t.Errorf("mateToCentipawns(%d) = %d, want %d", tt.mate, got, tt.want)
		}
	}
}

func TestParse_OutOfOrderScoresFlagged(t *testing.T) {
	out := lines(`
info depth 8 multipv 1 score cp 10 pv e2e4
info depth 8 multipv 2 score cp 60 pv d2d4
bestmove e2e4`)

	a, err := Parse(out, 2)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if a.Ordered {
		t.Error("Ordered = true, want false for increasing scores")
	}
	if a.Lines[0].Move != "e2e4" {
		t.Errorf("rank order changed: rank 0 = %s, want e2e4", a.Lines[0].Move)
	}
}

func TestParse_FewerRanksThanRequested(t *testing.T) {
	out := lines(`
info depth 5 multipv 1 score cp -30 pv e8d8
bestmove e8d8`)

	a, err := Parse(out, 4)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(a.Lines) != 1 {
		t.Errorf("got %d lines, want 1", len(a.Lines))
	}
}

func TestParse_StopsAtMissingRank(t *testing.T) {
	out := lines(`
info depth 8 multipv 1 score cp 60 pv e2e4
info depth 8 multipv 3 score cp 10 pv g1f3
info depth 8 multipv 4 score cp 0 pv b1c3
bestmove e2e4`)

	a, err := Parse(out, 4)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(a.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(a.Lines))
	}
	for i, l := range a.Lines {
		if l.Rank != i {
			t.Errorf("Lines[%d].Rank = %d", i, l.Rank)
		}
	}
}

func TestParse_IgnoresRanksAboveMultiPV(t *testing.T) {
	out := lines(`
info depth 5 multipv 1 score cp 30 pv e2e4
info depth 5 multipv 2 score cp 20 pv d2d4
bestmove e2e4`)

	a, err := Parse(out, 1)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(a.Lines) != 1 {
		t.Errorf("got %d lines, want 1", len(a.Lines))
	}
}

func TestParse_SkipsBoundScores(t *testing.T) {
	out := lines(`
info depth 9 multipv 1 score cp 40 pv e2e4
info depth 10 multipv 1 score cp 90 lowerbound pv e2e4
bestmove e2e4`)

	a, err := Parse(out, 1)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if a.Lines[0].Depth != 9 || a.Lines[0].Score != 40 {
		t.Errorf("rank 0 = %+v, want exact depth-9 score", a.Lines[0])
	}
}

func TestParse_DefaultsMultiPVLabel(t *testing.T) {
	out := lines(`
info depth 7 score cp 15 time 3 pv c2c4
bestmove c2c4`)

	a, err := Parse(out, 3)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(a.Lines) != 1 || a.Lines[0].Rank != 0 {
		t.Errorf("Lines = %+v, want a single rank-0 line", a.Lines)
	}
}

func TestParse_NoLegalMoves(t *testing.T) {
	a, err := Parse(lines("info depth 0 score mate 0\nbestmove (none)"), 3)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(a.Lines) != 0 {
		t.Errorf("got %d lines, want 0", len(a.Lines))
	}
}

func TestParse_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"no bestmove", "info depth 3 multipv 1 score cp 10 pv e2e4"},
		{"bare bestmove", "info depth 3 multipv 1 score cp 10 pv e2e4\nbestmove"},
		{"bad depth", "info depth x multipv 1 score cp 10 pv e2e4\nbestmove e2e4"},
		{"bad score", "info depth 3 multipv 1 score cp ten pv e2e4\nbestmove e2e4"},
		{"unknown score type", "info depth 3 multipv 1 score wdl 10 pv e2e4\nbestmove e2e4"},
		{"truncated score", "info depth 3 score cp"},
		{"zero multipv", "info depth 3 multipv 0 score cp 10 pv e2e4\nbestmove e2e4"},
		{"no evaluations", "bestmove e2e4"},
		{"no first rank", "info depth 3 multipv 2 score cp 10 pv e2e4\nbestmove e2e4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(lines(tt.output), 3)
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("Parse() error = %v, want ErrProtocol", err)
			}
			var opErr *OpError
			if !errors.As(err, &opErr) || opErr.Op != "parse" {
				t.Errorf("Parse() error = %v, want *OpError with Op parse", err)
			}
		})
	}
}

func TestIsBestMove(t *testing.T) {
	if !IsBestMove("bestmove e2e4 ponder e7e5") {
		t.Error("IsBestMove(bestmove ...) = false")
	}
	if IsBestMove("info depth 1 pv bestmove") {
		t.Error("IsBestMove(info ...) = true")
	}
}
