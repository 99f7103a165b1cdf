package pgnspy

import (
	"errors"
	"math"
	"slices"
	"testing"
)

// openSettings counts every position with candidates.
func openSettings() AnalysisSettings {
	s := DefaultSettings()
	s.ExcludeForcedMoves = false
	s.IncludeOnlyUnclearPositions = false
	s.EqualPositionThreshold = 0
	s.LosingThreshold = 0
	s.BookDepth = 0
	s.NumVariations = 3
	s.BlunderThreshold = 50
	return s
}

func TestStats_AddPosition(t *testing.T) {
	s := openSettings()
	st := NewStats(s)

	for _, p := range []*Position{
		position(0, 100, 90, 80),
		position(1, 100, 40, 30),
		position(2, 100, 90, 20),
		position(NotMatched, 100, 90, 80),
	} {
		counted, err := st.AddPosition(p, s)
		if err != nil {
			t.Fatalf("AddPosition() error = %v", err)
		}
		if !counted {
			t.Fatalf("AddPosition(%+v) not counted", p)
		}
	}

	if st.Positions != 4 {
		t.Errorf("Positions = %d, want 4", st.Positions)
	}
	if !slices.Equal(st.TValues, []int{1, 1, 1}) || st.Unmatched != 1 {
		t.Errorf("TValues = %v, Unmatched = %d", st.TValues, st.Unmatched)
	}
	if !slices.Equal(st.TMoves, []int{4, 4, 4}) {
		t.Errorf("TMoves = %v, want [4 4 4]", st.TMoves)
	}
	if !slices.Equal(st.TCumulative, []int{1, 2, 3}) {
		t.Errorf("TCumulative = %v, want [1 2 3]", st.TCumulative)
	}
	// Losses 0, 60 and 80 are exact; the unmatched move's bound of 20 only
	// feeds the blunder check.
	if st.LossSum != 140 || len(st.Losses) != 3 {
		t.Errorf("LossSum = %d over %d samples, want 140 over 3", st.LossSum, len(st.Losses))
	}
	if st.Blunders != 2 {
		t.Errorf("Blunders = %d, want 2", st.Blunders)
	}
	if got := st.MatchRate(0); got != 0.25 {
		t.Errorf("MatchRate(0) = %v, want 0.25", got)
	}
}

// Forced gap of 450 with exclusion enabled touches no counter.
func TestStats_ScenarioB(t *testing.T) {
	s := openSettings()
	s.ExcludeForcedMoves = true
	s.ForcedMoveCutoff = 100
	st := NewStats(s)

	p := position(0, 500, 50)
	if !p.IsForcedMove(1, 100) {
		t.Fatal("IsForcedMove(1, 100) = false, want true")
	}
	counted, err := st.AddPosition(p, s)
	if err != nil {
		t.Fatalf("AddPosition() error = %v", err)
	}
	if counted {
		t.Error("forced position was counted")
	}

	empty := NewStats(s)
	if st.Positions != 0 || st.Unmatched != 0 || st.Blunders != 0 || st.LossSum != 0 || len(st.Losses) != 0 ||
		!slices.Equal(st.TValues, empty.TValues) || !slices.Equal(st.TMoves, empty.TMoves) {
		t.Errorf("counters touched: %+v", st)
	}
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*AnalysisSettings)
		p      *Position
		want   bool
	}{
		{"no gates", func(*AnalysisSettings) {}, position(0, 10, 5), true},
		{"no candidates", func(*AnalysisSettings) {}, position(NotMatched), false},
		{"inside book", func(s *AnalysisSettings) { s.BookDepth = 20 }, position(0, 10, 5), false},
		{"forced excluded", func(s *AnalysisSettings) { s.ExcludeForcedMoves = true; s.ForcedMoveCutoff = 100 }, position(0, 300, 10), false},
		{"not forced", func(s *AnalysisSettings) { s.ExcludeForcedMoves = true; s.ForcedMoveCutoff = 100 }, position(0, 100, 10), true},
		{"forced ignored with one variation", func(s *AnalysisSettings) {
			s.ExcludeForcedMoves = true
			s.NumVariations = 1
		}, position(0, 300), true},
		{"clear position dropped", func(s *AnalysisSettings) { s.IncludeOnlyUnclearPositions = true; s.UnclearPositionCutoff = 50 }, position(0, 100, 10), false},
		{"unclear position kept", func(s *AnalysisSettings) { s.IncludeOnlyUnclearPositions = true; s.UnclearPositionCutoff = 50 }, position(0, 100, 80), true},
		{"outside equal window", func(s *AnalysisSettings) { s.EqualPositionThreshold = 50 }, position(0, 120, 80), false},
		{"inside equal window", func(s *AnalysisSettings) { s.EqualPositionThreshold = 50 }, position(0, -30, -40), true},
		{"losing window", func(s *AnalysisSettings) { s.EqualPositionThreshold = 50; s.LosingThreshold = 200 }, position(0, -120, -150), true},
		{"equal kept alongside losing window", func(s *AnalysisSettings) { s.EqualPositionThreshold = 50; s.LosingThreshold = 200 }, position(0, 0, -10), true},
		{"hopeless outside both windows", func(s *AnalysisSettings) { s.EqualPositionThreshold = 50; s.LosingThreshold = 200 }, position(0, -300, -320), false},
		{"winning outside both windows", func(s *AnalysisSettings) { s.EqualPositionThreshold = 50; s.LosingThreshold = 200 }, position(0, 120, 100), false},
		{"losing window alone", func(s *AnalysisSettings) { s.EqualPositionThreshold = 0; s.LosingThreshold = 200 }, position(0, -120, -150), true},
		{"losing window alone drops equal", func(s *AnalysisSettings) { s.EqualPositionThreshold = 0; s.LosingThreshold = 200 }, position(0, 0, -10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openSettings()
			tt.modify(&s)
			if got := Eligible(tt.p, s); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStats_EqualAndLosingWindows(t *testing.T) {
	s := openSettings()
	s.EqualPositionThreshold = 50
	s.LosingThreshold = 200
	st := NewStats(s)

	for _, tt := range []struct {
		best int
		want bool
	}{
		{0, true},
		{30, true},
		{-120, true},
		{-300, false},
	} {
		counted, err := st.AddPosition(position(0, tt.best, tt.best-10), s)
		if err != nil {
			t.Fatalf("AddPosition(best %d) error = %v", tt.best, err)
		}
		if counted != tt.want {
			t.Errorf("AddPosition(best %d) counted = %v, want %v", tt.best, counted, tt.want)
		}
	}
	if st.Positions != 3 {
		t.Errorf("Positions = %d, want 3", st.Positions)
	}
}

func TestStats_PerRankDenominators(t *testing.T) {
	s := openSettings()
	s.ExcludeForcedMoves = true
	s.ForcedMoveCutoff = 100
	st := NewStats(s)

	// Rank 2 is 300 behind the best, so the position only counts towards
	// the rank 0 and rank 1 denominators.
	if _, err := st.AddPosition(position(1, 100, 50, -200), s); err != nil {
		t.Fatalf("AddPosition() error = %v", err)
	}
	// Only two legal moves.
	if _, err := st.AddPosition(position(0, 100, 60), s); err != nil {
		t.Fatalf("AddPosition() error = %v", err)
	}

	if !slices.Equal(st.TMoves, []int{2, 2, 0}) {
		t.Errorf("TMoves = %v, want [2 2 0]", st.TMoves)
	}
	if !slices.Equal(st.TCumulative, []int{1, 2, 0}) {
		t.Errorf("TCumulative = %v, want [1 2 0]", st.TCumulative)
	}
	if got := st.MatchRate(2); got != 0 {
		t.Errorf("MatchRate(2) with empty denominator = %v, want 0", got)
	}
}

func TestStats_Finalise(t *testing.T) {
	s := openSettings()
	st := NewStats(s)
	for _, played := range []int{0, 1, 2, 1} {
		if _, err := st.AddPosition(position(played, 100, 60, 0), s); err != nil {
			t.Fatalf("AddPosition() error = %v", err)
		}
	}

	st.Finalise()
	// Losses 0, 40, 100, 40: mean 45, sample variance 5100/3 = 1700.
	if st.AverageLoss != 45 {
		t.Errorf("AverageLoss = %v, want 45", st.AverageLoss)
	}
	if want := math.Sqrt(1700); math.Abs(st.StdDevLoss-want) > 1e-9 {
		t.Errorf("StdDevLoss = %v, want %v", st.StdDevLoss, want)
	}

	avg, sd := st.AverageLoss, st.StdDevLoss
	st.Finalise()
	if st.AverageLoss != avg || st.StdDevLoss != sd {
		t.Errorf("second Finalise() changed results: (%v, %v) -> (%v, %v)", avg, sd, st.AverageLoss, st.StdDevLoss)
	}
	if !st.Finalised() {
		t.Error("Finalised() = false")
	}

	if _, err := st.AddPosition(position(0, 100, 60), s); !errors.Is(err, ErrFinalised) {
		t.Errorf("AddPosition() after Finalise error = %v, want ErrFinalised", err)
	}
	if err := st.Merge(NewStats(s)); !errors.Is(err, ErrFinalised) {
		t.Errorf("Merge() after Finalise error = %v, want ErrFinalised", err)
	}
}

func TestStats_FinaliseSmallSamples(t *testing.T) {
	s := openSettings()

	empty := NewStats(s)
	empty.Finalise()
	if empty.AverageLoss != 0 || empty.StdDevLoss != 0 {
		t.Errorf("empty stats = (%v, %v), want zeros", empty.AverageLoss, empty.StdDevLoss)
	}

	one := NewStats(s)
	if _, err := one.AddPosition(position(1, 100, 70), s); err != nil {
		t.Fatalf("AddPosition() error = %v", err)
	}
	one.Finalise()
	if one.AverageLoss != 30 || one.StdDevLoss != 0 {
		t.Errorf("single sample = (%v, %v), want (30, 0)", one.AverageLoss, one.StdDevLoss)
	}
}

func TestStats_MergeOrderIndependent(t *testing.T) {
	s := openSettings()
	parts := make([]*Stats, 3)
	inputs := [][]*Position{
		{position(0, 100, 90, 80), position(2, 50, 20, -40)},
		{position(NotMatched, 10, 0, -5)},
		{position(1, 300, 250, 240), position(1, 0, -60, -70), position(0, 5, 4, 3)},
	}
	for i, ps := range inputs {
		parts[i] = NewStats(s)
		for _, p := range ps {
			if _, err := parts[i].AddPosition(p, s); err != nil {
				t.Fatalf("AddPosition() error = %v", err)
			}
		}
	}

	merge := func(order ...int) *Stats {
		out := NewStats(s)
		for _, i := range order {
			if err := out.Merge(parts[i]); err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
		}
		out.Finalise()
		return out
	}

	want := merge(0, 1, 2)
	for _, order := range [][]int{{0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}} {
		got := merge(order...)
		if got.Positions != want.Positions || got.Unmatched != want.Unmatched ||
			got.Blunders != want.Blunders || got.LossSum != want.LossSum ||
			!slices.Equal(got.TValues, want.TValues) ||
			!slices.Equal(got.TMoves, want.TMoves) ||
			!slices.Equal(got.TCumulative, want.TCumulative) {
			t.Errorf("order %v: %+v, want %+v", order, got, want)
		}
		if !slices.Equal(slices.Sorted(slices.Values(got.Losses)), slices.Sorted(slices.Values(want.Losses))) {
			t.Errorf("order %v: samples %v, want %v", order, got.Losses, want.Losses)
		}
		if math.Abs(got.AverageLoss-want.AverageLoss) > 1e-9 || math.Abs(got.StdDevLoss-want.StdDevLoss) > 1e-9 {
			t.Errorf("order %v: (%v, %v), want (%v, %v)", order, got.AverageLoss, got.StdDevLoss, want.AverageLoss, want.StdDevLoss)
		}
	}
}

func TestReport_AddGame(t *testing.T) {
	s := openSettings()
	r := NewReport(s)

	g := &Game{
		White: "Alice",
		Black: "Bob",
		Positions: []Position{
			{ToMove: White, MoveNumber: 20, TopMoves: []Move{{Move: "e2e4", Score: 30}, {Move: "d2d4", Score: 20}}, MovePlayed: 0},
			{ToMove: Black, MoveNumber: 20, TopMoves: []Move{{Move: "e7e5", Score: 10}, {Move: "c7c5", Score: 0}}, MovePlayed: 1},
			{ToMove: White, MoveNumber: 21},
		},
	}
	if err := r.AddGame(g); err != nil {
		t.Fatalf("AddGame() error = %v", err)
	}
	r.Finalise()

	if r.Total.Positions != 2 {
		t.Errorf("Total.Positions = %d, want 2", r.Total.Positions)
	}
	if got := r.PlayerNames(); !slices.Equal(got, []string{"Alice", "Bob"}) {
		t.Errorf("PlayerNames() = %v", got)
	}
	if r.Players["Alice"].TValues[0] != 1 || r.Players["Bob"].TValues[1] != 1 {
		t.Errorf("per-player buckets = %v / %v", r.Players["Alice"].TValues, r.Players["Bob"].TValues)
	}
	if r.Players["Bob"].AverageLoss != 10 {
		t.Errorf("Bob AverageLoss = %v, want 10", r.Players["Bob"].AverageLoss)
	}
}
