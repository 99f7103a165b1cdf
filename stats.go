package pgnspy

import (
	"gonum.org/v1/gonum/stat"
)

// Stats accumulates classified positions for one scope, such as a player
// or a whole run. It is not safe for concurrent use; the pool gives each
// worker its own Stats and merges them once all workers are done.
type Stats struct {
	// Positions is the number of positions that passed every gate.
	Positions int `json:"positions"`

	// TValues[n] counts positions where the played move was rank n.
	TValues []int `json:"t_values"`

	// Unmatched counts positions where the played move was not among the
	// candidates.
	Unmatched int `json:"unmatched"`

	// TMoves[n] counts positions where rank n existed and passed the
	// per-rank forced and unclear gates. It is the match-rate denominator.
	TMoves []int `json:"t_moves"`

	// TCumulative[n] counts the positions in TMoves[n] where the played
	// move was rank n or better.
	TCumulative []int `json:"t_cumulative"`

	Blunders int `json:"blunders"`

	// LossSum and Losses cover matched moves only. An unmatched move has
	// no exact loss.
	LossSum int   `json:"loss_sum"`
	Losses  []int `json:"losses,omitempty"`

	// AverageLoss and StdDevLoss are set by Finalise.
	AverageLoss float64 `json:"average_loss"`
	StdDevLoss  float64 `json:"stddev_loss"`

	finalised bool
}

// NewStats returns empty Stats sized for the candidate count of s.
func NewStats(s AnalysisSettings) *Stats {
	st := &Stats{}
	st.Initialize(s)
	return st
}

// Initialize resets every counter and sizes the rank buckets to
// s.NumVariations.
func (st *Stats) Initialize(s AnalysisSettings) {
	k := max(1, s.NumVariations)
	*st = Stats{
		TValues:     make([]int, k),
		TMoves:      make([]int, k),
		TCumulative: make([]int, k),
	}
}

// Eligible reports whether p passes every position-level gate of s: it
// has candidates, lies outside the opening book, is not excluded as forced,
// is unclear when only unclear positions are wanted, and lies inside the
// equal or the losing window when either is configured.
func Eligible(p *Position, s AnalysisSettings) bool {
	if len(p.TopMoves) == 0 {
		return false
	}
	if p.MoveNumber <= s.BookDepth {
		return false
	}
	// Forced and unclear need a second candidate to compare against.
	if s.NumVariations > 1 {
		if s.ExcludeForcedMoves && p.IsForcedMove(1, s.ForcedMoveCutoff) {
			return false
		}
		if s.IncludeOnlyUnclearPositions && !p.IsUnclearPosition(1, s.UnclearPositionCutoff) {
			return false
		}
	}
	return inWindow(p, s)
}

// inWindow reports whether p lies in the equal window or the losing
// window. A zero threshold disables its window; with both disabled every
// position qualifies.
func inWindow(p *Position, s AnalysisSettings) bool {
	equal, losing := s.EqualPositionThreshold > 0, s.LosingThreshold > 0
	if !equal && !losing {
		return true
	}
	if equal && p.IsEqualPosition(s.EqualPositionThreshold) {
		return true
	}
	return losing && p.IsLosingPosition(s.EqualPositionThreshold, s.LosingThreshold)
}

// AddPosition folds p into the counters if it passes the gates of s and
// reports whether it did. A position failing any gate touches nothing.
func (st *Stats) AddPosition(p *Position, s AnalysisSettings) (bool, error) {
	if st.finalised {
		return false, ErrFinalised
	}
	if st.TValues == nil {
		st.Initialize(s)
	}
	if !Eligible(p, s) {
		return false, nil
	}

	st.Positions++
	if p.MovePlayed >= 0 && p.MovePlayed < len(st.TValues) {
		st.TValues[p.MovePlayed]++
	} else {
		st.Unmatched++
	}

	for n := 0; n < len(st.TMoves) && n < len(p.TopMoves); n++ {
		if n > 0 && !rankCounts(p, n, s) {
			continue
		}
		st.TMoves[n]++
		if p.MovePlayed >= 0 && p.MovePlayed <= n {
			st.TCumulative[n]++
		}
	}

	if p.IsBlunder(s.BlunderThreshold) {
		st.Blunders++
	}
	if loss, exact := p.CentipawnLoss(); exact {
		st.LossSum += loss
		st.Losses = append(st.Losses, loss)
	}
	return true, nil
}

// rankCounts applies the forced and unclear gates at rank n.
func rankCounts(p *Position, n int, s AnalysisSettings) bool {
	if s.ExcludeForcedMoves && p.IsForcedMove(n, s.ForcedMoveCutoff) {
		return false
	}
	if s.IncludeOnlyUnclearPositions && !p.IsUnclearPosition(n, s.UnclearPositionCutoff) {
		return false
	}
	return true
}

// Merge adds the counters and samples of o to st. Merging is commutative
// for every counter, so per-worker Stats can be combined in any order.
func (st *Stats) Merge(o *Stats) error {
	if st.finalised {
		return ErrFinalised
	}
	st.Positions += o.Positions
	st.Unmatched += o.Unmatched
	st.Blunders += o.Blunders
	st.LossSum += o.LossSum
	st.TValues = addBuckets(st.TValues, o.TValues)
	st.TMoves = addBuckets(st.TMoves, o.TMoves)
	st.TCumulative = addBuckets(st.TCumulative, o.TCumulative)
	st.Losses = append(st.Losses, o.Losses...)
	return nil
}

func addBuckets(dst, src []int) []int {
	for len(dst) < len(src) {
		dst = append(dst, 0)
	}
	for i, v := range src {
		dst[i] += v
	}
	return dst
}

// Finalise computes the average and standard deviation of the centipawn
// loss samples. It runs once; later calls keep the first result and
// AddPosition is rejected from then on.
func (st *Stats) Finalise() {
	if st.finalised {
		return
	}
	st.finalised = true

	switch n := len(st.Losses); n {
	case 0:
	case 1:
		st.AverageLoss = float64(st.Losses[0])
	default:
		x := make([]float64, n)
		for i, v := range st.Losses {
			x[i] = float64(v)
		}
		st.AverageLoss, st.StdDevLoss = stat.MeanStdDev(x, nil)
	}
}

// Finalised reports whether Finalise has run.
func (st *Stats) Finalised() bool {
	return st.finalised
}

// MatchRate returns the fraction of positions where the played move was
// rank n or better, among the positions eligible at rank n.
func (st *Stats) MatchRate(n int) float64 {
	if n < 0 || n >= len(st.TMoves) || st.TMoves[n] == 0 {
		return 0
	}
	return float64(st.TCumulative[n]) / float64(st.TMoves[n])
}

// BlunderRate returns blunders as a fraction of counted positions.
func (st *Stats) BlunderRate() float64 {
	if st.Positions == 0 {
		return 0
	}
	return float64(st.Blunders) / float64(st.Positions)
}
