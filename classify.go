package pgnspy

// The classifier methods are pure functions of a Position and their
// thresholds. Scores are from the side to move's perspective and TopMoves
// are ordered best first.

// CentipawnLoss returns how much worse the played move scored than the best
// candidate. When the played move is not among the candidates, the loss
// against the worst candidate is returned as a lower bound and exact is
// false. A position without candidates has no loss.
func (p *Position) CentipawnLoss() (loss int, exact bool) {
	if len(p.TopMoves) == 0 {
		return 0, false
	}
	best := p.TopMoves[0].Score
	if p.MovePlayed >= 0 && p.MovePlayed < len(p.TopMoves) {
		return max(0, best-p.TopMoves[p.MovePlayed].Score), true
	}
	return max(0, best-p.TopMoves[len(p.TopMoves)-1].Score), false
}

// IsBlunder reports whether the played move lost more than threshold.
// For an unmatched move the lower bound is used, so a true result is
// certain while a false one may understate the loss.
func (p *Position) IsBlunder(threshold int) bool {
	loss, _ := p.CentipawnLoss()
	return loss > threshold
}

// IsForcedMove reports whether the candidate at rank variation is more than
// threshold worse than the best, or does not exist because the engine found
// fewer moves.
func (p *Position) IsForcedMove(variation, threshold int) bool {
	if len(p.TopMoves) == 0 || variation <= 0 {
		return false
	}
	if variation >= len(p.TopMoves) {
		return true
	}
	return p.gap(variation) > threshold
}

// IsUnclearPosition reports whether the candidate at rank variation is
// within threshold of the best.
func (p *Position) IsUnclearPosition(variation, threshold int) bool {
	if variation < 0 || variation >= len(p.TopMoves) {
		return false
	}
	return p.gap(variation) < threshold
}

// IsEqualPosition reports whether the best score is within threshold of
// zero.
func (p *Position) IsEqualPosition(threshold int) bool {
	if len(p.TopMoves) == 0 {
		return false
	}
	return abs(p.TopMoves[0].Score) <= threshold
}

// IsLosingPosition reports whether the side to move is worse by more than
// equalThreshold but by no more than losingThreshold.
func (p *Position) IsLosingPosition(equalThreshold, losingThreshold int) bool {
	if len(p.TopMoves) == 0 {
		return false
	}
	best := p.TopMoves[0].Score
	return best < -equalThreshold && best >= -losingThreshold
}

// gap is the score difference between the best candidate and rank.
func (p *Position) gap(rank int) int {
	return p.TopMoves[0].Score - p.TopMoves[rank].Score
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
