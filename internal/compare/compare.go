package compare

import (
	"errors"
	"fmt"
	"strings"

	"github.com/discochess/pgnspy"
)

// ErrUnknownPlayer is returned when the player is not in the report.
var ErrUnknownPlayer = errors.New("compare: player not in report")

// Comparison sets one player's results against a reference group.
type Comparison struct {
	Player    string   `json:"player"`
	Reference []string `json:"reference"`

	// Loss samples are the centipawn losses of matched moves.
	PlayerLoss    *DescriptiveStats `json:"player_loss"`
	ReferenceLoss *DescriptiveStats `json:"reference_loss"`

	MannWhitney *MannWhitneyResult `json:"mann_whitney"`
	EffectSize  *EffectSize        `json:"effect_size"`
	BootstrapCI *BootstrapResult   `json:"bootstrap_ci"`

	// TopMatch compares the rate of playing the engine's first choice.
	TopMatch *ProportionTest `json:"top_match"`

	// Lower is true when the player's loss is significantly lower than the
	// reference's.
	Lower bool `json:"lower"`
}

// Options tunes the resampling of a comparison.
type Options struct {
	BootstrapIterations int
	Confidence          float64
}

// DefaultOptions returns 2000 bootstrap iterations at 95% confidence.
func DefaultOptions() Options {
	return Options{BootstrapIterations: 2000, Confidence: 0.95}
}

// Player compares player against every other player in r pooled together.
// The player is matched case-insensitively.
func Player(r *pgnspy.Report, player string, opts Options) (*Comparison, error) {
	var (
		name string
		subj *pgnspy.Stats
		ref  []*pgnspy.Stats
		refs []string
	)
	for _, n := range r.PlayerNames() {
		if subj == nil && strings.EqualFold(n, strings.TrimSpace(player)) {
			name, subj = n, r.Players[n]
			continue
		}
		ref = append(ref, r.Players[n])
		refs = append(refs, n)
	}
	if subj == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, player)
	}
	return Stats(name, subj, refs, ref, opts), nil
}

// Stats compares subject with the pooled reference stats.
func Stats(name string, subject *pgnspy.Stats, refNames []string, reference []*pgnspy.Stats, opts Options) *Comparison {
	s1 := toFloats(subject.Losses)
	var s2 []float64
	var hits2, n2 int
	for _, st := range reference {
		s2 = append(s2, toFloats(st.Losses)...)
		h, n := topMatch(st)
		hits2 += h
		n2 += n
	}
	hits1, n1 := topMatch(subject)

	c := &Comparison{
		Player:        name,
		Reference:     refNames,
		PlayerLoss:    Describe(s1),
		ReferenceLoss: Describe(s2),
		MannWhitney:   MannWhitneyU(s1, s2),
		EffectSize:    ComputeEffectSize(s1, s2),
		BootstrapCI:   BootstrapConfidenceInterval(s1, s2, opts.BootstrapIterations, opts.Confidence),
		TopMatch:      TwoProportions(hits1, n1, hits2, n2),
	}
	c.Lower = c.MannWhitney.Significant && c.PlayerLoss.Mean < c.ReferenceLoss.Mean
	return c
}

// Summary returns a human-readable summary of the comparison.
func (c *Comparison) Summary() string {
	sig := "not statistically significant"
	if c.MannWhitney.Significant {
		sig = fmt.Sprintf("statistically significant (p=%.4f)", c.MannWhitney.PValue)
	}

	return fmt.Sprintf(
		"%s vs %d reference players:\n"+
			"  %s: ACPL mean=%.2f, median=%.2f, std=%.2f, T1=%.1f%%\n"+
			"  reference: ACPL mean=%.2f, median=%.2f, std=%.2f, T1=%.1f%%\n"+
			"  Difference: %.2f cp/move [%.2f, %.2f]\n"+
			"  Effect size: %.2f (%s)\n"+
			"  Result: %s",
		c.Player, len(c.Reference),
		c.Player, c.PlayerLoss.Mean, c.PlayerLoss.Median, c.PlayerLoss.StdDev, 100*c.TopMatch.P1,
		c.ReferenceLoss.Mean, c.ReferenceLoss.Median, c.ReferenceLoss.StdDev, 100*c.TopMatch.P2,
		c.BootstrapCI.MeanDiff, c.BootstrapCI.LowerBound, c.BootstrapCI.UpperBound,
		c.EffectSize.CohensD, c.EffectSize.Interpretation,
		sig,
	)
}

func topMatch(st *pgnspy.Stats) (hits, n int) {
	if len(st.TMoves) == 0 || len(st.TCumulative) == 0 {
		return 0, 0
	}
	return st.TCumulative[0], st.TMoves[0]
}

func toFloats(ints []int) []float64 {
	floats := make([]float64, len(ints))
	for i, v := range ints {
		floats[i] = float64(v)
	}
	return floats
}
