// Package compare tests whether one player's engine agreement differs from
// a reference group's.
package compare

import (
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the significance level of every test in the package.
const Alpha = 0.05

// MannWhitneyResult contains the result of a Mann-Whitney U test.
type MannWhitneyResult struct {
	U           float64 `json:"u"`       // U statistic.
	Z           float64 `json:"z"`       // Z score (normal approximation).
	PValue      float64 `json:"p_value"` // Two-tailed p-value.
	Significant bool    `json:"significant"`
}

// MannWhitneyU performs the Mann-Whitney U test on two samples, using the
// normal approximation with a tie correction.
func MannWhitneyU(sample1, sample2 []float64) *MannWhitneyResult {
	n1 := float64(len(sample1))
	n2 := float64(len(sample2))

	if n1 == 0 || n2 == 0 {
		return &MannWhitneyResult{PValue: 1}
	}

	type rankedValue struct {
		value float64
		first bool
	}

	combined := make([]rankedValue, 0, len(sample1)+len(sample2))
	for _, v := range sample1 {
		combined = append(combined, rankedValue{value: v, first: true})
	}
	for _, v := range sample2 {
		combined = append(combined, rankedValue{value: v})
	}
	slices.SortFunc(combined, func(a, b rankedValue) int {
		switch {
		case a.value < b.value:
			return -1
		case a.value > b.value:
			return 1
		}
		return 0
	})

	// Average ranks over ties, accumulating the tie correction term.
	var r1, ties float64
	for i := 0; i < len(combined); {
		j := i
		for j < len(combined) && combined[j].value == combined[i].value {
			j++
		}
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if combined[k].first {
				r1 += avgRank
			}
		}
		t := float64(j - i)
		ties += t*t*t - t
		i = j
	}

	u1 := r1 - n1*(n1+1)/2
	u := math.Min(u1, n1*n2-u1)

	n := n1 + n2
	mu := n1 * n2 / 2
	sigma := math.Sqrt(n1 * n2 / 12 * ((n + 1) - ties/(n*(n-1))))

	z := 0.0
	if sigma > 0 {
		z = (u - mu) / sigma
	}
	p := 1.0
	if sigma > 0 {
		p = 2 * distuv.UnitNormal.CDF(-math.Abs(z))
	}

	return &MannWhitneyResult{
		U:           u,
		Z:           z,
		PValue:      p,
		Significant: p < Alpha,
	}
}

// EffectSize contains effect size metrics.
type EffectSize struct {
	CohensD        float64 `json:"cohens_d"` // (mean1 - mean2) / pooled std.
	Interpretation string  `json:"interpretation"`
}

// ComputeEffectSize computes Cohen's d effect size.
func ComputeEffectSize(sample1, sample2 []float64) *EffectSize {
	if len(sample1) < 2 || len(sample2) < 2 {
		return &EffectSize{Interpretation: "undefined"}
	}

	mean1, std1 := stat.MeanStdDev(sample1, nil)
	mean2, std2 := stat.MeanStdDev(sample2, nil)

	n1 := float64(len(sample1))
	n2 := float64(len(sample2))
	pooledStd := math.Sqrt(((n1-1)*std1*std1 + (n2-1)*std2*std2) / (n1 + n2 - 2))

	var d float64
	if pooledStd > 0 {
		d = (mean1 - mean2) / pooledStd
	}

	return &EffectSize{
		CohensD:        d,
		Interpretation: interpretCohensD(math.Abs(d)),
	}
}

func interpretCohensD(d float64) string {
	switch {
	case d < 0.2:
		return "negligible"
	case d < 0.5:
		return "small"
	case d < 0.8:
		return "medium"
	default:
		return "large"
	}
}

// BootstrapResult is a percentile bootstrap interval for a mean difference.
type BootstrapResult struct {
	MeanDiff   float64 `json:"mean_diff"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
	Confidence float64 `json:"confidence"` // e.g., 0.95 for 95% CI.
}

// BootstrapConfidenceInterval computes a confidence interval for
// mean(sample1) - mean(sample2). The resampling is seeded so that the same
// inputs always give the same interval.
func BootstrapConfidenceInterval(sample1, sample2 []float64, iterations int, confidence float64) *BootstrapResult {
	if len(sample1) == 0 || len(sample2) == 0 || iterations < 1 {
		return &BootstrapResult{Confidence: confidence}
	}

	rng := rand.New(rand.NewPCG(uint64(len(sample1)), uint64(len(sample2))))
	diffs := make([]float64, iterations)
	for i := range diffs {
		diffs[i] = resampledMean(rng, sample1) - resampledMean(rng, sample2)
	}
	slices.Sort(diffs)

	alpha := 1 - confidence
	return &BootstrapResult{
		MeanDiff:   stat.Mean(sample1, nil) - stat.Mean(sample2, nil),
		LowerBound: stat.Quantile(alpha/2, stat.Empirical, diffs, nil),
		UpperBound: stat.Quantile(1-alpha/2, stat.Empirical, diffs, nil),
		Confidence: confidence,
	}
}

// resampledMean is the mean of one resample of sample with replacement.
func resampledMean(rng *rand.Rand, sample []float64) float64 {
	var sum float64
	for range sample {
		sum += sample[rng.IntN(len(sample))]
	}
	return sum / float64(len(sample))
}

// ProportionTest is a two-proportion z-test.
type ProportionTest struct {
	P1          float64 `json:"p1"`
	P2          float64 `json:"p2"`
	Z           float64 `json:"z"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
}

// TwoProportions tests whether hits1/n1 and hits2/n2 differ.
func TwoProportions(hits1, n1, hits2, n2 int) *ProportionTest {
	if n1 == 0 || n2 == 0 {
		return &ProportionTest{PValue: 1}
	}

	p1 := float64(hits1) / float64(n1)
	p2 := float64(hits2) / float64(n2)
	pooled := float64(hits1+hits2) / float64(n1+n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(n1) + 1/float64(n2)))

	res := &ProportionTest{P1: p1, P2: p2, PValue: 1}
	if se > 0 {
		res.Z = (p1 - p2) / se
		res.PValue = 2 * distuv.UnitNormal.CDF(-math.Abs(res.Z))
	}
	res.Significant = res.PValue < Alpha
	return res
}

// DescriptiveStats contains basic descriptive statistics.
type DescriptiveStats struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
}

// Describe computes descriptive statistics for a sample.
func Describe(sample []float64) *DescriptiveStats {
	if len(sample) == 0 {
		return &DescriptiveStats{}
	}

	sorted := slices.Clone(sample)
	slices.Sort(sorted)

	d := &DescriptiveStats{
		N:      len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
		P75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	return d
}
