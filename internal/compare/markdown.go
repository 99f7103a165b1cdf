package compare

import (
	"fmt"
	"io"
	"strings"
)

// WriteMarkdown writes c as a Markdown report section.
func WriteMarkdown(w io.Writer, c *Comparison) error {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s vs reference\n\n", c.Player)
	fmt.Fprintf(&b, "Reference players: %s\n\n", strings.Join(c.Reference, ", "))

	fmt.Fprintln(&b, "### Centipawn loss")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "| Metric | Player | Reference |")
	fmt.Fprintln(&b, "|--------|--------|-----------|")
	fmt.Fprintf(&b, "| Moves | %d | %d |\n", c.PlayerLoss.N, c.ReferenceLoss.N)
	fmt.Fprintf(&b, "| Mean | %.2f | %.2f |\n", c.PlayerLoss.Mean, c.ReferenceLoss.Mean)
	fmt.Fprintf(&b, "| Median | %.0f | %.0f |\n", c.PlayerLoss.Median, c.ReferenceLoss.Median)
	fmt.Fprintf(&b, "| Std Dev | %.2f | %.2f |\n", c.PlayerLoss.StdDev, c.ReferenceLoss.StdDev)
	fmt.Fprintf(&b, "| P25 | %.0f | %.0f |\n", c.PlayerLoss.P25, c.ReferenceLoss.P25)
	fmt.Fprintf(&b, "| P75 | %.0f | %.0f |\n", c.PlayerLoss.P75, c.ReferenceLoss.P75)
	fmt.Fprintf(&b, "| Max | %.0f | %.0f |\n", c.PlayerLoss.Max, c.ReferenceLoss.Max)
	fmt.Fprintf(&b, "| T1 | %.1f%% | %.1f%% |\n", 100*c.TopMatch.P1, 100*c.TopMatch.P2)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "### Statistical analysis")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "- **Mann-Whitney U:** %.2f (z=%.2f, p=%.4f)\n",
		c.MannWhitney.U, c.MannWhitney.Z, c.MannWhitney.PValue)
	fmt.Fprintf(&b, "- **Effect size (Cohen's d):** %.2f (%s)\n",
		c.EffectSize.CohensD, c.EffectSize.Interpretation)
	fmt.Fprintf(&b, "- **%.0f%% CI for mean difference:** [%.2f, %.2f]\n",
		100*c.BootstrapCI.Confidence, c.BootstrapCI.LowerBound, c.BootstrapCI.UpperBound)
	fmt.Fprintf(&b, "- **T1 match rate:** z=%.2f, p=%.4f\n", c.TopMatch.Z, c.TopMatch.PValue)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "### Conclusion")
	fmt.Fprintln(&b)
	switch {
	case c.Lower:
		fmt.Fprintf(&b, "**%s** loses significantly less than the reference (p < %.2f, effect size: %s).\n",
			c.Player, Alpha, c.EffectSize.Interpretation)
	case c.MannWhitney.Significant:
		fmt.Fprintf(&b, "**%s** loses significantly more than the reference (p < %.2f).\n", c.Player, Alpha)
	default:
		fmt.Fprintf(&b, "No statistically significant difference detected (p >= %.2f).\n", Alpha)
	}
	fmt.Fprintln(&b)

	_, err := io.WriteString(w, b.String())
	return err
}
