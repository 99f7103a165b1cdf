package compare

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/discochess/pgnspy"
)

func stats(losses []int, t1, moves int) *pgnspy.Stats {
	st := pgnspy.NewStats(pgnspy.DefaultSettings())
	st.Losses = losses
	st.TCumulative[0] = t1
	st.TMoves[0] = moves
	st.Finalise()
	return st
}

func testReport() *pgnspy.Report {
	r := pgnspy.NewReport(pgnspy.DefaultSettings())
	r.Players["Suspect"] = stats([]int{0, 0, 0, 0, 1, 0, 2, 0, 0, 0, 0, 1, 0, 0, 0, 0}, 15, 16)
	r.Players["Rival"] = stats([]int{20, 35, 0, 80, 15, 40, 60, 10}, 3, 8)
	r.Players["Other"] = stats([]int{25, 5, 90, 30, 45, 0, 70, 55}, 2, 8)
	return r
}

func TestPlayer(t *testing.T) {
	c, err := Player(testReport(), " suspect ", DefaultOptions())
	if err != nil {
		t.Fatalf("Player() error = %v", err)
	}

	if c.Player != "Suspect" {
		t.Errorf("Player = %q, want Suspect", c.Player)
	}
	if want := []string{"Other", "Rival"}; !slices.Equal(c.Reference, want) {
		t.Errorf("Reference = %v, want %v", c.Reference, want)
	}
	if c.PlayerLoss.N != 16 || c.ReferenceLoss.N != 16 {
		t.Errorf("sample sizes = %d, %d, want 16, 16", c.PlayerLoss.N, c.ReferenceLoss.N)
	}
	if !c.MannWhitney.Significant || !c.Lower {
		t.Errorf("Lower = %v, MannWhitney = %+v, want a significant lower loss", c.Lower, c.MannWhitney)
	}
	if c.EffectSize.Interpretation != "large" {
		t.Errorf("EffectSize = %+v, want large", c.EffectSize)
	}
	if c.TopMatch.P1 != 15.0/16 || c.TopMatch.P2 != 5.0/16 {
		t.Errorf("TopMatch = %+v, want p1 15/16 and p2 5/16", c.TopMatch)
	}
	if !strings.Contains(c.Summary(), "statistically significant") {
		t.Errorf("Summary() = %q", c.Summary())
	}
}

func TestPlayer_Unknown(t *testing.T) {
	_, err := Player(testReport(), "Nobody", DefaultOptions())
	if !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("Player() error = %v, want ErrUnknownPlayer", err)
	}
}

func TestPlayer_NoReference(t *testing.T) {
	r := pgnspy.NewReport(pgnspy.DefaultSettings())
	r.Players["Alone"] = stats([]int{10, 20}, 1, 2)

	c, err := Player(r, "Alone", DefaultOptions())
	if err != nil {
		t.Fatalf("Player() error = %v", err)
	}
	if c.MannWhitney.Significant || c.Lower {
		t.Errorf("comparison without reference should not be significant: %+v", c.MannWhitney)
	}
	if c.EffectSize.Interpretation != "undefined" {
		t.Errorf("EffectSize = %+v, want undefined", c.EffectSize)
	}
}

func TestWriteMarkdown(t *testing.T) {
	c, err := Player(testReport(), "Suspect", DefaultOptions())
	if err != nil {
		t.Fatalf("Player() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, c); err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}
	for _, want := range []string{"## Suspect vs reference", "Other, Rival", "| Moves | 16 | 16 |", "loses significantly less"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("markdown missing %q:\n%s", want, buf.String())
		}
	}
}
