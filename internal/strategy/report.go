package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/GriffinCanCode/crumbot/internal/game"
	"github.com/GriffinCanCode/crumbot/internal/numparse"
)

// Ranked returns every candidate sorted by payoff, non-qualifying rows last.
func (e *Engine) Ranked(snap *game.Snapshot) []Decision {
	cs := e.Candidates(snap)
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Payoff < cs[j].Payoff })
	return cs
}

// Report renders the payoff table used for debugging the ranking.
func (e *Engine) Report(snap *game.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "payoff report (global multiplier %.2fx)\n", e.GlobalMultiplier(snap))
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "building\tcost\tcps+\tpayoff\tsource\t")
	for _, d := range e.Ranked(snap) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", d.Name, d.Cost, numparse.Format(d.Gain), formatPayoff(d.Payoff), d.Source)
	}
	_ = w.Flush()
	return b.String()
}

func formatPayoff(s float64) string {
	switch {
	case math.IsInf(s, 1):
		return "∞"
	case s >= UnknownPayoff:
		return "unknown"
	}
	return fmt.Sprintf("%.1f min", s/60)
}
