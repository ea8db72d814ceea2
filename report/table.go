package report

import (
	"fmt"
	"io"

	"blackjack-ql/blackjack"
	"blackjack-ql/qlearn"

	"github.com/logrusorgru/aurora"
)

// PrintPolicy writes one line per state with both Q-values and the chosen
// action. Hits are green, stands are red when color is on.
func PrintPolicy(w io.Writer, q *qlearn.QTable, p qlearn.Policy, color bool) {
	au := aurora.NewAurora(color)
	fmt.Fprintf(w, "%5s %12s %12s  %s\n", "total", "Q(hit)", "Q(stand)", "action")
	for s := qlearn.MinState; s <= qlearn.MaxState; s++ {
		a := p.Action(s)
		label := au.Red(fmt.Sprintf("%-5s", a))
		if a == qlearn.Hit {
			label = au.Green(fmt.Sprintf("%-5s", a))
		}
		fmt.Fprintf(w, "%5d %12.3f %12.3f  %s\n", s, q.Get(s, qlearn.Hit), q.Get(s, qlearn.Stand), label)
	}
}

// PrintSummaries writes an evaluation table, highlighting the best win rate.
func PrintSummaries(w io.Writer, color bool, summaries ...blackjack.Summary) {
	au := aurora.NewAurora(color)
	best := -1
	for i, s := range summaries {
		if best < 0 || s.WinRate() > summaries[best].WinRate() {
			best = i
		}
	}
	fmt.Fprintf(w, "%-20s %8s %8s %8s %8s %8s\n", "decider", "hands", "wins", "busts", "d.busts", "win%")
	for i, s := range summaries {
		rate := fmt.Sprintf("%7.2f%%", 100*s.WinRate())
		line := fmt.Sprintf("%-20s %8d %8d %8d %8d ", s.Decider, s.Hands, s.PlayerWins, s.PlayerBusts, s.DealerBusts)
		if i == best {
			fmt.Fprintf(w, "%s%s\n", au.Bold(line), au.Bold(au.Cyan(rate)))
			continue
		}
		fmt.Fprintf(w, "%s%s\n", line, rate)
	}
}
