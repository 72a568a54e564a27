package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"smart-picks/internal/ledger"
)

// RenderSnapshot prints the overall numbers and the per-sport and
// per-market tables.
func RenderSnapshot(w io.Writer, snap Snapshot) {
	fmt.Fprintf(w, "Bankroll: $%s (start $%s)\n", snap.Bankroll.StringFixed(2), snap.StartingBankroll.StringFixed(2))
	fmt.Fprintf(w, "Open: %d | Pending: %d | Exposure: $%s\n", snap.Open, snap.Pending, snap.Exposure.StringFixed(2))
	fmt.Fprintf(w, "Streak: current %d, best %d\n\n", snap.Streak.Current, snap.Streak.Best)

	table := tablewriter.NewWriter(w)
	table.Header("Segment", "Bets", "W", "L", "P", "Win%", "Staked", "Profit", "ROI%")
	appendBreakdown(table, "ALL", snap.Breakdown)
	for _, k := range sortedKeys(snap.BySport) {
		appendBreakdown(table, k, snap.BySport[k])
	}
	for _, k := range sortedKeys(snap.ByMarket) {
		appendBreakdown(table, "market:"+k, snap.ByMarket[k])
	}
	table.Render()
}

func appendBreakdown(table *tablewriter.Table, label string, b Breakdown) {
	table.Append(
		label,
		fmt.Sprintf("%d", b.TotalBets),
		fmt.Sprintf("%d", b.Wins),
		fmt.Sprintf("%d", b.Losses),
		fmt.Sprintf("%d", b.Pushes),
		fmt.Sprintf("%.1f", b.WinRate*100),
		"$"+b.Staked.StringFixed(2),
		"$"+b.Profit.StringFixed(2),
		fmt.Sprintf("%.1f", b.ROI*100),
	)
}

// RenderPicks prints picks, one row each.
func RenderPicks(w io.Writer, picks []ledger.Pick) {
	table := tablewriter.NewWriter(w)
	table.Header("Sport", "Matchup", "Market", "Pick", "Price", "Stake", "Edge%", "Score", "Status", "Result")
	for _, p := range picks {
		table.Append(
			p.Sport,
			p.Matchup(),
			string(p.Market),
			p.Selection,
			fmt.Sprintf("%+d", p.Price),
			"$"+p.Stake.StringFixed(2),
			fmt.Sprintf("%.2f", p.Edge*100),
			fmt.Sprintf("%.3f", p.RankScore),
			string(p.Status),
			resultText(p),
		)
	}
	table.Render()
}

func resultText(p ledger.Pick) string {
	if p.Status != ledger.StatusClosed {
		return ""
	}
	return fmt.Sprintf("%s %s (%s)", p.Result, p.Profit.StringFixed(2), p.FinalScore)
}

// RenderCards prints the pick cards, one table per sport.
func RenderCards(w io.Writer, cards map[string][]ledger.Pick) {
	sports := make([]string, 0, len(cards))
	for s := range cards {
		sports = append(sports, s)
	}
	sort.Strings(sports)
	for _, s := range sports {
		fmt.Fprintf(w, "\n== %s ==\n", s)
		RenderPicks(w, cards[s])
	}
}

// RenderParlay prints the parlay card.
func RenderParlay(w io.Writer, p Parlay) {
	if len(p.Legs) == 0 {
		fmt.Fprintln(w, "No parlay: no active picks")
		return
	}
	fmt.Fprintf(w, "\nParlay: %d legs at %+d (%.2fx), legs staked $%s, edge %.2f%%\n",
		len(p.Legs), p.AmericanPrice, p.DecimalOdds, p.TotalStake.StringFixed(2), p.TotalEdge*100)
	RenderPicks(w, p.Legs)
}

// RenderScoreboard prints scoreboard lines.
func RenderScoreboard(w io.Writer, lines []ScoreLine) {
	table := tablewriter.NewWriter(w)
	table.Header("Sport", "Event", "Score", "Status")
	for _, l := range lines {
		table.Append(l.Sport, l.Matchup, l.Score, l.Status)
	}
	table.Render()
}
