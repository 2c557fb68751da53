package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/ingest"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func write(w io.Writer, title string, t *table.Table) {
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w)
}

func pct(p float64) string { return strconv.FormatFloat(100*p, 'f', 1, 64) + "%" }

func num(f float64) string { return strconv.FormatFloat(f, 'f', 3, 64) }

func renderEvents(w io.Writer, events []types.EventSummary) {
	t := newTable("ID", "NAME", "FENCERS", "BOUTS", "CREATED")
	for _, ev := range events {
		t.Row(ev.ID, ev.Name, strconv.Itoa(ev.Competitors), strconv.Itoa(ev.Observations),
			ev.CreatedAt.Format("2006-01-02 15:04"))
	}
	write(w, "Events", t)
}

func renderPool(w io.Writer, r *ingest.PoolReport) {
	t := newTable("PL", "NAME", "V", "B", "TS", "TR", "IND")
	for _, res := range r.Results {
		t.Row(strconv.Itoa(res.Place), res.Name, strconv.Itoa(res.V), strconv.Itoa(res.Bouts),
			strconv.Itoa(res.TS), strconv.Itoa(res.TR), strconv.Itoa(res.Indicator))
	}
	title := fmt.Sprintf("Pool %s (%d bouts", r.PoolID, r.Observations)
	if r.Skipped > 0 {
		title += fmt.Sprintf(", %d skipped", r.Skipped)
	}
	write(w, title+")", t)
}

func renderStandings(w io.Writer, st *types.StandingsResponse) {
	t := newTable("#", "NAME", "RATING", "STRENGTH", "WIN%", "W-L", "TD")
	for _, s := range st.Standings {
		rank := "-"
		if s.Rank > 0 {
			rank = strconv.Itoa(s.Rank)
		}
		t.Row(rank, s.Name, string(s.Rating), num(s.Strength), pct(s.WinProb),
			fmt.Sprintf("%d-%d", s.Wins, s.Losses), fmt.Sprintf("%+d", s.Differential))
	}
	title := fmt.Sprintf("Standings after %d bouts", st.Sequence)
	if !st.Converged {
		title += " (not converged)"
	}
	write(w, title, t)
}

func renderPrediction(w io.Writer, p *model.Prediction) {
	t := newTable("", p.A, p.B)
	t.Row("strength", num(p.StrengthA), num(p.StrengthB))
	t.Row("win", pct(p.ProbA), pct(p.ProbB))
	t.Row(fmt.Sprintf("pool to %d", p.Pool.Budget), strconv.Itoa(p.Pool.A), strconv.Itoa(p.Pool.B))
	t.Row(fmt.Sprintf("DE to %d", p.DE.Budget), strconv.Itoa(p.DE.A), strconv.Itoa(p.DE.B))
	t.Row("head to head", strconv.Itoa(p.History.WinsA), strconv.Itoa(p.History.WinsB))
	write(w, fmt.Sprintf("%s v %s", p.A, p.B), t)
}

func renderSimulation(w io.Writer, res *model.SimulationResult) {
	headers := append([]string{"SEED", "NAME"}, res.Rounds...)
	t := newTable(headers...)
	for _, c := range res.Competitors {
		row := []string{strconv.Itoa(c.Seed), c.Name}
		for _, r := range res.Rounds {
			row = append(row, pct(c.Rounds[r]))
		}
		t.Row(row...)
	}
	write(w, fmt.Sprintf("Bracket of %d, %d trials", res.Size, res.Trials), t)
}
