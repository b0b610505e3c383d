package render

import (
	"strings"
	"testing"

	"rendita/internal/core"
)

func sampleReport() Report {
	state := core.PortfolioState{
		Accounts: []core.Account{
			{ID: "a", Name: "Savings | main", Amount: 1000, AnnualYield: 3.65},
			{ID: "b", Name: "", Amount: 500, AnnualYield: 0},
		},
		Salary: 200,
		ExtraIncomes: []core.ExtraIncome{
			{ID: "e", Description: "", Amount: 75, Date: core.NewDate(2025, 1, 3)},
		},
	}
	start := core.NewDate(2025, 1, 1)
	in := core.NewProjectionInput(state, start, 7, "USD")
	return Report{
		StartDate:  start,
		Currency:   "USD",
		State:      state,
		Summary:    core.Summarize(state.Accounts),
		Horizon:    7,
		Projection: core.Project(in),
	}
}

func TestMarkdownFullReport(t *testing.T) {
	out := Markdown(sampleReport(), Options{})

	for _, want := range []string{
		"# Portfolio",
		"_As of 2025-01-01_",
		"| Total capital | $1,500.00 |",
		"| Weighted average yield | 2.43% |",
		`| Savings \| main | $1,000.00 | 3.65% |`,
		"| - | $500.00 | 0.00% |",
		"| 2025-01-03 | Extra income | $75.00 |",
		"## Projection (1 week)",
		"Extra income: $75.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "## Analysis") {
		t.Errorf("empty analysis rendered")
	}
	if strings.Contains(out, "error ") {
		t.Errorf("template error in output:\n%s", out)
	}
}

func TestMarkdownOptions(t *testing.T) {
	r := sampleReport()
	r.Analysis = "Diversify **more**."
	r.Title = "Weekly"

	out := Markdown(r, Options{SkipAccounts: true, SkipProjection: true})
	if !strings.HasPrefix(out, "# Weekly") {
		t.Fatalf("title not applied:\n%s", out)
	}
	if strings.Contains(out, "## Accounts") || strings.Contains(out, "## Projection") || strings.Contains(out, "## Extra incomes") {
		t.Fatalf("skipped sections rendered:\n%s", out)
	}
	if !strings.Contains(out, "## Analysis\n\nDiversify **more**.") {
		t.Fatalf("analysis missing:\n%s", out)
	}
}

func TestSampleKeepsEventsAndLastDay(t *testing.T) {
	r := sampleReport()
	got := sample(r.Projection, 3)

	var days []int
	for _, d := range got {
		days = append(days, d.Day)
	}
	// day 2 carries the extra income, days 3 and 6 are sampled, day 7 is the last
	want := []int{2, 3, 6, 7}
	if len(days) != len(want) {
		t.Fatalf("days = %v, want %v", days, want)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Fatalf("days = %v, want %v", days, want)
		}
	}
}

func TestHorizons(t *testing.T) {
	out := Horizons(30)
	if !strings.Contains(out, "| 1 month (default) | 30 |") || !strings.Contains(out, "| 1 year | 365 |") {
		t.Fatalf("unexpected menu:\n%s", out)
	}
}
