package analysis

import (
	"fmt"
	"strings"

	"rendita/internal/core"
)

// maxUpcomingIncomes bounds how many future extra incomes are listed.
const maxUpcomingIncomes = 10

// BuildPrompt describes the portfolio in plain text for the model.
// Only extra incomes dated after today are listed.
func BuildPrompt(state core.PortfolioState, summary core.PortfolioSummary, today core.Date, currency string) string {
	var b strings.Builder

	b.WriteString("You are a personal finance assistant. Analyze this savings portfolio.\n\n")

	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- Total capital: %s\n", core.FormatAmount(summary.TotalAmount, currency))
	fmt.Fprintf(&b, "- Weighted average annual yield: %s\n", core.FormatPercent(summary.WeightedAverageYield))
	fmt.Fprintf(&b, "- Estimated monthly interest: %s\n", core.FormatAmount(summary.MonthlyIncome, currency))
	if state.Salary != 0 {
		fmt.Fprintf(&b, "- Salary: %s paid on the 15th and on the last day of each month\n", core.FormatAmount(state.Salary, currency))
	} else {
		b.WriteString("- Salary: none\n")
	}

	b.WriteString("\nAccounts:\n")
	if len(state.Accounts) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, a := range state.Accounts {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			name = "Unnamed account"
		}
		share := 0.0
		if summary.TotalAmount > 0 {
			share = a.Amount / summary.TotalAmount * 100
		}
		fmt.Fprintf(&b, "- %s: %s at %s per year (%s of capital)\n",
			name, core.FormatAmount(a.Amount, currency), core.FormatPercent(a.AnnualYield), core.FormatPercent(share))
	}

	var upcoming []core.ExtraIncome
	for _, e := range state.ExtraIncomes {
		if e.Date.After(today.Time) {
			upcoming = append(upcoming, e)
		}
	}
	if len(upcoming) > 0 {
		b.WriteString("\nUpcoming extra incomes:\n")
		for i, e := range upcoming {
			if i == maxUpcomingIncomes {
				fmt.Fprintf(&b, "- and %d more\n", len(upcoming)-maxUpcomingIncomes)
				break
			}
			fmt.Fprintf(&b, "- %s on %s: %s\n", e.Label(), e.Date, core.FormatAmount(e.Amount, currency))
		}
	}

	b.WriteString("\nAnswer in short markdown (at most 150 words): comment on diversification, ")
	b.WriteString("point out the lowest yielding accounts and suggest one concrete improvement. ")
	b.WriteString("Do not invent figures that are not listed above.\n")

	return b.String()
}
