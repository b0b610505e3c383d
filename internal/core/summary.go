package core

// PortfolioSummary is derived from the account list and never stored.
type PortfolioSummary struct {
	TotalAmount          float64 `json:"totalAmount"`
	WeightedAverageYield float64 `json:"weightedAverageYield"`
	MonthlyIncome        float64 `json:"monthlyIncome"`
}

// Summarize reduces accounts into the portfolio totals.
//
// The weighted average yield is money-weighted and defined as 0 when the total
// is not positive. Monthly income is a simple, non-compounded estimate.
func Summarize(accounts []Account) PortfolioSummary {
	var total, weighted float64
	for _, a := range accounts {
		total += a.Amount
		weighted += a.Amount * a.AnnualYield
	}

	var avg float64
	if total > 0 {
		avg = weighted / total
	}

	return PortfolioSummary{
		TotalAmount:          total,
		WeightedAverageYield: avg,
		MonthlyIncome:        total * (avg / 100) / 12,
	}
}
