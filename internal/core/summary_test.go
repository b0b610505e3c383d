package core

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		accounts []Account
		want     PortfolioSummary
	}{
		{
			name:     "empty",
			accounts: nil,
			want:     PortfolioSummary{},
		},
		{
			name:     "single account",
			accounts: []Account{{Amount: 1000, AnnualYield: 12}},
			want:     PortfolioSummary{TotalAmount: 1000, WeightedAverageYield: 12, MonthlyIncome: 10},
		},
		{
			name: "weighted by amount",
			accounts: []Account{
				{Amount: 3000, AnnualYield: 4},
				{Amount: 1000, AnnualYield: 8},
			},
			want: PortfolioSummary{TotalAmount: 4000, WeightedAverageYield: 5, MonthlyIncome: 4000 * 0.05 / 12},
		},
		{
			name: "zero total ignores yields",
			accounts: []Account{
				{Amount: 0, AnnualYield: 30},
				{Amount: 0, AnnualYield: 7},
			},
			want: PortfolioSummary{},
		},
		{
			name: "negative amounts are summed as is",
			accounts: []Account{
				{Amount: 500, AnnualYield: 2},
				{Amount: -200, AnnualYield: 10},
			},
			want: PortfolioSummary{TotalAmount: 300, WeightedAverageYield: (1000.0 - 2000.0) / 300, MonthlyIncome: 300 * ((1000.0 - 2000.0) / 300 / 100) / 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.accounts)
			if !almostEqual(got.TotalAmount, tt.want.TotalAmount, 1e-9) {
				t.Errorf("TotalAmount = %v, want %v", got.TotalAmount, tt.want.TotalAmount)
			}
			if !almostEqual(got.WeightedAverageYield, tt.want.WeightedAverageYield, 1e-9) {
				t.Errorf("WeightedAverageYield = %v, want %v", got.WeightedAverageYield, tt.want.WeightedAverageYield)
			}
			if !almostEqual(got.MonthlyIncome, tt.want.MonthlyIncome, 1e-9) {
				t.Errorf("MonthlyIncome = %v, want %v", got.MonthlyIncome, tt.want.MonthlyIncome)
			}
		})
	}
}

func TestSummarizeOrderIndependent(t *testing.T) {
	a := []Account{
		{Amount: 120.5, AnnualYield: 1},
		{Amount: 3000, AnnualYield: 3.3},
		{Amount: 77, AnnualYield: 9},
	}
	b := []Account{a[2], a[0], a[1]}

	sa, sb := Summarize(a), Summarize(b)
	if !almostEqual(sa.TotalAmount, sb.TotalAmount, 1e-9) || !almostEqual(sa.WeightedAverageYield, sb.WeightedAverageYield, 1e-9) {
		t.Fatalf("summary depends on order: %+v vs %+v", sa, sb)
	}
}

func TestSummarizeYieldBounds(t *testing.T) {
	accounts := []Account{
		{Amount: 10, AnnualYield: 1.5},
		{Amount: 9000, AnnualYield: 4},
		{Amount: 250, AnnualYield: 11},
	}
	got := Summarize(accounts).WeightedAverageYield
	if got < 1.5 || got > 11 {
		t.Fatalf("weighted yield %v outside [1.5, 11]", got)
	}
}
