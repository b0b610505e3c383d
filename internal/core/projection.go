package core

import (
	"math"
	"slices"
)

// Horizons is the menu of projection lengths offered to the user, in days.
var Horizons = []int{7, 15, 30, 90, 180, 365}

// DefaultHorizon is used when the requested horizon is not on the menu.
const DefaultHorizon = 30

// DaysPerYear is the compounding basis. Leap years are deliberately ignored.
const DaysPerYear = 365

// SalaryLabel prefixes the event emitted on paydays.
const SalaryLabel = "Salary"

// ProjectionDay is one row of the daily ledger.
type ProjectionDay struct {
	Day    int      `json:"day"`
	Date   Date     `json:"date"`
	Earned float64  `json:"earned"`
	Income float64  `json:"income"`
	Events []string `json:"events"`
	Total  float64  `json:"total"`
}

// ProjectionInput holds everything the projector needs. It is never mutated.
type ProjectionInput struct {
	// StartDate is day 0; the first emitted row is StartDate+1.
	StartDate          Date
	StartingCapital    float64
	AnnualYieldPercent float64
	SalaryPerPeriod    float64
	ExtraIncomes       []ExtraIncome
	HorizonDays        int
	// Currency only affects event labels.
	Currency string
	// Schedule defaults to SemiMonthly.
	Schedule PaySchedule
}

// IsHorizon reports whether days is one of the offered horizons.
func IsHorizon(days int) bool {
	return slices.Contains(Horizons, days)
}

// NormalizeHorizon returns days if it is on the menu, DefaultHorizon otherwise.
func NormalizeHorizon(days int) int {
	if IsHorizon(days) {
		return days
	}
	return DefaultHorizon
}

// DailyRate converts a nominal annual yield into the daily compounding rate
// that reproduces it over DaysPerYear days.
func DailyRate(annualYieldPercent float64) float64 {
	if annualYieldPercent == 0 {
		return 0
	}
	base := 1 + annualYieldPercent/100
	if base <= 0 {
		// a loss of 100% or more wipes the capital on the first day
		return -1
	}
	return math.Pow(base, 1.0/DaysPerYear) - 1
}

// NewProjectionInput builds the input for a full projection of state starting after start.
func NewProjectionInput(state PortfolioState, start Date, horizonDays int, currency string) ProjectionInput {
	summary := Summarize(state.Accounts)
	return ProjectionInput{
		StartDate:          start,
		StartingCapital:    summary.TotalAmount,
		AnnualYieldPercent: summary.WeightedAverageYield,
		SalaryPerPeriod:    state.Salary,
		ExtraIncomes:       state.ExtraIncomes,
		HorizonDays:        horizonDays,
		Currency:           currency,
	}
}

// CapitalOnly drops salary and extra incomes, leaving pure compounding.
func (in ProjectionInput) CapitalOnly() ProjectionInput {
	in.SalaryPerPeriod = 0
	in.ExtraIncomes = nil
	return in
}

// Project computes the day-by-day capital trajectory.
//
// On every day injections (salary, then extra incomes in insertion order) are
// added before that day's interest is computed, so new funds earn interest
// from the day they land. No rounding is applied.
func Project(in ProjectionInput) []ProjectionDay {
	if in.HorizonDays <= 0 {
		return []ProjectionDay{}
	}
	schedule := in.Schedule
	if schedule == nil {
		schedule = SemiMonthly{}
	}

	incomesByDate := make(map[string][]ExtraIncome, len(in.ExtraIncomes))
	for _, e := range in.ExtraIncomes {
		key := e.Date.String()
		incomesByDate[key] = append(incomesByDate[key], e)
	}

	rate := DailyRate(in.AnnualYieldPercent)
	capital := in.StartingCapital
	days := make([]ProjectionDay, 0, in.HorizonDays)

	for i := 1; i <= in.HorizonDays; i++ {
		date := in.StartDate.AddDays(i)
		events := []string{}
		var income float64

		if in.SalaryPerPeriod != 0 && schedule.IsPayday(date) {
			income += in.SalaryPerPeriod
			events = append(events, SalaryLabel+": "+FormatAmount(in.SalaryPerPeriod, in.Currency))
		}

		for _, e := range incomesByDate[date.String()] {
			income += e.Amount
			events = append(events, e.Label()+": "+FormatAmount(e.Amount, in.Currency))
		}

		capital += income
		earned := capital * rate
		capital += earned

		days = append(days, ProjectionDay{
			Day:    i,
			Date:   date,
			Earned: earned,
			Income: income,
			Events: events,
			Total:  capital,
		})
	}

	return days
}
