package google

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"rendita/internal/core"
)

// Grid layout, one record per row:
//
//	Kind     | ID | Name/Description | Amount | Yield | Date
//	salary   |    |                  | 1500   |       |
//	revision |    |                  | 12     |       |
//	updated  |    |                  |        |       | 2025-01-02T03:04:05Z
//	account  | id | Savings          | 1000   | 3.5   |
//	income   | id | Bonus            | 250    |       | 2025-02-01
const (
	kindSalary   = "salary"
	kindRevision = "revision"
	kindUpdated  = "updated"
	kindAccount  = "account"
	kindIncome   = "income"

	lastColumn = "F"
)

var header = []interface{}{"Kind", "ID", "Name", "Amount", "Yield", "Date"}

// sheetsEpoch is day zero of spreadsheet date serials.
var sheetsEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

func encodeRows(state core.PortfolioState) [][]interface{} {
	rows := make([][]interface{}, 0, 4+len(state.Accounts)+len(state.ExtraIncomes))
	rows = append(rows, header)
	rows = append(rows,
		[]interface{}{kindSalary, "", "", state.Salary, "", ""},
		[]interface{}{kindRevision, "", "", state.Revision, "", ""},
	)
	if !state.UpdatedAt.IsZero() {
		rows = append(rows, []interface{}{kindUpdated, "", "", "", "", state.UpdatedAt.UTC().Format(time.RFC3339)})
	}
	for _, a := range state.Accounts {
		rows = append(rows, []interface{}{kindAccount, a.ID, a.Name, a.Amount, a.AnnualYield, ""})
	}
	for _, e := range state.ExtraIncomes {
		rows = append(rows, []interface{}{kindIncome, e.ID, e.Description, e.Amount, "", e.Date.String()})
	}
	return rows
}

// decodeRows is tolerant of blank rows and unknown kinds, strict on malformed values.
func decodeRows(rows [][]interface{}) (core.PortfolioState, error) {
	state := core.PortfolioState{
		Accounts:     []core.Account{},
		ExtraIncomes: []core.ExtraIncome{},
	}
	for i, row := range rows {
		cols := toStrings(row)
		kind := strings.ToLower(safeGet(cols, 0))
		if i == 0 && strings.EqualFold(kind, "kind") {
			continue
		}
		line := i + 1

		switch kind {
		case kindSalary:
			v, err := parseNumber(cell(row, 3))
			if err != nil {
				return core.PortfolioState{}, fmt.Errorf("row %d salary: %w", line, err)
			}
			state.Salary = v
		case kindRevision:
			v, err := parseNumber(cell(row, 3))
			if err != nil {
				return core.PortfolioState{}, fmt.Errorf("row %d revision: %w", line, err)
			}
			state.Revision = int64(v)
		case kindUpdated:
			if ts, err := time.Parse(time.RFC3339, safeGet(cols, 5)); err == nil {
				state.UpdatedAt = ts
			}
		case kindAccount:
			amount, err := parseNumber(cell(row, 3))
			if err != nil {
				return core.PortfolioState{}, fmt.Errorf("row %d amount: %w", line, err)
			}
			yield, err := parseNumber(cell(row, 4))
			if err != nil {
				return core.PortfolioState{}, fmt.Errorf("row %d yield: %w", line, err)
			}
			state.Accounts = append(state.Accounts, core.Account{
				ID:          safeGet(cols, 1),
				Name:        safeGet(cols, 2),
				Amount:      amount,
				AnnualYield: yield,
			})
		case kindIncome:
			amount, err := parseNumber(cell(row, 3))
			if err != nil {
				return core.PortfolioState{}, fmt.Errorf("row %d amount: %w", line, err)
			}
			date, err := parseDateCell(cell(row, 5))
			if err != nil {
				return core.PortfolioState{}, fmt.Errorf("row %d date: %w", line, err)
			}
			state.ExtraIncomes = append(state.ExtraIncomes, core.ExtraIncome{
				ID:          safeGet(cols, 1),
				Description: safeGet(cols, 2),
				Amount:      amount,
				Date:        date,
			})
		}
	}
	if err := state.Validate(); err != nil {
		return core.PortfolioState{}, err
	}
	return state, nil
}

// parseNumber accepts unformatted numbers as well as text typed by hand.
// An empty cell is zero.
func parseNumber(v interface{}) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return 0, nil
	}
	return core.ParseAmount(s)
}

// parseDateCell accepts ISO strings and spreadsheet date serials.
func parseDateCell(v interface{}) (core.Date, error) {
	if serial, ok := v.(float64); ok {
		days := int(math.Floor(serial))
		return core.DateOf(sheetsEpoch).AddDays(days), nil
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if n, err := strconv.Atoi(s); err == nil {
		return core.DateOf(sheetsEpoch).AddDays(n), nil
	}
	return core.ParseDate(s)
}

func cell(row []interface{}, idx int) interface{} {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
