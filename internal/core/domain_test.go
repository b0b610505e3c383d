package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("round trip = %q", d.String())
	}

	for _, bad := range []string{"", "2024-13-01", "29/02/2024", "2023-02-29"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) err = %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestDateArithmetic(t *testing.T) {
	tests := []struct {
		start Date
		add   int
		want  string
		last  int
	}{
		{NewDate(2025, 1, 31), 1, "2025-02-01", 28},
		{NewDate(2024, 2, 28), 1, "2024-02-29", 29},
		{NewDate(2025, 12, 31), 1, "2026-01-01", 31},
		{NewDate(2025, 3, 1), 29, "2025-03-30", 31},
		{NewDate(2025, 4, 10), 0, "2025-04-10", 30},
	}
	for _, tt := range tests {
		got := tt.start.AddDays(tt.add)
		if got.String() != tt.want {
			t.Errorf("%s + %d = %s, want %s", tt.start, tt.add, got, tt.want)
		}
		if got.LastDayOfMonth() != tt.last {
			t.Errorf("LastDayOfMonth(%s) = %d, want %d", got, got.LastDayOfMonth(), tt.last)
		}
	}
}

func TestDateOfIgnoresClock(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	d := DateOf(time.Date(2025, 7, 1, 23, 59, 0, 0, loc))
	if d.String() != "2025-07-01" {
		t.Fatalf("DateOf = %s", d)
	}
	if !d.Equal(NewDate(2025, 7, 1)) {
		t.Fatalf("Equal failed")
	}
}

func TestDateJSON(t *testing.T) {
	in := ExtraIncome{ID: "x", Description: "Bonus", Amount: 10, Date: NewDate(2025, 5, 6)}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"date":"2025-05-06"`) {
		t.Fatalf("unexpected json: %s", b)
	}

	var out ExtraIncome
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Date.Equal(in.Date) {
		t.Fatalf("date = %s, want %s", out.Date, in.Date)
	}

	if err := json.Unmarshal([]byte(`{"date":"nope"}`), &out); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestExtraIncomeLabel(t *testing.T) {
	if got := (ExtraIncome{Description: "  "}).Label(); got != DefaultIncomeLabel {
		t.Fatalf("blank label = %q", got)
	}
	if got := (ExtraIncome{Description: "Tax refund"}).Label(); got != "Tax refund" {
		t.Fatalf("label = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   PortfolioState
		wantErr bool
	}{
		{"default state", DefaultState(), false},
		{"negative values allowed", PortfolioState{
			Accounts:     []Account{{ID: "a", Amount: -10, AnnualYield: -3}},
			ExtraIncomes: []ExtraIncome{{ID: "e", Amount: -1, Date: NewDate(2025, 1, 1)}},
		}, false},
		{"missing account id", PortfolioState{Accounts: []Account{{Name: "x"}}}, true},
		{"name too long", PortfolioState{Accounts: []Account{{ID: "a", Name: strings.Repeat("n", 201)}}}, true},
		{"multibyte name at limit", PortfolioState{Accounts: []Account{{ID: "a", Name: strings.Repeat("é", MaxNameLength)}}}, false},
		{"multibyte name over limit", PortfolioState{Accounts: []Account{{ID: "a", Name: strings.Repeat("é", MaxNameLength+1)}}}, true},
		{"multibyte description", PortfolioState{ExtraIncomes: []ExtraIncome{{ID: "e", Description: strings.Repeat("€", 150), Date: NewDate(2025, 1, 1)}}}, false},
		{"income without date", PortfolioState{ExtraIncomes: []ExtraIncome{{ID: "e"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := DefaultState()
	c := s.Clone()
	c.Accounts[0].Amount = 1
	c.ExtraIncomes = append(c.ExtraIncomes, NewExtraIncome(Today()))
	if s.Accounts[0].Amount == 1 {
		t.Fatalf("clone shares account storage")
	}
	if len(s.ExtraIncomes) != 0 {
		t.Fatalf("clone shares income storage")
	}
}

func TestNewRecordsHaveUniqueIDs(t *testing.T) {
	a, b := NewAccount(), NewAccount()
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids not unique: %q %q", a.ID, b.ID)
	}
	if a.Name != "" || a.Amount != 0 || a.AnnualYield != 0 {
		t.Fatalf("new account not empty: %+v", a)
	}
}
