package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DateLayout is the ISO-8601 calendar date layout used for storage and matching.
const DateLayout = "2006-01-02"

// DefaultIncomeLabel names an extra income without a description.
const DefaultIncomeLabel = "Extra income"

// MaxNameLength bounds account names and income descriptions, in characters.
const MaxNameLength = 200

type (
	// Date is a calendar day normalized to midnight UTC.
	Date struct {
		time.Time
	}

	// Account is a named pool of capital earning a fixed nominal annual yield.
	Account struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Amount      float64 `json:"amount"`
		AnnualYield float64 `json:"annualYield"` // percentage, 3.5 means 3.5%
	}

	// ExtraIncome is a one-off capital injection on a given day.
	ExtraIncome struct {
		ID          string  `json:"id"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Date        Date    `json:"date"`
	}

	// PortfolioState is everything the user edits. It is persisted as a whole.
	PortfolioState struct {
		Accounts     []Account     `json:"accounts"`
		Salary       float64       `json:"salary"`
		ExtraIncomes []ExtraIncome `json:"extraIncomes"`
		Revision     int64         `json:"revision"`
		UpdatedAt    time.Time     `json:"updatedAt"`
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNameTooLong   = errors.New("name too long (max 200 characters)")
)

// NewDate creates a new Date from year, month, day. Out of range values are normalized.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	y, m, day := d.Date()
	return NewDate(y, int(m), day+n)
}

// LastDayOfMonth returns the number of days in d's month.
func (d Date) LastDayOfMonth() int {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// String formats the date as YYYY-MM-DD. The zero date is rendered empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Equal reports whether both dates name the same calendar day.
func (d Date) Equal(o Date) bool {
	return d.String() == o.String()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewAccount returns the empty template a user starts from.
func NewAccount() Account {
	return Account{ID: uuid.NewString()}
}

// NewExtraIncome returns an empty extra income dated on the given day.
func NewExtraIncome(on Date) ExtraIncome {
	return ExtraIncome{ID: uuid.NewString(), Date: on}
}

// Label returns the description, or the default label when it is blank.
func (e ExtraIncome) Label() string {
	if s := strings.TrimSpace(e.Description); s != "" {
		return s
	}
	return DefaultIncomeLabel
}

// Validate checks structural constraints only. Negative amounts and yields are allowed.
func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("account id cannot be empty")
	}
	if utf8.RuneCountInString(a.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// Validate checks structural constraints only. Negative amounts are allowed.
func (e ExtraIncome) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("extra income id cannot be empty")
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if utf8.RuneCountInString(e.Description) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// Validate checks every record of the state.
func (s PortfolioState) Validate() error {
	for _, a := range s.Accounts {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	for _, e := range s.ExtraIncomes {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it freely.
func (s PortfolioState) Clone() PortfolioState {
	out := s
	out.Accounts = append([]Account(nil), s.Accounts...)
	out.ExtraIncomes = append([]ExtraIncome(nil), s.ExtraIncomes...)
	return out
}

// DefaultState is the seed used when nothing is stored or the stored state is unreadable.
func DefaultState() PortfolioState {
	return PortfolioState{
		Accounts: []Account{
			{ID: "default-emergency", Name: "Emergency fund", Amount: 5000, AnnualYield: 2.5},
			{ID: "default-savings", Name: "High-yield savings", Amount: 12000, AnnualYield: 4.1},
			{ID: "default-brokerage", Name: "Brokerage cash", Amount: 3000, AnnualYield: 1.2},
		},
		ExtraIncomes: []ExtraIncome{},
	}
}
