package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"rendita/internal/core"
	"rendita/internal/log"
	"rendita/internal/store"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidValue = errors.New("invalid value")
)

var (
	accountFields     = []string{"name", "amount", "yield"}
	extraIncomeFields = []string{"description", "amount", "date"}
)

// Publisher announces saved revisions to the change feed.
type Publisher interface {
	PublishPortfolioSaved(ctx context.Context, revision int64) error
}

// PortfolioOptions tunes display and projection defaults.
type PortfolioOptions struct {
	Currency       string
	DefaultHorizon int
	// Backend is only used in log lines.
	Backend string
}

// Dashboard is everything the main page shows, computed from one loaded state.
type Dashboard struct {
	State       core.PortfolioState
	Summary     core.PortfolioSummary
	Projection  []core.ProjectionDay
	Horizon     int
	CapitalOnly bool
	Currency    string
	StartDate   core.Date
}

// PortfolioService owns the portfolio document: it loads it, applies edits,
// saves it back and announces each new revision.
type PortfolioService struct {
	repo      store.Repository
	publisher Publisher
	logger    *log.Logger
	slogger   *log.StructuredLogger
	opts      PortfolioOptions

	mu  sync.Mutex
	now func() time.Time
}

// NewPortfolioService wires a repository and an optional publisher. Pass a nil
// publisher to run without the change feed.
func NewPortfolioService(repo store.Repository, publisher Publisher, logger *log.Logger, opts PortfolioOptions) *PortfolioService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.Currency == "" {
		opts.Currency = core.DefaultCurrency
	}
	if !core.IsHorizon(opts.DefaultHorizon) {
		opts.DefaultHorizon = core.DefaultHorizon
	}
	logger = logger.WithComponent(log.ComponentPortfolio)
	return &PortfolioService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		slogger:   log.NewStructuredLogger(logger),
		opts:      opts,
		now:       time.Now,
	}
}

// Currency is the configured display currency.
func (s *PortfolioService) Currency() string { return s.opts.Currency }

// DefaultHorizon is the horizon used when a caller asks for an unknown one.
func (s *PortfolioService) DefaultHorizon() int { return s.opts.DefaultHorizon }

// Today is the current local calendar day.
func (s *PortfolioService) Today() core.Date {
	return core.DateOf(s.now())
}

// State returns the stored portfolio, or the default seed when nothing usable is stored.
func (s *PortfolioService) State(ctx context.Context) core.PortfolioState {
	state, err := s.load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load portfolio, using default state",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		return core.DefaultState()
	}
	return state
}

// load reads the stored portfolio. Only an empty repository yields the default
// seed; every other failure is returned so callers never save the seed over
// data they could not read.
func (s *PortfolioService) load(ctx context.Context) (core.PortfolioState, error) {
	state, err := s.repo.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.DebugContext(ctx, "No stored portfolio, using default state")
		return core.DefaultState(), nil
	}
	if err != nil {
		return core.PortfolioState{}, fmt.Errorf("load portfolio: %w", err)
	}
	if state.Accounts == nil {
		state.Accounts = []core.Account{}
	}
	if state.ExtraIncomes == nil {
		state.ExtraIncomes = []core.ExtraIncome{}
	}
	return state, nil
}

// Dashboard computes summary and projection starting from today.
func (s *PortfolioService) Dashboard(ctx context.Context, horizon int, capitalOnly bool) Dashboard {
	if !core.IsHorizon(horizon) {
		horizon = s.opts.DefaultHorizon
	}
	state := s.State(ctx)
	start := s.Today()

	input := core.NewProjectionInput(state, start, horizon, s.opts.Currency)
	if capitalOnly {
		input = input.CapitalOnly()
	}

	return Dashboard{
		State:       state,
		Summary:     core.Summarize(state.Accounts),
		Projection:  core.Project(input),
		Horizon:     horizon,
		CapitalOnly: capitalOnly,
		Currency:    s.opts.Currency,
		StartDate:   start,
	}
}

// AddAccount appends an empty account.
func (s *PortfolioService) AddAccount(ctx context.Context) (core.Account, error) {
	account := core.NewAccount()
	_, err := s.mutate(ctx, func(state *core.PortfolioState) error {
		state.Accounts = append(state.Accounts, account)
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return account, nil
}

// UpdateAccount sets one field of an account from its form value.
func (s *PortfolioService) UpdateAccount(ctx context.Context, id, field, value string) (core.PortfolioState, error) {
	return s.mutate(ctx, func(state *core.PortfolioState) error {
		idx := accountIndex(state.Accounts, id)
		if idx < 0 {
			return fmt.Errorf("account %q: %w", id, ErrNotFound)
		}
		a := &state.Accounts[idx]
		switch normalizeField(field) {
		case "name":
			name, err := parseName(value)
			if err != nil {
				return err
			}
			a.Name = name
		case "amount":
			v, err := parseValue(field, value)
			if err != nil {
				return err
			}
			a.Amount = v
		case "yield", "annualyield":
			v, err := parseValue(field, value)
			if err != nil {
				return err
			}
			a.AnnualYield = v
		default:
			return fmt.Errorf("account field %q (want one of %v): %w", field, accountFields, ErrUnknownField)
		}
		return nil
	})
}

// RemoveAccount deletes an account by id.
func (s *PortfolioService) RemoveAccount(ctx context.Context, id string) (core.PortfolioState, error) {
	return s.mutate(ctx, func(state *core.PortfolioState) error {
		idx := accountIndex(state.Accounts, id)
		if idx < 0 {
			return fmt.Errorf("account %q: %w", id, ErrNotFound)
		}
		state.Accounts = append(state.Accounts[:idx], state.Accounts[idx+1:]...)
		return nil
	})
}

// SetSalary replaces the semi-monthly salary.
func (s *PortfolioService) SetSalary(ctx context.Context, value string) (core.PortfolioState, error) {
	return s.mutate(ctx, func(state *core.PortfolioState) error {
		v, err := parseValue("salary", value)
		if err != nil {
			return err
		}
		state.Salary = v
		return nil
	})
}

// AddExtraIncome appends an empty extra income dated today.
func (s *PortfolioService) AddExtraIncome(ctx context.Context) (core.ExtraIncome, error) {
	income := core.NewExtraIncome(s.Today())
	_, err := s.mutate(ctx, func(state *core.PortfolioState) error {
		state.ExtraIncomes = append(state.ExtraIncomes, income)
		return nil
	})
	if err != nil {
		return core.ExtraIncome{}, err
	}
	return income, nil
}

// UpdateExtraIncome sets one field of an extra income from its form value.
func (s *PortfolioService) UpdateExtraIncome(ctx context.Context, id, field, value string) (core.PortfolioState, error) {
	return s.mutate(ctx, func(state *core.PortfolioState) error {
		idx := incomeIndex(state.ExtraIncomes, id)
		if idx < 0 {
			return fmt.Errorf("extra income %q: %w", id, ErrNotFound)
		}
		e := &state.ExtraIncomes[idx]
		switch normalizeField(field) {
		case "description":
			desc, err := parseName(value)
			if err != nil {
				return err
			}
			e.Description = desc
		case "amount":
			v, err := parseValue(field, value)
			if err != nil {
				return err
			}
			e.Amount = v
		case "date":
			d, err := core.ParseDate(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("date %q: %w", value, ErrInvalidValue)
			}
			e.Date = d
		default:
			return fmt.Errorf("extra income field %q (want one of %v): %w", field, extraIncomeFields, ErrUnknownField)
		}
		return nil
	})
}

// RemoveExtraIncome deletes an extra income by id.
func (s *PortfolioService) RemoveExtraIncome(ctx context.Context, id string) (core.PortfolioState, error) {
	return s.mutate(ctx, func(state *core.PortfolioState) error {
		idx := incomeIndex(state.ExtraIncomes, id)
		if idx < 0 {
			return fmt.Errorf("extra income %q: %w", id, ErrNotFound)
		}
		state.ExtraIncomes = append(state.ExtraIncomes[:idx], state.ExtraIncomes[idx+1:]...)
		return nil
	})
}

// mutate applies change to a copy of the current state and saves it as the next revision.
func (s *PortfolioService) mutate(ctx context.Context, change func(*core.PortfolioState) error) (core.PortfolioState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		s.slogger.LogError(ctx, "Refusing to edit unreadable portfolio", err, log.ComponentPortfolio, log.OpLoad, log.NewFields())
		return core.PortfolioState{}, err
	}
	next := current.Clone()
	if err := change(&next); err != nil {
		return current, err
	}
	if err := next.Validate(); err != nil {
		return current, fmt.Errorf("%w: %w", err, ErrInvalidValue)
	}
	next.Revision = current.Revision + 1
	next.UpdatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, next); err != nil {
		s.slogger.LogError(ctx, "Failed to save portfolio", err, log.ComponentPortfolio, log.OpSave,
			log.LogFields{log.FieldRevision: next.Revision})
		return current, fmt.Errorf("save portfolio: %w", err)
	}

	s.slogger.LogPortfolioSaved(ctx, next.Revision, len(next.Accounts),
		core.Summarize(next.Accounts).TotalAmount, s.opts.Backend)

	s.publish(ctx, next.Revision)
	return next, nil
}

func (s *PortfolioService) publish(ctx context.Context, revision int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPortfolioSaved(ctx, revision); err != nil {
		// The save already succeeded; the mirror worker catches up on its ticker.
		s.logger.ErrorContext(ctx, "Failed to publish portfolio saved message",
			log.FieldRevision, revision, log.FieldError, err)
	}
}

func accountIndex(accounts []core.Account, id string) int {
	for i := range accounts {
		if accounts[i].ID == id {
			return i
		}
	}
	return -1
}

func incomeIndex(incomes []core.ExtraIncome, id string) int {
	for i := range incomes {
		if incomes[i].ID == id {
			return i
		}
	}
	return -1
}

func normalizeField(field string) string {
	return strings.ToLower(strings.TrimSpace(field))
}

func parseValue(field, value string) (float64, error) {
	v, err := core.ParseAmount(value)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, value, ErrInvalidValue)
	}
	return v, nil
}

func parseName(value string) (string, error) {
	name := strings.TrimSpace(value)
	if utf8.RuneCountInString(name) > core.MaxNameLength {
		return "", fmt.Errorf("%w: %w", core.ErrNameTooLong, ErrInvalidValue)
	}
	return name, nil
}
