package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"rendita/internal/core"
	"rendita/internal/log"
	"rendita/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements store.PortfolioReader
func (r *SQLiteRepository) Load(ctx context.Context) (core.PortfolioState, error) {
	p, err := r.queries.GetPortfolio(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PortfolioState{}, store.ErrNotFound
	}
	if err != nil {
		return core.PortfolioState{}, fmt.Errorf("get portfolio: %w", err)
	}

	accounts, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return core.PortfolioState{}, fmt.Errorf("list accounts: %w", err)
	}

	incomes, err := r.queries.ListExtraIncomes(ctx)
	if err != nil {
		return core.PortfolioState{}, fmt.Errorf("list extra incomes: %w", err)
	}

	state := core.PortfolioState{
		Accounts:     make([]core.Account, 0, len(accounts)),
		Salary:       p.Salary,
		ExtraIncomes: make([]core.ExtraIncome, 0, len(incomes)),
		Revision:     p.Revision,
	}
	if p.UpdatedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, p.UpdatedAt); err == nil {
			state.UpdatedAt = ts
		}
	}

	for _, a := range accounts {
		state.Accounts = append(state.Accounts, core.Account{
			ID:          a.ID,
			Name:        a.Name,
			Amount:      a.Amount,
			AnnualYield: a.AnnualYield,
		})
	}

	for _, e := range incomes {
		date, err := core.ParseDate(e.IncomeDate)
		if err != nil {
			return core.PortfolioState{}, fmt.Errorf("extra income %s: %w", e.ID, err)
		}
		state.ExtraIncomes = append(state.ExtraIncomes, core.ExtraIncome{
			ID:          e.ID,
			Description: e.Description,
			Amount:      e.Amount,
			Date:        date,
		})
	}

	return state, nil
}

// Save implements store.PortfolioWriter. The whole document is rewritten in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, state core.PortfolioState) error {
	if err := state.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)

	if err := q.UpsertPortfolio(ctx, PortfolioRow{
		Salary:    state.Salary,
		Revision:  state.Revision,
		UpdatedAt: state.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return fmt.Errorf("upsert portfolio: %w", err)
	}

	if err := q.DeleteAccounts(ctx); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	for i, a := range state.Accounts {
		if err := q.InsertAccount(ctx, AccountRow{
			ID:          a.ID,
			Position:    int64(i),
			Name:        a.Name,
			Amount:      a.Amount,
			AnnualYield: a.AnnualYield,
		}); err != nil {
			return fmt.Errorf("insert account %s: %w", a.ID, err)
		}
	}

	if err := q.DeleteExtraIncomes(ctx); err != nil {
		return fmt.Errorf("clear extra incomes: %w", err)
	}
	for i, e := range state.ExtraIncomes {
		if err := q.InsertExtraIncome(ctx, ExtraIncomeRow{
			ID:          e.ID,
			Position:    int64(i),
			Description: e.Description,
			Amount:      e.Amount,
			IncomeDate:  e.Date.String(),
		}); err != nil {
			return fmt.Errorf("insert extra income %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.DebugContext(ctx, "Portfolio saved to SQLite", log.FieldComponent, log.ComponentStorage,
		"revision", state.Revision,
		"accounts", len(state.Accounts),
		"extra_incomes", len(state.ExtraIncomes))

	return nil
}
