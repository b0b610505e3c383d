package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rendita/internal/core"
	"rendita/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "rendita.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() err = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_LoadEmpty(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.Load(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Load() err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_SaveLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	updated := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	state := core.PortfolioState{
		Accounts: []core.Account{
			{ID: "b", Name: "Second", Amount: 200, AnnualYield: 3},
			{ID: "a", Name: "First", Amount: -50.25, AnnualYield: -1.5},
		},
		Salary: 1800,
		ExtraIncomes: []core.ExtraIncome{
			{ID: "e1", Description: "Bonus", Amount: 400, Date: core.NewDate(2025, 4, 1)},
			{ID: "e2", Amount: 10, Date: core.NewDate(2025, 3, 15)},
		},
		Revision:  7,
		UpdatedAt: updated,
	}
	if err := repo.Save(ctx, state); err != nil {
		t.Fatalf("Save() err = %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if got.Salary != 1800 || got.Revision != 7 || !got.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected scalars: %+v", got)
	}
	if len(got.Accounts) != 2 || got.Accounts[0].ID != "b" || got.Accounts[1].Amount != -50.25 {
		t.Fatalf("accounts not preserved in order: %+v", got.Accounts)
	}
	if len(got.ExtraIncomes) != 2 || got.ExtraIncomes[0].ID != "e1" || got.ExtraIncomes[1].Date.String() != "2025-03-15" {
		t.Fatalf("extra incomes not preserved: %+v", got.ExtraIncomes)
	}
}

func TestSQLiteRepository_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Save(ctx, core.DefaultState()); err != nil {
		t.Fatalf("Save() err = %v", err)
	}
	next := core.PortfolioState{
		Accounts: []core.Account{{ID: "only", Name: "Only", Amount: 1}},
		Revision: 2,
	}
	if err := repo.Save(ctx, next); err != nil {
		t.Fatalf("Save() err = %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if len(got.Accounts) != 1 || got.Accounts[0].ID != "only" || len(got.ExtraIncomes) != 0 {
		t.Fatalf("previous rows survived: %+v", got)
	}
}

func TestSQLiteRepository_SaveInvalid(t *testing.T) {
	repo := newTestRepo(t)
	bad := core.PortfolioState{ExtraIncomes: []core.ExtraIncome{{ID: "x"}}}
	if err := repo.Save(context.Background(), bad); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("Save() err = %v, want ErrInvalidDate", err)
	}
	if _, err := repo.Load(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("invalid save must not write anything, Load() err = %v", err)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("RunMigrations() run %d err = %v", i+1, err)
		}
	}
}
