package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rendita/internal/core"
	"rendita/internal/store"
)

func TestStoreLoadEmpty(t *testing.T) {
	_, err := New().Load(context.Background())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Load() err = %v, want ErrNotFound", err)
	}
}

func TestStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := New()

	state := core.DefaultState()
	state.Salary = 1500
	state.Revision = 4
	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("Save() err = %v", err)
	}

	// mutating the caller's copy must not leak into the store
	state.Accounts[0].Amount = -1

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if got.Salary != 1500 || got.Revision != 4 {
		t.Fatalf("unexpected state: %+v", got)
	}
	if got.Accounts[0].Amount == -1 {
		t.Fatalf("store shares memory with caller")
	}
}

func TestStoreRejectsInvalidState(t *testing.T) {
	err := New().Save(context.Background(), core.PortfolioState{Accounts: []core.Account{{Name: "no id"}}})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewFromDir(t *testing.T) {
	t.Run("missing seed", func(t *testing.T) {
		s, err := NewFromDir(t.TempDir())
		if err != nil {
			t.Fatalf("NewFromDir() err = %v", err)
		}
		if _, err := s.Load(context.Background()); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("Load() err = %v, want ErrNotFound", err)
		}
	})

	t.Run("valid seed", func(t *testing.T) {
		dir := t.TempDir()
		seed := `{"accounts":[{"id":"a","name":"Checking","amount":100,"annualYield":1.5}],"salary":900,"extraIncomes":[{"id":"e","description":"Bonus","amount":50,"date":"2025-06-01"}]}`
		if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(seed), 0644); err != nil {
			t.Fatal(err)
		}
		s, err := NewFromDir(dir)
		if err != nil {
			t.Fatalf("NewFromDir() err = %v", err)
		}
		got, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() err = %v", err)
		}
		if len(got.Accounts) != 1 || got.Salary != 900 || got.ExtraIncomes[0].Date.String() != "2025-06-01" {
			t.Fatalf("unexpected seed state: %+v", got)
		}
	})

	t.Run("malformed seed", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte("{"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewFromDir(dir); err == nil {
			t.Fatal("expected error for malformed seed")
		}
	})
}
