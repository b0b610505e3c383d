package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rendita/internal/core"
	"rendita/internal/store"
)

type fakeValues struct {
	grid    [][]interface{}
	cleared []string
	updated []string
	getErr  error
}

func (f *fakeValues) Get(_ context.Context, _ string, _ string) ([][]interface{}, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.grid, nil
}

func (f *fakeValues) Clear(_ context.Context, _ string, rng string) error {
	f.cleared = append(f.cleared, rng)
	f.grid = nil
	return nil
}

func (f *fakeValues) Update(_ context.Context, _ string, rng string, values [][]interface{}) error {
	f.updated = append(f.updated, rng)
	f.grid = values
	return nil
}

func TestClient_SaveLoad(t *testing.T) {
	ctx := context.Background()
	fv := &fakeValues{}
	c := newClient(fv, "sheet-id", "")

	if _, err := c.Load(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Load() on empty sheet err = %v, want ErrNotFound", err)
	}

	state := core.DefaultState()
	state.Revision = 2
	if err := c.Save(ctx, state); err != nil {
		t.Fatalf("Save() err = %v", err)
	}
	if len(fv.cleared) != 1 || fv.cleared[0] != "Portfolio!A:F" {
		t.Fatalf("cleared = %v", fv.cleared)
	}
	// header + salary + revision + 3 accounts
	if fv.updated[0] != "Portfolio!A1:F6" {
		t.Fatalf("updated range = %v", fv.updated)
	}

	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}
	if len(got.Accounts) != 3 || got.Revision != 2 {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestClient_SaveRejectsInvalidState(t *testing.T) {
	fv := &fakeValues{}
	c := newClient(fv, "sheet-id", "Tab")
	err := c.Save(context.Background(), core.PortfolioState{Accounts: []core.Account{{}}})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("Save() err = %v", err)
	}
	if len(fv.cleared) != 0 {
		t.Fatalf("sheet was cleared before validation")
	}
}

func TestClient_LoadError(t *testing.T) {
	boom := errors.New("quota")
	c := newClient(&fakeValues{getErr: boom}, "sheet-id", "Tab")
	if _, err := c.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Load() err = %v", err)
	}
}

func TestClient_Uninitialized(t *testing.T) {
	c := &Client{}
	if _, err := c.Load(context.Background()); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Credentials{JSON: "{}"}, "  ", "")
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("New() err = %v", err)
	}
}

func TestCredentialsJSON(t *testing.T) {
	ctx := context.Background()
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if b, err := credentialsJSON(ctx, Credentials{JSON: `{"a":1}`, File: "/ignored"}); err != nil || string(b) != `{"a":1}` {
		t.Fatalf("inline json: %s, %v", b, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"b":2}`), 0600); err != nil {
		t.Fatal(err)
	}
	if b, err := credentialsJSON(ctx, Credentials{File: path}); err != nil || string(b) != `{"b":2}` {
		t.Fatalf("file: %s, %v", b, err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	if b, err := credentialsJSON(ctx, Credentials{}); err != nil || string(b) != `{"b":2}` {
		t.Fatalf("application default path: %s, %v", b, err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := credentialsJSON(ctx, Credentials{}); err == nil {
		t.Fatal("expected error without credentials")
	}
}
