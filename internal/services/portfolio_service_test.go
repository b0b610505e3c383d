package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"rendita/internal/core"
	"rendita/internal/log"
	"rendita/internal/store"
	"rendita/internal/store/memory"
)

type fakePublisher struct {
	mu        sync.Mutex
	revisions []int64
	err       error
}

func (p *fakePublisher) PublishPortfolioSaved(_ context.Context, revision int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revisions = append(p.revisions, revision)
	return p.err
}

type failingRepo struct {
	loadErr error
	saveErr error
}

func (r failingRepo) Load(context.Context) (core.PortfolioState, error) {
	return core.PortfolioState{}, r.loadErr
}

func (r failingRepo) Save(context.Context, core.PortfolioState) error { return r.saveErr }

// flakyRepo fails the next Load calls, then behaves like the wrapped repository.
type flakyRepo struct {
	store.Repository
	failLoads int
	err       error
}

func (r *flakyRepo) Load(ctx context.Context) (core.PortfolioState, error) {
	if r.failLoads > 0 {
		r.failLoads--
		return core.PortfolioState{}, r.err
	}
	return r.Repository.Load(ctx)
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: log.NewHandler(io.Discard, "error", "text")})
}

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)

func newTestService(repo store.Repository, pub Publisher) *PortfolioService {
	svc := NewPortfolioService(repo, pub, quietLogger(), PortfolioOptions{Currency: "USD", DefaultHorizon: 30, Backend: "memory"})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestStateFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name string
		repo store.Repository
	}{
		{"nothing stored", memory.New()},
		{"load error", failingRepo{loadErr: errors.New("disk on fire")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newTestService(tt.repo, nil).State(context.Background())
			if len(state.Accounts) != len(core.DefaultState().Accounts) {
				t.Fatalf("accounts = %d, want default seed", len(state.Accounts))
			}
		})
	}
}

func TestAddAccountPersistsAndPublishes(t *testing.T) {
	repo := memory.New()
	pub := &fakePublisher{}
	svc := newTestService(repo, pub)
	ctx := context.Background()

	account, err := svc.AddAccount(ctx)
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if account.ID == "" || account.Amount != 0 || account.AnnualYield != 0 {
		t.Fatalf("unexpected template: %+v", account)
	}

	stored, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(stored.Accounts); got != len(core.DefaultState().Accounts)+1 {
		t.Fatalf("stored accounts = %d", got)
	}
	if stored.Revision != 1 {
		t.Fatalf("revision = %d, want 1", stored.Revision)
	}
	if !stored.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("updatedAt = %v", stored.UpdatedAt)
	}
	if len(pub.revisions) != 1 || pub.revisions[0] != 1 {
		t.Fatalf("published = %v", pub.revisions)
	}
}

func TestUpdateAccount(t *testing.T) {
	ctx := context.Background()
	seed := core.PortfolioState{Accounts: []core.Account{{ID: "a", Name: "Old", Amount: 10, AnnualYield: 1}}}

	tests := []struct {
		name    string
		id      string
		field   string
		value   string
		want    core.Account
		wantErr error
	}{
		{"name", "a", "name", "  Savings  ", core.Account{ID: "a", Name: "Savings", Amount: 10, AnnualYield: 1}, nil},
		{"amount with comma", "a", "amount", "1234,5", core.Account{ID: "a", Name: "Old", Amount: 1234.5, AnnualYield: 1}, nil},
		{"negative yield", "a", "yield", "-2", core.Account{ID: "a", Name: "Old", Amount: 10, AnnualYield: -2}, nil},
		{"annualYield alias", "a", "annualYield", "3.5", core.Account{ID: "a", Name: "Old", Amount: 10, AnnualYield: 3.5}, nil},
		{"unknown id", "zzz", "name", "x", core.Account{}, ErrNotFound},
		{"unknown field", "a", "colour", "red", core.Account{}, ErrUnknownField},
		{"empty amount", "a", "amount", "", core.Account{}, ErrInvalidValue},
		{"garbage amount", "a", "amount", "lots", core.Account{}, ErrInvalidValue},
		{"name too long", "a", "name", strings.Repeat("x", 201), core.Account{}, ErrInvalidValue},
		{"multibyte name", "a", "name", strings.Repeat("é", 150), core.Account{ID: "a", Name: strings.Repeat("é", 150), Amount: 10, AnnualYield: 1}, nil},
		{"multibyte name too long", "a", "name", strings.Repeat("é", 201), core.Account{}, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewWithState(seed)
			svc := newTestService(repo, nil)

			state, err := svc.UpdateAccount(ctx, tt.id, tt.field, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				stored, _ := repo.Load(ctx)
				if stored.Revision != 0 || stored.Accounts[0] != seed.Accounts[0] {
					t.Fatalf("failed update changed stored state: %+v", stored)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if state.Accounts[0] != tt.want {
				t.Fatalf("account = %+v, want %+v", state.Accounts[0], tt.want)
			}
		})
	}
}

func TestRemoveAccount(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewWithState(core.PortfolioState{Accounts: []core.Account{{ID: "a"}, {ID: "b"}, {ID: "c"}}})
	svc := newTestService(repo, nil)

	state, err := svc.RemoveAccount(ctx, "b")
	if err != nil {
		t.Fatalf("RemoveAccount: %v", err)
	}
	if len(state.Accounts) != 2 || state.Accounts[0].ID != "a" || state.Accounts[1].ID != "c" {
		t.Fatalf("accounts = %+v", state.Accounts)
	}
	if _, err := svc.RemoveAccount(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove err = %v", err)
	}
}

func TestSetSalary(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewWithState(core.PortfolioState{}), nil)

	state, err := svc.SetSalary(ctx, "1500,25")
	if err != nil {
		t.Fatalf("SetSalary: %v", err)
	}
	if state.Salary != 1500.25 {
		t.Fatalf("salary = %v", state.Salary)
	}
	if _, err := svc.SetSalary(ctx, ""); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("empty salary err = %v", err)
	}
	if got := svc.State(ctx).Salary; got != 1500.25 {
		t.Fatalf("failed update overwrote salary: %v", got)
	}
}

func TestExtraIncomeLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewWithState(core.PortfolioState{}), nil)

	income, err := svc.AddExtraIncome(ctx)
	if err != nil {
		t.Fatalf("AddExtraIncome: %v", err)
	}
	if income.Date.String() != "2025-03-10" {
		t.Fatalf("new income date = %s, want today", income.Date)
	}

	steps := []struct{ field, value string }{
		{"description", "Tax refund"},
		{"amount", "300"},
		{"date", "2025-03-15"},
	}
	for _, s := range steps {
		if _, err := svc.UpdateExtraIncome(ctx, income.ID, s.field, s.value); err != nil {
			t.Fatalf("UpdateExtraIncome(%s): %v", s.field, err)
		}
	}
	if _, err := svc.UpdateExtraIncome(ctx, income.ID, "date", "15/03/2025"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("bad date err = %v", err)
	}

	got := svc.State(ctx).ExtraIncomes[0]
	if got.Description != "Tax refund" || got.Amount != 300 || got.Date.String() != "2025-03-15" {
		t.Fatalf("income = %+v", got)
	}
	if got := svc.State(ctx).Revision; got != 4 {
		t.Fatalf("revision = %d, want 4", got)
	}

	state, err := svc.RemoveExtraIncome(ctx, income.ID)
	if err != nil {
		t.Fatalf("RemoveExtraIncome: %v", err)
	}
	if len(state.ExtraIncomes) != 0 {
		t.Fatalf("incomes = %+v", state.ExtraIncomes)
	}
}

func TestSaveFailureIsReturned(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(failingRepo{loadErr: store.ErrNotFound, saveErr: errors.New("read-only")}, pub)

	if _, err := svc.SetSalary(context.Background(), "10"); err == nil {
		t.Fatal("expected save error")
	}
	if len(pub.revisions) != 0 {
		t.Fatalf("published after failed save: %v", pub.revisions)
	}
}

func TestMutationKeepsStoredDataWhenLoadFails(t *testing.T) {
	ctx := context.Background()
	stored := core.PortfolioState{
		Accounts: []core.Account{{ID: "mine", Name: "Mine", Amount: 42}},
		Revision: 41,
	}
	inner := memory.NewWithState(stored)
	repo := &flakyRepo{Repository: inner, failLoads: 1, err: errors.New("connection reset")}
	pub := &fakePublisher{}
	svc := newTestService(repo, pub)

	mutations := []struct {
		name string
		run  func() error
	}{
		{"set salary", func() error { _, err := svc.SetSalary(ctx, "10"); return err }},
		{"add account", func() error { _, err := svc.AddAccount(ctx); return err }},
		{"update account", func() error { _, err := svc.UpdateAccount(ctx, "mine", "amount", "1"); return err }},
		{"remove income", func() error { _, err := svc.RemoveExtraIncome(ctx, "x"); return err }},
	}
	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			repo.failLoads = 1
			err := m.run()
			if err == nil || !strings.Contains(err.Error(), "connection reset") {
				t.Fatalf("err = %v, want load error", err)
			}
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidValue) {
				t.Fatalf("load error mapped to a client error: %v", err)
			}
			got, _ := inner.Load(ctx)
			if got.Revision != 41 || len(got.Accounts) != 1 || got.Accounts[0].ID != "mine" {
				t.Fatalf("stored state overwritten: %+v", got)
			}
		})
	}
	if len(pub.revisions) != 0 {
		t.Fatalf("published after failed load: %v", pub.revisions)
	}

	state, err := svc.SetSalary(ctx, "10")
	if err != nil {
		t.Fatalf("SetSalary after recovery: %v", err)
	}
	if state.Revision != 42 || state.Accounts[0].ID != "mine" || state.Salary != 10 {
		t.Fatalf("state after recovery = %+v", state)
	}
}

func TestPublishFailureIsNotReturned(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(memory.New(), pub)

	if _, err := svc.SetSalary(context.Background(), "10"); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewWithState(core.PortfolioState{})
	svc := newTestService(repo, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddAccount(ctx); err != nil {
				t.Errorf("AddAccount: %v", err)
			}
		}()
	}
	wg.Wait()

	state := svc.State(ctx)
	if len(state.Accounts) != 20 || state.Revision != 20 {
		t.Fatalf("accounts = %d revision = %d, want 20/20", len(state.Accounts), state.Revision)
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewWithState(core.PortfolioState{
		Accounts: []core.Account{{ID: "a", Amount: 1000, AnnualYield: 0}},
		Salary:   100,
		ExtraIncomes: []core.ExtraIncome{
			{ID: "e", Description: "Gift", Amount: 50, Date: core.NewDate(2025, 3, 12)},
		},
	})
	svc := newTestService(repo, nil)

	tests := []struct {
		name        string
		horizon     int
		capitalOnly bool
		wantHorizon int
		wantLast    float64
	}{
		{"full projection", 7, false, 7, 1150},
		{"capital only", 7, true, 7, 1000},
		{"unknown horizon uses default", 45, false, 30, 1000 + 100 + 50 + 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := svc.Dashboard(ctx, tt.horizon, tt.capitalOnly)
			if d.Horizon != tt.wantHorizon || len(d.Projection) != tt.wantHorizon {
				t.Fatalf("horizon = %d rows = %d, want %d", d.Horizon, len(d.Projection), tt.wantHorizon)
			}
			if d.StartDate.String() != "2025-03-10" {
				t.Fatalf("start = %s", d.StartDate)
			}
			if d.Projection[0].Date.String() != "2025-03-11" {
				t.Fatalf("first row = %s", d.Projection[0].Date)
			}
			if got := d.Projection[len(d.Projection)-1].Total; got != tt.wantLast {
				t.Fatalf("last total = %v, want %v", got, tt.wantLast)
			}
			if d.Summary.TotalAmount != 1000 || d.Currency != "USD" {
				t.Fatalf("summary = %+v currency = %s", d.Summary, d.Currency)
			}
		})
	}
}
