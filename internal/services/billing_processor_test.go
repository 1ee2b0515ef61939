package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"finboard/internal/core"
	"finboard/internal/storage"
)

type fakeBillingStore struct {
	mu      sync.Mutex
	subs    []core.Subscription
	created []core.Expense
}

func (f *fakeBillingStore) ListActiveSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	return f.subs, nil
}

func (f *fakeBillingStore) AutoChargeExists(ctx context.Context, marker string, month core.MonthPeriod) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := string(month) + "-"
	for _, e := range f.created {
		if e.RawInput == marker && strings.HasPrefix(e.Date.Format("2006-01-02"), prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBillingStore) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.created {
		if existing.IsAutoCharge() && existing.RawInput == e.RawInput &&
			existing.Date.Format("2006-01") == e.Date.Format("2006-01") {
			return 0, storage.ErrDuplicateAutoCharge
		}
	}
	f.created = append(f.created, e)
	return int64(len(f.created)), nil
}

func newBillingFixture(subs ...core.Subscription) (*BillingProcessor, *fakeBillingStore) {
	store := &fakeBillingStore{subs: subs}
	return NewBillingProcessor(store, store, store), store
}

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestProcessDueChargesCreatesExpense(t *testing.T) {
	proc, store := newBillingFixture(core.Subscription{
		ID: 1, Name: "Netflix", Amount: 260_000, BillingDay: 15,
		Category: "Entertainment", IsActive: true,
	})

	created, err := proc.ProcessDueCharges(context.Background(), at(2025, time.September, 15))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}

	e := store.created[0]
	if e.RawInput != "[Auto] Netflix" {
		t.Errorf("marker = %q", e.RawInput)
	}
	if e.Category != "Entertainment" || e.Amount != 260_000 || e.Description != "Netflix" {
		t.Errorf("expense fields: %+v", e)
	}
	if got := e.Date.Format("2006-01-02"); got != "2025-09-15" {
		t.Errorf("charge date = %s", got)
	}
}

func TestProcessDueChargesSkipsBeforeBillingDay(t *testing.T) {
	proc, store := newBillingFixture(core.Subscription{
		ID: 1, Name: "Netflix", Amount: 260_000, BillingDay: 15,
		Category: "Entertainment", IsActive: true,
	})

	created, err := proc.ProcessDueCharges(context.Background(), at(2025, time.September, 14))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if created != 0 || len(store.created) != 0 {
		t.Fatalf("charge created before billing day: %d", created)
	}
}

func TestProcessDueChargesClampsToMonthEnd(t *testing.T) {
	proc, store := newBillingFixture(core.Subscription{
		ID: 1, Name: "Rent", Amount: 5_000_000, BillingDay: 31,
		Category: "Bills", IsActive: true,
	})

	// February 2025 has 28 days; day 28 is the clamped billing day.
	created, err := proc.ProcessDueCharges(context.Background(), at(2025, time.February, 28))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if got := store.created[0].Date.Format("2006-01-02"); got != "2025-02-28" {
		t.Errorf("charge date = %s, want clamped 2025-02-28", got)
	}
}

func TestProcessDueChargesIsIdempotent(t *testing.T) {
	proc, store := newBillingFixture(core.Subscription{
		ID: 1, Name: "Netflix", Amount: 260_000, BillingDay: 15,
		Category: "Entertainment", IsActive: true,
	})
	ctx := context.Background()

	for _, day := range []int{15, 16, 30} {
		if _, err := proc.ProcessDueCharges(ctx, at(2025, time.September, day)); err != nil {
			t.Fatalf("process day %d: %v", day, err)
		}
	}
	if len(store.created) != 1 {
		t.Fatalf("charges = %d, want 1 per month", len(store.created))
	}

	// The next month charges again.
	if _, err := proc.ProcessDueCharges(ctx, at(2025, time.October, 15)); err != nil {
		t.Fatalf("process october: %v", err)
	}
	if len(store.created) != 2 {
		t.Fatalf("charges = %d, want 2 after month rollover", len(store.created))
	}
}

func TestProcessDueChargesDuplicateConstraintIsNotAnError(t *testing.T) {
	store := &fakeBillingStore{subs: []core.Subscription{{
		ID: 1, Name: "Netflix", Amount: 260_000, BillingDay: 15,
		Category: "Entertainment", IsActive: true,
	}}}
	// Pre-seed a charge the ledger check cannot see: simulate a row
	// written between the existence check and the insert by making the
	// ledger always answer no.
	proc := NewBillingProcessor(store, ledgerAlwaysNo{}, store)
	ctx := context.Background()

	if _, err := proc.ProcessDueCharges(ctx, at(2025, time.September, 15)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	created, err := proc.ProcessDueCharges(ctx, at(2025, time.September, 16))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0 on constraint hit", created)
	}
	if len(store.created) != 1 {
		t.Errorf("charges = %d, want 1", len(store.created))
	}
}

type ledgerAlwaysNo struct{}

func (ledgerAlwaysNo) AutoChargeExists(ctx context.Context, marker string, month core.MonthPeriod) (bool, error) {
	return false, nil
}

func TestProcessDueChargesMultipleSubscriptions(t *testing.T) {
	proc, _ := newBillingFixture(
		core.Subscription{ID: 1, Name: "Netflix", Amount: 260_000, BillingDay: 1, Category: "Entertainment", IsActive: true},
		core.Subscription{ID: 2, Name: "Gym", Amount: 500_000, BillingDay: 10, Category: "Health", IsActive: true},
		core.Subscription{ID: 3, Name: "Spotify", Amount: 59_000, BillingDay: 25, Category: "Entertainment", IsActive: true},
	)

	created, err := proc.ProcessDueCharges(context.Background(), at(2025, time.September, 12))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2 (Spotify not yet due)", created)
	}
}
