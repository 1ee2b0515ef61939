package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finboard/internal/core"
	"finboard/internal/storage"
)

func newRecordFixture(t *testing.T) (*RecordService, *storage.Repository) {
	t.Helper()
	repo, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	// No AMQP client: publishes are skipped, writes must still succeed.
	return NewRecordService(repo, nil), repo
}

func TestCreateExpenseWithoutEventBus(t *testing.T) {
	svc, repo := newRecordFixture(t)
	ctx := context.Background()

	id, err := svc.CreateExpense(ctx, core.Expense{
		Category:    "Food",
		Amount:      120_000,
		Description: "dinner",
		Date:        time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	saved, err := repo.GetExpense(ctx, id)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if saved.Description != "dinner" || saved.Amount != 120_000 {
		t.Errorf("saved expense = %+v", saved)
	}

	// The row must be queued for the backfill since no message was sent.
	pending, err := repo.PendingSyncExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncExpenses: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Errorf("pending = %+v, want row %d queued", pending, id)
	}
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	svc, _ := newRecordFixture(t)

	_, err := svc.CreateExpense(context.Background(), core.Expense{
		Category: "Food",
		Amount:   -5,
		Date:     time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("expected validation error for negative amount")
	}
}

func TestUpdateExpenseBumpsVersion(t *testing.T) {
	svc, repo := newRecordFixture(t)
	ctx := context.Background()

	id, err := svc.CreateExpense(ctx, core.Expense{
		Category:    "Transport",
		Amount:      30_000,
		Description: "bus",
		Date:        time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	updated := core.Expense{
		ID:          id,
		Category:    "Transport",
		Amount:      45_000,
		Description: "taxi",
		Date:        time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := svc.UpdateExpense(ctx, updated); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}

	version, err := repo.ExpenseVersion(ctx, id)
	if err != nil {
		t.Fatalf("ExpenseVersion: %v", err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}
}

func TestDeleteExpenseSoftDeletes(t *testing.T) {
	svc, repo := newRecordFixture(t)
	ctx := context.Background()

	id, err := svc.CreateExpense(ctx, core.Expense{
		Category:    "Bills",
		Amount:      200_000,
		Description: "electricity",
		Date:        time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	if err := svc.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}

	if _, err := repo.GetExpense(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetExpense after delete = %v, want ErrNotFound", err)
	}

	pending, err := repo.PendingSyncExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncExpenses: %v", err)
	}
	var tombstone bool
	for _, p := range pending {
		if p.ID == id && p.Deleted {
			tombstone = true
		}
	}
	if !tombstone {
		t.Errorf("pending = %+v, want tombstone for %d", pending, id)
	}
}
