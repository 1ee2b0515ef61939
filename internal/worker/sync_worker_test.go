package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/storage"
)

type fakeMirror struct {
	upserts  map[int64]int64 // id -> last version
	deletes  []int64
	failNext error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{upserts: make(map[int64]int64)}
}

func (m *fakeMirror) UpsertExpense(ctx context.Context, e core.Expense, version int64) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.upserts[e.ID] = version
	return nil
}

func (m *fakeMirror) DeleteExpense(ctx context.Context, id int64) error {
	m.deletes = append(m.deletes, id)
	return nil
}

func newWorkerFixture(t *testing.T) (*SyncWorker, *storage.Repository, *fakeMirror) {
	t.Helper()
	repo, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	mirror := newFakeMirror()
	return NewSyncWorker(repo, mirror, 10), repo, mirror
}

func seedExpense(t *testing.T, repo *storage.Repository) int64 {
	t.Helper()
	id, err := repo.CreateExpense(context.Background(), core.Expense{
		Category:    "Food",
		Amount:      50_000,
		Description: "lunch",
		Date:        time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	return id
}

func TestHandleMessageSyncsAndMarks(t *testing.T) {
	w, repo, mirror := newWorkerFixture(t)
	ctx := context.Background()
	id := seedExpense(t, repo)

	msg := amqp.NewRecordSyncMessage(amqp.KindExpense, id, 1)
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if got := mirror.upserts[id]; got != 1 {
		t.Errorf("mirrored version = %d, want 1", got)
	}
	pending, _ := repo.PendingSyncExpenses(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("row still pending after sync: %+v", pending)
	}
}

func TestHandleMessageDelete(t *testing.T) {
	w, repo, mirror := newWorkerFixture(t)
	ctx := context.Background()
	id := seedExpense(t, repo)

	if err := repo.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := w.HandleMessage(ctx, amqp.NewRecordDeleteMessage(amqp.KindExpense, id)); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if len(mirror.deletes) != 1 || mirror.deletes[0] != id {
		t.Errorf("mirror deletes = %v", mirror.deletes)
	}
}

func TestHandleMessageUnknownKindIgnored(t *testing.T) {
	w, _, mirror := newWorkerFixture(t)

	msg := amqp.NewRecordSyncMessage(amqp.RecordKind("income"), 1, 1)
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("unknown kind should be dropped, got %v", err)
	}
	if len(mirror.upserts) != 0 {
		t.Errorf("unexpected mirror writes: %v", mirror.upserts)
	}
}

func TestHandleMessageExpenseGone(t *testing.T) {
	w, _, mirror := newWorkerFixture(t)

	// A sync message for a row soft-deleted in the meantime must not
	// requeue forever.
	msg := amqp.NewRecordSyncMessage(amqp.KindExpense, 12345, 1)
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("gone expense should be skipped, got %v", err)
	}
	if len(mirror.upserts) != 0 {
		t.Errorf("unexpected mirror writes: %v", mirror.upserts)
	}
}

func TestHandleMessageMirrorFailureMarksError(t *testing.T) {
	w, repo, mirror := newWorkerFixture(t)
	ctx := context.Background()
	id := seedExpense(t, repo)

	mirror.failNext = errors.New("mirror down")
	if err := w.HandleMessage(ctx, amqp.NewRecordSyncMessage(amqp.KindExpense, id, 1)); err == nil {
		t.Fatal("expected error from failed mirror write")
	}

	// Errored rows leave the pending queue until an operator looks.
	pending, _ := repo.PendingSyncExpenses(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("errored row should be held back: %+v", pending)
	}
}

func TestProcessPendingBackfill(t *testing.T) {
	w, repo, mirror := newWorkerFixture(t)
	ctx := context.Background()

	ids := []int64{seedExpense(t, repo), seedExpense(t, repo)}
	deleted := seedExpense(t, repo)
	if err := repo.DeleteExpense(ctx, deleted); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("backfill: %v", err)
	}

	for _, id := range ids {
		if _, ok := mirror.upserts[id]; !ok {
			t.Errorf("expense %d not backfilled", id)
		}
	}
	if len(mirror.deletes) != 1 || mirror.deletes[0] != deleted {
		t.Errorf("tombstone not backfilled: %v", mirror.deletes)
	}
	pending, _ := repo.PendingSyncExpenses(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("rows left pending: %+v", pending)
	}
}

func TestStartupSyncCheckDrainsBacklog(t *testing.T) {
	w, repo, mirror := newWorkerFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedExpense(t, repo)
	}
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	if len(mirror.upserts) != 5 {
		t.Errorf("mirrored %d rows, want 5", len(mirror.upserts))
	}
}
