// Package worker mirrors the expense collection from the primary SQLite
// database into the remote Postgres reporting mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/storage"
)

// ExpenseMirror is the remote side of the sync: an upsertable,
// deletable copy of the expense collection.
type ExpenseMirror interface {
	UpsertExpense(ctx context.Context, e core.Expense, version int64) error
	DeleteExpense(ctx context.Context, id int64) error
}

// SyncWorker applies queued sync messages and backfills rows whose
// messages were lost.
type SyncWorker struct {
	storage   *storage.Repository
	mirror    ExpenseMirror
	batchSize int
}

func NewSyncWorker(repo *storage.Repository, mirror ExpenseMirror, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   repo,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleMessage processes one record-sync message. The message only
// identifies the record; the current row is fetched fresh, so stale
// messages for an already-updated row do no harm.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	if msg.Kind != amqp.KindExpense {
		slog.WarnContext(ctx, "Ignoring sync message for unknown kind", "kind", msg.Kind, "id", msg.ID)
		return nil
	}
	if msg.Deleted {
		return w.deleteFromMirror(ctx, msg.ID)
	}
	return w.syncToMirror(ctx, msg.ID)
}

func (w *SyncWorker) syncToMirror(ctx context.Context, id int64) error {
	expense, err := w.storage.GetExpense(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted between publish and delivery; the tombstone message
		// handles the mirror row.
		slog.InfoContext(ctx, "Expense gone before sync, skipping", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	version, err := w.storage.ExpenseVersion(ctx, id)
	if err != nil {
		return fmt.Errorf("read expense version: %w", err)
	}

	if err := w.mirror.UpsertExpense(ctx, expense, version); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("upsert mirrored expense: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The mirror write went through; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Synced expense to mirror",
		"id", id,
		"description", expense.Description,
		"amount", expense.Amount)
	return nil
}

func (w *SyncWorker) deleteFromMirror(ctx context.Context, id int64) error {
	if err := w.mirror.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete mirrored expense: %w", err)
	}
	if err := w.storage.MarkSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark tombstone as synced", "id", id, "error", err)
	}
	slog.InfoContext(ctx, "Deleted expense from mirror", "id", id)
	return nil
}

// ProcessPending backfills expenses that never got a message through,
// a batch at a time. Errors on single rows do not stop the batch.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingSyncExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	for _, p := range pending {
		var err error
		if p.Deleted {
			err = w.deleteFromMirror(ctx, p.ID)
		} else {
			err = w.syncToMirror(ctx, p.ID)
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending expense", "id", p.ID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains a larger pending backlog once, recovering from
// missed messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.PendingSyncExpenses(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending expenses on startup", "count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		var err error
		if p.Deleted {
			err = w.deleteFromMirror(ctx, p.ID)
		} else {
			err = w.syncToMirror(ctx, p.ID)
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sync expense during startup", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}
