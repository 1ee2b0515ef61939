// Package services sits between the HTTP layer and storage: it owns the
// write orchestration (validate, persist, queue the mirror sync) and the
// subscription billing run.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/storage"
)

// RecordService orchestrates expense writes across SQLite and AMQP. The
// database is always written first; a failed publish never fails the
// request, the periodic backfill picks the row up later.
type RecordService struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
}

func NewRecordService(repo *storage.Repository, amqpClient *amqp.Client) *RecordService {
	return &RecordService{
		storage:    repo,
		amqpClient: amqpClient,
	}
}

func (s *RecordService) Storage() *storage.Repository {
	return s.storage
}

func (s *RecordService) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	if err := s.publishSync(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
	return id, nil
}

func (s *RecordService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return err
	}

	// Version after the update is unknown without a re-read; the worker
	// fetches the current row anyway, so any version >= 1 works here.
	if err := s.publishSync(ctx, e.ID, 2); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", e.ID, "error", err)
	}
	return nil
}

func (s *RecordService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.storage.DeleteExpense(ctx, id); err != nil {
		return err
	}

	if err := s.publishDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
	return nil
}

func (s *RecordService) publishSync(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishRecordSync(ctx, amqp.KindExpense, id, version)
}

func (s *RecordService) publishDelete(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.amqpClient.PublishRecordDelete(ctx, amqp.KindExpense, id)
}

// Close releases storage and AMQP connections.
func (s *RecordService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close record service: %v", errs)
	}
	return nil
}
