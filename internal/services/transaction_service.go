// Package services orchestrates writes across storage and AMQP.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// TransactionService stores ledger records and publishes transaction
// events. Publishing is best-effort: a failed publish never fails the
// request, the export worker's periodic scan picks the row up later.
type TransactionService struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
}

func NewTransactionService(storage *storage.Repository, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// RecordIncome saves an income and publishes its event.
func (s *TransactionService) RecordIncome(ctx context.Context, in core.Income) (int64, error) {
	id, err := s.storage.CreateIncome(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("save income: %w", err)
	}

	s.publish(ctx, amqp.NewTransactionRecordedMessage(amqp.KindIncome, id, in.UserID, in.Date.String()))
	return id, nil
}

// RecordExpense saves an expense and publishes its event.
func (s *TransactionService) RecordExpense(ctx context.Context, ex core.Expense) (int64, error) {
	id, err := s.storage.CreateExpense(ctx, ex)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, amqp.NewTransactionRecordedMessage(amqp.KindExpense, id, ex.UserID, ex.Date.String()))
	return id, nil
}

func (s *TransactionService) publish(ctx context.Context, msg *amqp.TransactionRecordedMessage) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping transaction event",
			"kind", msg.Kind, "id", msg.ID)
		return
	}
	if err := s.amqpClient.PublishTransactionRecorded(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", msg.Kind, "id", msg.ID, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *TransactionService) Close() error {
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
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
