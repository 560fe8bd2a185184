// Package worker appends stored transactions to per-user monthly CSV audit
// files. Events arrive over AMQP; a periodic scan of unexported rows backs
// up any messages that were lost.
package worker

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type ExportWorker struct {
	storage   *storage.Repository
	dir       string
	batchSize int
}

func NewExportWorker(storage *storage.Repository, dir string, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		dir:       dir,
		batchSize: batchSize,
	}
}

// HandleTransactionRecorded processes a single transaction event.
func (w *ExportWorker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	slog.InfoContext(ctx, "Processing transaction event", "kind", msg.Kind, "id", msg.ID)
	return w.export(ctx, msg.Kind, msg.ID)
}

// ProcessUnexported exports any rows the event stream missed.
func (w *ExportWorker) ProcessUnexported(ctx context.Context) error {
	pending, err := w.storage.UnexportedTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get unexported transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing unexported transactions", "count", len(pending))

	for _, p := range pending {
		if err := w.export(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"kind", p.Kind, "id", p.ID, "error", err)
		}
	}
	return nil
}

// StartupCheck drains a larger backlog once at worker startup to recover
// from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.UnexportedTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get unexported transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No unexported transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found unexported transactions on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, p := range pending {
		if err := w.export(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"kind", p.Kind, "id", p.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending), "exported", exported, "failed", failed)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, kind string, id int64) error {
	var row []string
	var userID int64
	var date core.Date

	switch kind {
	case amqp.KindIncome:
		in, err := w.storage.IncomeByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get income %d: %w", id, err)
		}
		userID, date = in.UserID, in.Date
		row = []string{
			kind,
			fmt.Sprintf("%d", in.ID),
			in.Date.String(),
			in.Amount.String(),
			in.Source,
			"", // necessity applies to expenses only
			in.PaymentMethod,
			in.Description,
		}
	case amqp.KindExpense:
		ex, err := w.storage.ExpenseByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get expense %d: %w", id, err)
		}
		userID, date = ex.UserID, ex.Date
		row = []string{
			kind,
			fmt.Sprintf("%d", ex.ID),
			ex.Date.String(),
			ex.Amount.String(),
			ex.Category,
			string(ex.Necessity),
			ex.PaymentMethod,
			ex.Description,
		}
	default:
		return fmt.Errorf("unknown transaction kind: %s", kind)
	}

	if err := w.appendRow(userID, date, row); err != nil {
		return fmt.Errorf("append export row: %w", err)
	}

	if err := w.storage.MarkExported(ctx, kind, id); err != nil {
		// The row is already in the file; a duplicate on retry is
		// preferable to losing the export.
		slog.ErrorContext(ctx, "Failed to mark transaction exported",
			"kind", kind, "id", id, "error", err)
		return err
	}

	slog.InfoContext(ctx, "Transaction exported", "kind", kind, "id", id, "user_id", userID)
	return nil
}

// appendRow writes one CSV record to <dir>/user_<id>/<year>-<month>.csv,
// creating the file with a header when needed.
func (w *ExportWorker) appendRow(userID int64, date core.Date, row []string) error {
	userDir := filepath.Join(w.dir, fmt.Sprintf("user_%d", userID))
	if err := os.MkdirAll(userDir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(userDir, fmt.Sprintf("%04d-%02d.csv", date.Year(), int(date.Month())))
	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if newFile {
		if err := cw.Write([]string{"kind", "id", "date", "amount", "category_or_source", "necessity", "payment_method", "description"}); err != nil {
			return fmt.Errorf("write export header: %w", err)
		}
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("write export row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export file: %w", err)
	}
	return nil
}
