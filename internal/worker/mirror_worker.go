package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/sheets"
)

// Consumer delivers record-created events to a handler until it fails or
// ctx ends. *amqp.Client satisfies it.
type Consumer interface {
	ConsumeRecordCreated(ctx context.Context, handler func(context.Context, *amqp.RecordCreatedMessage) error) error
	Reconnect() error
}

// ErrUnknownTable is returned for events about tables that have no sheet.
var ErrUnknownTable = errors.New("no sheet configured for table")

// MirrorWorker appends every created record to its table's sheet.
type MirrorWorker struct {
	sheets   sheets.RowAppender
	sheetFor map[string]string
	backoff  func(attempt int) time.Duration
	mirrored atomic.Int64
}

// NewMirrorWorker maps the transactions and study_tasks tables onto the
// given sheet names.
func NewMirrorWorker(appender sheets.RowAppender, transactionsSheet, tasksSheet string) *MirrorWorker {
	return &MirrorWorker{
		sheets: appender,
		sheetFor: map[string]string{
			core.TableTransactions: transactionsSheet,
			core.TableStudyTasks:   tasksSheet,
		},
		backoff: amqp.Backoff,
	}
}

// HandleMessage mirrors a single record-created event.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.RecordCreatedMessage) error {
	sheet, ok := w.sheetFor[msg.Table]
	if !ok || sheet == "" {
		// Nothing to retry; log and ack.
		slog.WarnContext(ctx, "Skipping record for unmirrored table",
			"table", msg.Table,
			"record_id", msg.ID,
			"component", "worker")
		return nil
	}

	row, err := RowFor(msg.Table, msg.Record)
	if err != nil {
		return fmt.Errorf("build row for %s/%s: %w", msg.Table, msg.ID, err)
	}

	ref, err := w.sheets.AppendRow(ctx, sheet, row)
	if err != nil {
		return fmt.Errorf("append %s/%s to sheet: %w", msg.Table, msg.ID, err)
	}

	w.mirrored.Add(1)
	slog.InfoContext(ctx, "Mirrored record",
		"table", msg.Table,
		"record_id", msg.ID,
		"sheet", sheet,
		"sheets_ref", ref,
		"component", "worker")
	return nil
}

// Mirrored returns how many records have been appended so far.
func (w *MirrorWorker) Mirrored() int64 {
	return w.mirrored.Load()
}

// RowFor lays out a record as sheet cells. Missing optional columns become
// empty cells and amounts are written as plain decimal strings.
func RowFor(table string, r core.Record) ([]any, error) {
	switch table {
	case core.TableTransactions:
		tx, err := core.TransactionFromRecord(r)
		if err != nil {
			return nil, err
		}
		return []any{
			tx.CreatedAt,
			tx.ID,
			tx.UserID,
			string(tx.Type),
			tx.Amount.String(),
			tx.Description,
			tx.Category,
		}, nil
	case core.TableStudyTasks:
		task := core.StudyTaskFromRecord(r)
		return []any{
			task.CreatedAt,
			task.ID,
			task.Title,
			task.Description,
			task.Deadline,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
}

// Run consumes until ctx ends, reconnecting with exponential backoff when
// the broker connection drops.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer) error {
	attempt := 0
	for {
		err := consumer.ConsumeRecordCreated(ctx, w.HandleMessage)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !amqp.IsConnectionError(err) {
			return fmt.Errorf("consume: %w", err)
		}

		delay := w.backoff(attempt)
		attempt++
		slog.WarnContext(ctx, "Consumer stopped, reconnecting",
			"error", err,
			"attempt", attempt,
			"backoff", delay.String(),
			"component", "worker")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		if err := consumer.Reconnect(); err != nil {
			slog.ErrorContext(ctx, "Reconnect failed", "error", err, "component", "worker")
			continue
		}
		attempt = 0
		slog.InfoContext(ctx, "Reconnected to broker", "component", "worker")
	}
}
