package services

import (
	"context"
	"fmt"
	"log/slog"

	"tracker/internal/backend"
	"tracker/internal/core"
)

// Publisher announces created records. *amqp.Client satisfies it.
type Publisher interface {
	PublishRecordCreated(ctx context.Context, table, id string, record core.Record) error
	Close() error
}

// RecordService wraps a backend client and announces every successful
// insert. Everything else passes straight through to the backend.
type RecordService struct {
	backend.Client
	publisher Publisher
}

// Ensure interface conformance
var _ backend.Client = (*RecordService)(nil)

// NewRecordService returns a client that publishes inserts to publisher. A
// nil publisher disables events.
func NewRecordService(client backend.Client, publisher Publisher) *RecordService {
	return &RecordService{
		Client:    client,
		publisher: publisher,
	}
}

// Insert writes the record to the backend first and publishes afterwards.
// A failed publish is logged and never fails the insert.
func (s *RecordService) Insert(ctx context.Context, table string, record core.Record) (core.Record, error) {
	stored, err := s.Client.Insert(ctx, table, record)
	if err != nil {
		return nil, err
	}

	if err := s.publishCreated(context.WithoutCancel(ctx), table, stored); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record created message",
			"table", table,
			"record_id", stored.String("id"),
			"error", err,
			"component", "amqp")
	}

	return stored, nil
}

func (s *RecordService) publishCreated(ctx context.Context, table string, stored core.Record) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping record created message", "table", table)
		return nil
	}
	return s.publisher.PublishRecordCreated(ctx, table, stored.String("id"), stored)
}

// Close closes both the backend and the publisher.
func (s *RecordService) Close() error {
	var errs []error

	if s.Client != nil {
		if err := s.Client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("backend: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close record service: %v", errs)
	}

	return nil
}
