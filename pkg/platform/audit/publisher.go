// Package audit provides the append-only audit trail for compliance events.
//
// The Publisher has fail-closed semantics: emitting is synchronous and the
// caller blocks until the write succeeds. If the write fails, the calling
// operation MUST fail: a compliance action without its audit record is not
// allowed to proceed.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	id "exportgate/pkg/domain"
)

// Store persists audit events. The Postgres implementation writes to the
// transactional outbox; the worker ships outbox rows to Kafka.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByShipment(ctx context.Context, shipmentID id.ShipmentID) ([]Event, error)
}

// Publisher emits audit events with fail-closed semantics.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher backed by the given store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes an audit event. Returns an error if persistence
// fails; the caller must fail its operation.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires an action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = Action(event.Action).Category()
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit persistence failed",
				"action", event.Action,
				"shipment_id", event.ShipmentID,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	return nil
}

// List returns the audit trail for a shipment, oldest first.
func (p *Publisher) List(ctx context.Context, shipmentID id.ShipmentID) ([]Event, error) {
	return p.store.ListByShipment(ctx, shipmentID)
}
