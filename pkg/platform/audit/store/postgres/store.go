package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	id "exportgate/pkg/domain"
	audit "exportgate/pkg/platform/audit"
	txcontext "exportgate/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the outbox
// worker. Append joins the transaction carried by the context, so services
// running inside a tx.Runner commit the audit row atomically with the
// business write that produced it.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event so the consumer can deserialize without a mapping layer.
type outboxPayload struct {
	ID         string `json:"ID"`
	Category   string `json:"Category"`
	Timestamp  string `json:"Timestamp"`
	ShipmentID string `json:"ShipmentID,omitempty"`
	DocumentID string `json:"DocumentID,omitempty"`
	ActorID    string `json:"ActorID,omitempty"`
	Action     string `json:"Action"`
	Decision   string `json:"Decision,omitempty"`
	Reason     string `json:"Reason,omitempty"`
	RequestID  string `json:"RequestID,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	payload := outboxPayload{
		ID:        eventID.String(),
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	}
	if !event.ShipmentID.IsNil() {
		payload.ShipmentID = event.ShipmentID.String()
	}
	if !event.DocumentID.IsNil() {
		payload.DocumentID = event.DocumentID.String()
	}
	if !event.ActorID.IsNil() {
		payload.ActorID = event.ActorID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.ShipmentID.IsNil() {
		aggregateType = "shipment"
		aggregateID = event.ShipmentID.String()
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = txcontext.Executor(ctx, s.pool).Exec(ctx, query,
		eventID, aggregateType, aggregateID, event.Action, payloadBytes, event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}
	return nil
}

// ListByShipment returns persisted events for a shipment, oldest first.
func (s *Store) ListByShipment(ctx context.Context, shipmentID id.ShipmentID) ([]audit.Event, error) {
	query := `
		SELECT payload FROM outbox
		WHERE aggregate_type = 'shipment' AND aggregate_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.pool.Query(ctx, query, shipmentID.String())
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		var p outboxPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal outbox payload: %w", err)
		}
		events = append(events, p.toEvent())
	}
	return events, rows.Err()
}

func (p outboxPayload) toEvent() audit.Event {
	event := audit.Event{
		Category:  audit.EventCategory(p.Category),
		Action:    p.Action,
		Decision:  p.Decision,
		Reason:    p.Reason,
		RequestID: p.RequestID,
	}
	if t, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		event.Timestamp = t
	}
	if u, err := uuid.Parse(p.ShipmentID); err == nil {
		event.ShipmentID = id.ShipmentID(u)
	}
	if u, err := uuid.Parse(p.DocumentID); err == nil {
		event.DocumentID = id.DocumentID(u)
	}
	if u, err := uuid.Parse(p.ActorID); err == nil {
		event.ActorID = id.ActorID(u)
	}
	return event
}
