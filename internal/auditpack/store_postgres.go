package auditpack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "exportgate/pkg/domain"
	"exportgate/pkg/platform/sentinel"
	txcontext "exportgate/pkg/platform/tx"
)

// PostgresStore persists the current pack record per shipment. The
// single-flight gate is a conditional UPDATE against the status column, so
// two concurrent BeginGeneration calls cannot both succeed.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, shipmentID id.ShipmentID) (*Pack, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT status, generated_at, document_count, items, decision, summary,
		       fingerprint, signature, timestamp_token
		FROM audit_packs WHERE shipment_id = $1
	`, shipmentID.String())
	pack, err := scanPack(row, shipmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Pack{ShipmentID: shipmentID, Status: StatusNone}, nil
		}
		return nil, err
	}
	return pack, nil
}

func (s *PostgresStore) BeginGeneration(ctx context.Context, shipmentID id.ShipmentID) (*Pack, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin generation tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT status, generated_at, document_count, items, decision, summary,
		       fingerprint, signature, timestamp_token
		FROM audit_packs WHERE shipment_id = $1
		FOR UPDATE
	`, shipmentID.String())
	prior, err := scanPack(row, shipmentID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx, `
			INSERT INTO audit_packs (shipment_id, status) VALUES ($1, $2)
		`, shipmentID.String(), string(StatusGenerating))
		if err != nil {
			return nil, fmt.Errorf("insert generating pack: %w", err)
		}
		prior = nil
	case err != nil:
		return nil, err
	case prior.Status == StatusGenerating:
		return nil, sentinel.ErrInvalidState
	default:
		_, err = tx.Exec(ctx, `
			UPDATE audit_packs SET status = $1 WHERE shipment_id = $2
		`, string(StatusGenerating), shipmentID.String())
		if err != nil {
			return nil, fmt.Errorf("mark pack generating: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit generation tx: %w", err)
	}
	return prior, nil
}

func (s *PostgresStore) Complete(ctx context.Context, pack *Pack) error {
	items, err := json.Marshal(pack.Items)
	if err != nil {
		return fmt.Errorf("marshal pack items: %w", err)
	}
	summary, err := json.Marshal(pack.Summary)
	if err != nil {
		return fmt.Errorf("marshal pack summary: %w", err)
	}
	// Runs on the context transaction when present so the READY flip commits
	// together with the pack-generated audit row.
	tag, err := txcontext.Executor(ctx, s.pool).Exec(ctx, `
		UPDATE audit_packs
		SET status = $1, generated_at = $2, document_count = $3, items = $4,
		    decision = $5, summary = $6, fingerprint = $7, signature = $8,
		    timestamp_token = $9
		WHERE shipment_id = $10 AND status = $11
	`, string(StatusReady), pack.GeneratedAt, pack.DocumentCount, items,
		string(pack.Decision), summary, pack.Fingerprint, pack.Signature,
		pack.TimestampToken, pack.ShipmentID.String(), string(StatusGenerating))
	if err != nil {
		return fmt.Errorf("complete pack: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) Restore(ctx context.Context, shipmentID id.ShipmentID, prior *Pack) error {
	if prior == nil {
		_, err := s.pool.Exec(ctx,
			`DELETE FROM audit_packs WHERE shipment_id = $1 AND status = $2`,
			shipmentID.String(), string(StatusGenerating))
		return err
	}
	items, err := json.Marshal(prior.Items)
	if err != nil {
		return fmt.Errorf("marshal pack items: %w", err)
	}
	summary, err := json.Marshal(prior.Summary)
	if err != nil {
		return fmt.Errorf("marshal pack summary: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE audit_packs
		SET status = $1, generated_at = $2, document_count = $3, items = $4,
		    decision = $5, summary = $6, fingerprint = $7, signature = $8,
		    timestamp_token = $9
		WHERE shipment_id = $10 AND status = $11
	`, string(prior.Status), prior.GeneratedAt, prior.DocumentCount, items,
		string(prior.Decision), summary, prior.Fingerprint, prior.Signature,
		prior.TimestampToken, shipmentID.String(), string(StatusGenerating))
	return err
}

func (s *PostgresStore) MarkOutdated(ctx context.Context, shipmentID id.ShipmentID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE audit_packs SET status = $1 WHERE shipment_id = $2 AND status = $3
	`, string(StatusOutdated), shipmentID.String(), string(StatusReady))
	return err
}

func scanPack(row pgx.Row, shipmentID id.ShipmentID) (*Pack, error) {
	var (
		pack             Pack
		status, decision string
		items, summary   []byte
	)
	err := row.Scan(&status, &pack.GeneratedAt, &pack.DocumentCount, &items,
		&decision, &summary, &pack.Fingerprint, &pack.Signature, &pack.TimestampToken)
	if err != nil {
		return nil, err
	}
	pack.ShipmentID = shipmentID
	pack.Status = Status(status)
	pack.Decision = id.Decision(decision)
	if len(items) > 0 {
		if err := json.Unmarshal(items, &pack.Items); err != nil {
			return nil, fmt.Errorf("unmarshal pack items: %w", err)
		}
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &pack.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal pack summary: %w", err)
		}
	}
	return &pack, nil
}
