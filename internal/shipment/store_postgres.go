package shipment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"exportgate/internal/document"
	id "exportgate/pkg/domain"
	"exportgate/pkg/platform/sentinel"
)

// PostgresReader loads snapshots inside a REPEATABLE READ transaction so the
// shipment row and its document rows come from one consistent view.
type PostgresReader struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresReader {
	return &PostgresReader{pool: pool}
}

func (r *PostgresReader) Snapshot(ctx context.Context, shipmentID id.ShipmentID) (*Snapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		s      Shipment
		shipID string
		orgID  string
		codes  []byte
	)
	err = tx.QueryRow(ctx, `
		SELECT id, organization_id, reference, classification_codes, status, created_at
		FROM shipments WHERE id = $1
	`, shipmentID.String()).Scan(&shipID, &orgID, &s.Reference, &codes, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan shipment: %w", err)
	}
	s.ID = shipmentID
	if parsed, err := id.ParseOrganizationID(orgID); err == nil {
		s.OrganizationID = parsed
	}
	if len(codes) > 0 {
		if err := json.Unmarshal(codes, &s.ClassificationCodes); err != nil {
			return nil, fmt.Errorf("unmarshal classification codes: %w", err)
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT id, doc_type, state, fields, content_hash,
		       uploaded_by, reviewed_by, expires_at, created_at, updated_at
		FROM documents WHERE shipment_id = $1 ORDER BY id ASC
	`, shipmentID.String())
	if err != nil {
		return nil, fmt.Errorf("query snapshot documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		var (
			doc    document.Document
			fields []byte
		)
		var docID, docType, state, uploadedBy, reviewedBy string
		if err := rows.Scan(&docID, &docType, &state, &fields, &doc.ContentHash,
			&uploadedBy, &reviewedBy, &doc.ExpiresAt, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot document: %w", err)
		}
		if parsed, err := id.ParseDocumentID(docID); err == nil {
			doc.ID = parsed
		}
		doc.ShipmentID = shipmentID
		doc.Type = id.DocumentType(docType)
		doc.State = document.State(state)
		if parsed, err := id.ParseActorID(uploadedBy); err == nil {
			doc.UploadedBy = parsed
		}
		if parsed, err := id.ParseActorID(reviewedBy); err == nil {
			doc.ReviewedBy = parsed
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &doc.Fields); err != nil {
				return nil, fmt.Errorf("unmarshal document fields: %w", err)
			}
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit snapshot tx: %w", err)
	}

	return &Snapshot{Shipment: &s, Documents: docs, TakenAt: time.Now()}, nil
}
