package document

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

// PostgresStore persists documents and transitions in PostgreSQL.
//
// The expected-state discipline is a conditional UPDATE: the state column only
// moves when it still equals the transition's From, and the transition row is
// inserted in the same transaction. Concurrent writers against the same prior
// state therefore cannot both succeed.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const documentColumns = `
	id, shipment_id, doc_type, state, fields, content_hash,
	uploaded_by, reviewed_by, expires_at, created_at, updated_at
`

func (s *PostgresStore) FindByID(ctx context.Context, documentID id.DocumentID) (*Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, documentID.String())
	return scanDocument(row)
}

func (s *PostgresStore) ListByShipment(ctx context.Context, shipmentID id.ShipmentID) ([]*Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE shipment_id = $1 ORDER BY created_at ASC`,
		shipmentID.String())
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// AppendTransition joins the transaction carried by the context when one is
// present; the caller then owns the commit. Without one it opens its own.
func (s *PostgresStore) AppendTransition(ctx context.Context, tr Transition) error {
	if outer, ok := txcontext.From(ctx); ok {
		return appendTransition(ctx, outer, tr)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := appendTransition(ctx, tx, tr); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func appendTransition(ctx context.Context, tx pgx.Tx, tr Transition) error {
	tag, err := tx.Exec(ctx, `
		UPDATE documents SET state = $1, updated_at = $2
		WHERE id = $3 AND state = $4
	`, string(tr.To), tr.Timestamp, tr.DocumentID.String(), string(tr.From))
	if err != nil {
		return fmt.Errorf("update document state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`,
			tr.DocumentID.String()).Scan(&exists); err != nil {
			return fmt.Errorf("check document existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}

	metadata, err := json.Marshal(tr.Metadata)
	if err != nil {
		return fmt.Errorf("marshal transition metadata: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO document_transitions
			(id, document_id, from_state, to_state, actor_id, reason, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, tr.ID.String(), tr.DocumentID.String(), string(tr.From), string(tr.To),
		tr.ActorID.String(), tr.Reason, metadata, tr.Timestamp)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTransitions(ctx context.Context, documentID id.DocumentID) ([]Transition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, from_state, to_state, actor_id, reason, metadata, created_at
		FROM document_transitions
		WHERE document_id = $1
		ORDER BY created_at ASC
	`, documentID.String())
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var (
			tr       Transition
			metadata []byte
		)
		var trID, docID, from, to, actor, reason string
		if err := rows.Scan(&trID, &docID, &from, &to, &actor, &reason, &metadata, &tr.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.ID = parseTransitionID(trID)
		tr.DocumentID = parseDocID(docID)
		tr.From = State(from)
		tr.To = State(to)
		tr.ActorID = parseActorID(actor)
		tr.Reason = reason
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &tr.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal transition metadata: %w", err)
			}
		}
		transitions = append(transitions, tr)
	}
	return transitions, rows.Err()
}

func scanDocument(row pgx.Row) (*Document, error) {
	var (
		doc    Document
		fields []byte
	)
	var docID, shipID, docType, state, uploadedBy, reviewedBy string
	err := row.Scan(&docID, &shipID, &docType, &state, &fields, &doc.ContentHash,
		&uploadedBy, &reviewedBy, &doc.ExpiresAt, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.ID = parseDocID(docID)
	if parsed, err := id.ParseShipmentID(shipID); err == nil {
		doc.ShipmentID = parsed
	}
	doc.Type = id.DocumentType(docType)
	doc.State = State(state)
	doc.UploadedBy = parseActorID(uploadedBy)
	doc.ReviewedBy = parseActorID(reviewedBy)
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &doc.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal document fields: %w", err)
		}
	}
	return &doc, nil
}

func parseDocID(s string) id.DocumentID {
	parsed, _ := id.ParseDocumentID(s)
	return parsed
}

func parseActorID(s string) id.ActorID {
	parsed, _ := id.ParseActorID(s)
	return parsed
}

func parseTransitionID(s string) id.TransitionID {
	parsed, _ := id.ParseTransitionID(s)
	return parsed
}
