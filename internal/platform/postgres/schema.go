// Package postgres carries the database schema shared by the feature stores.
// Integration tests apply it against throwaway containers; the server applies
// it on startup when auto-migration is enabled.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the full DDL, written to be idempotent.
//
// Columns written only by later lifecycle steps carry defaults so partial rows
// (a GENERATING audit pack, an unpublished outbox entry) scan cleanly.
const Schema = `
CREATE TABLE IF NOT EXISTS organizations (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	country    TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS organizations_name_unique
	ON organizations (LOWER(name));

CREATE TABLE IF NOT EXISTS shipments (
	id                   UUID PRIMARY KEY,
	organization_id      UUID NOT NULL REFERENCES organizations (id),
	reference            TEXT NOT NULL DEFAULT '',
	classification_codes JSONB NOT NULL DEFAULT '[]',
	status               TEXT NOT NULL DEFAULT 'open',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id           UUID PRIMARY KEY,
	shipment_id  UUID NOT NULL REFERENCES shipments (id),
	doc_type     TEXT NOT NULL,
	state        TEXT NOT NULL,
	fields       JSONB,
	content_hash TEXT NOT NULL DEFAULT '',
	uploaded_by  UUID,
	reviewed_by  UUID,
	expires_at   TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_shipment_idx ON documents (shipment_id);

CREATE TABLE IF NOT EXISTS document_transitions (
	id          UUID PRIMARY KEY,
	document_id UUID NOT NULL REFERENCES documents (id),
	from_state  TEXT NOT NULL,
	to_state    TEXT NOT NULL,
	actor_id    UUID NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	metadata    JSONB,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS document_transitions_document_idx
	ON document_transitions (document_id, created_at);

CREATE TABLE IF NOT EXISTS compliance_reports (
	id              UUID PRIMARY KEY,
	shipment_id     UUID NOT NULL REFERENCES shipments (id),
	decision        TEXT NOT NULL,
	total           INT NOT NULL DEFAULT 0,
	passed          INT NOT NULL DEFAULT 0,
	failed          INT NOT NULL DEFAULT 0,
	warnings        INT NOT NULL DEFAULT 0,
	results         JSONB,
	override        JSONB,
	catalog_version TEXT NOT NULL,
	version         INT NOT NULL,
	generated_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (shipment_id, version)
);

CREATE TABLE IF NOT EXISTS audit_packs (
	shipment_id     UUID PRIMARY KEY REFERENCES shipments (id),
	status          TEXT NOT NULL,
	generated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	document_count  INT NOT NULL DEFAULT 0,
	items           JSONB,
	decision        TEXT NOT NULL DEFAULT '',
	summary         JSONB,
	fingerprint     TEXT NOT NULL DEFAULT '',
	signature       BYTEA,
	timestamp_token TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS outbox (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	published_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS outbox_unpublished_idx
	ON outbox (created_at) WHERE published_at IS NULL;
CREATE INDEX IF NOT EXISTS outbox_aggregate_idx
	ON outbox (aggregate_type, aggregate_id, created_at);
`

// Apply runs the schema against the pool.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
