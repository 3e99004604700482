package org

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	id "exportgate/pkg/domain"
	"exportgate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, o *Organization) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, country, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, o.ID.String(), o.Name, o.Country, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrganizationID) (*Organization, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, country, status, created_at, updated_at
		FROM organizations WHERE id = $1
	`, orgID.String())
	return scanOrganization(row)
}

func (s *PostgresStore) Execute(ctx context.Context, orgID id.OrganizationID, validate func(*Organization) error, mutate func(*Organization)) (*Organization, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin organization tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT id, name, country, status, created_at, updated_at
		FROM organizations WHERE id = $1
		FOR UPDATE
	`, orgID.String())
	o, err := scanOrganization(row)
	if err != nil {
		return nil, err
	}

	if err := validate(o); err != nil {
		return nil, err
	}
	mutate(o)

	_, err = tx.Exec(ctx, `
		UPDATE organizations SET status = $1, updated_at = $2 WHERE id = $3
	`, string(o.Status), o.UpdatedAt, orgID.String())
	if err != nil {
		return nil, fmt.Errorf("update organization: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit organization tx: %w", err)
	}
	return o, nil
}

func scanOrganization(row pgx.Row) (*Organization, error) {
	var (
		o             Organization
		rawID, status string
	)
	err := row.Scan(&rawID, &o.Name, &o.Country, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	orgID, err := id.ParseOrganizationID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored organization id: %w", err)
	}
	o.ID = orgID
	o.Status = Status(status)
	return &o, nil
}
