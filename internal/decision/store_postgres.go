package decision

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

// PostgresStore persists report history in PostgreSQL. The version discipline
// rides on a unique (shipment_id, version) constraint plus a guard that the
// new version extends the current maximum.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, report Report) error {
	results, err := json.Marshal(report.Results)
	if err != nil {
		return fmt.Errorf("marshal report results: %w", err)
	}
	var override []byte
	if report.Override != nil {
		if override, err = json.Marshal(report.Override); err != nil {
			return fmt.Errorf("marshal report override: %w", err)
		}
	}

	// The INSERT only fires when the report extends the current history tip,
	// so a lost race inserts zero rows instead of forking the history. It runs
	// on the context transaction when the service opened one.
	tag, err := txcontext.Executor(ctx, s.pool).Exec(ctx, `
		INSERT INTO compliance_reports
			(id, shipment_id, decision, total, passed, failed, warnings,
			 results, override, catalog_version, version, generated_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		WHERE $11 = 1 + COALESCE(
			(SELECT MAX(version) FROM compliance_reports WHERE shipment_id = $2), 0)
	`, report.ID.String(), report.ShipmentID.String(), string(report.Decision),
		report.Summary.Total, report.Summary.Passed, report.Summary.Failed,
		report.Summary.Warnings, results, override, report.CatalogVersion,
		report.Version, report.GeneratedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) LatestByShipment(ctx context.Context, shipmentID id.ShipmentID) (*Report, error) {
	row := s.pool.QueryRow(ctx, reportQuery+`
		WHERE shipment_id = $1 ORDER BY version DESC LIMIT 1
	`, shipmentID.String())
	report, err := scanReport(row)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *PostgresStore) ListByShipment(ctx context.Context, shipmentID id.ShipmentID) ([]Report, error) {
	rows, err := s.pool.Query(ctx, reportQuery+`
		WHERE shipment_id = $1 ORDER BY version ASC
	`, shipmentID.String())
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

const reportQuery = `
	SELECT id, shipment_id, decision, total, passed, failed, warnings,
	       results, override, catalog_version, version, generated_at
	FROM compliance_reports
`

func scanReport(row pgx.Row) (*Report, error) {
	var (
		report           Report
		reportID, shipID string
		decision         string
		results          []byte
		override         []byte
	)
	err := row.Scan(&reportID, &shipID, &decision,
		&report.Summary.Total, &report.Summary.Passed, &report.Summary.Failed,
		&report.Summary.Warnings, &results, &override, &report.CatalogVersion,
		&report.Version, &report.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	if parsed, err := id.ParseShipmentID(shipID); err == nil {
		report.ShipmentID = parsed
	}
	if parsed, err := id.ParseReportID(reportID); err == nil {
		report.ID = parsed
	}
	report.Decision = id.Decision(decision)
	if len(results) > 0 {
		if err := json.Unmarshal(results, &report.Results); err != nil {
			return nil, fmt.Errorf("unmarshal report results: %w", err)
		}
	}
	if len(override) > 0 {
		report.Override = &Override{}
		if err := json.Unmarshal(override, report.Override); err != nil {
			return nil, fmt.Errorf("unmarshal report override: %w", err)
		}
	}
	return &report, nil
}
