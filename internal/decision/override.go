package decision

import (
	"context"
	"errors"
	"strings"

	id "exportgate/pkg/domain"
	"exportgate/pkg/domainerr"
	"exportgate/pkg/platform/audit"
	"exportgate/pkg/platform/sentinel"
	"exportgate/pkg/requestcontext"
)

// ApplyOverride supersedes a non-approving decision with APPROVE. It layers a
// new report version atop the existing results; stored results are never
// edited, only flagged as overridden in the new version.
//
// Requirements: a trimmed reason of at least five characters, an actor
// holding an elevated role, and a latest decision that is not already
// APPROVE. The override itself is logged as a shipment-level audit event.
func (s *Service) ApplyOverride(ctx context.Context, shipmentID id.ShipmentID, reason string) (*Report, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < minOverrideReasonLen {
		return nil, domainerr.Newf(domainerr.CodeValidation,
			"override reason must be at least %d characters", minOverrideReasonLen)
	}

	role := requestcontext.ActorRole(ctx)
	if !role.IsElevated() {
		return nil, domainerr.New(domainerr.CodeForbidden, "override requires an elevated role")
	}

	latest, err := s.reports.LatestByShipment(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerr.New(domainerr.CodeNotFound, "no report to override")
		}
		return nil, domainerr.Wrap(err, domainerr.CodeInternal, "report lookup failed")
	}
	if latest.Decision == id.DecisionApprove {
		return nil, domainerr.New(domainerr.CodeValidation, "shipment is already approved, nothing to override")
	}

	now := requestcontext.Now(ctx)
	override := &Override{
		Reason:         reason,
		ActorID:        requestcontext.ActorID(ctx),
		CatalogVersion: latest.CatalogVersion,
		AppliedAt:      now,
	}

	report := Decide(latest.Results, override, latest.CatalogVersion, now)
	report.ID = id.NewReportID()
	report.ShipmentID = shipmentID
	report.Version = latest.Version + 1

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reports.Save(txCtx, report); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return domainerr.New(domainerr.CodeConflict, "report changed concurrently, reload and retry")
			}
			return domainerr.Wrap(err, domainerr.CodeInternal, "report persistence failed")
		}
		return s.emit(txCtx, shipmentID, audit.EventOverrideApplied, string(report.Decision), reason)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncOverrides()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "override applied",
			"shipment_id", shipmentID,
			"version", report.Version,
		)
	}
	return &report, nil
}
