package decision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	decisionmetrics "exportgate/internal/decision/metrics"
	"exportgate/internal/regime"
	"exportgate/internal/rules"
	"exportgate/internal/shipment"
	id "exportgate/pkg/domain"
	"exportgate/pkg/domainerr"
	"exportgate/pkg/platform/audit"
	"exportgate/pkg/platform/sentinel"
	platformtx "exportgate/pkg/platform/tx"
	"exportgate/pkg/requestcontext"
)

const tracerName = "exportgate/decision"

// OrganizationGate refuses operations for suspended organizations.
type OrganizationGate interface {
	RequireActive(ctx context.Context, orgID id.OrganizationID) error
}

// Service orchestrates a full shipment evaluation: snapshot, regime
// resolution, rule evaluation, aggregation, persistence, audit.
type Service struct {
	snapshots shipment.SnapshotReader
	reports   Store
	catalog   []rules.Rule
	tx        platformtx.Runner
	orgs      OrganizationGate
	auditor   *audit.Publisher
	logger    *slog.Logger
	metrics   *decisionmetrics.Metrics
	tracer    trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *decisionmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithOrganizationGate enables the suspended-organization check. A nil gate
// skips it.
func WithOrganizationGate(g OrganizationGate) Option {
	return func(s *Service) { s.orgs = g }
}

// WithTxRunner makes each report commit atomically with its audit outbox row.
// The default runner is a passthrough for in-memory stores.
func WithTxRunner(r platformtx.Runner) Option {
	return func(s *Service) { s.tx = r }
}

func NewService(snapshots shipment.SnapshotReader, reports Store, catalog []rules.Rule, opts ...Option) *Service {
	s := &Service{
		snapshots: snapshots,
		reports:   reports,
		catalog:   catalog,
		tx:        platformtx.Nop{},
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate runs the active rule set for a shipment and persists a new report
// version. A still-valid override on the previous report carries into the new
// one, superseding the verdict but not the results.
//
// Concurrent evaluations of the same shipment are serialized by the report
// version discipline: the loser receives CodeConflict and may retry.
func (s *Service) Evaluate(ctx context.Context, shipmentID id.ShipmentID) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "decision.Evaluate",
		trace.WithAttributes(attribute.String("shipment_id", shipmentID.String())))
	defer span.End()

	started := time.Now()

	snapshot, err := s.snapshots.Snapshot(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerr.New(domainerr.CodeNotFound, "shipment not found")
		}
		return nil, domainerr.Wrap(err, domainerr.CodeInternal, "snapshot load failed")
	}

	if s.orgs != nil {
		if err := s.orgs.RequireActive(ctx, snapshot.Shipment.OrganizationID); err != nil {
			return nil, err
		}
	}

	desc := regime.Resolve(snapshot.PrimaryClassification())
	active := rules.ActiveFor(desc, s.catalog)

	now := requestcontext.Now(ctx)
	results := rules.Evaluate(snapshot, active, now)

	prior, previousVersion, err := s.latest(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	var override *Override
	if prior != nil {
		override = prior.Override
	}

	report := Decide(results, override, rules.Version, now)
	report.ID = id.NewReportID()
	report.ShipmentID = shipmentID
	report.Version = previousVersion + 1

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reports.Save(txCtx, report); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return domainerr.New(domainerr.CodeConflict, "report version conflict, retry evaluation")
			}
			return domainerr.Wrap(err, domainerr.CodeInternal, "report persistence failed")
		}
		return s.emit(txCtx, shipmentID, audit.EventDecisionMade, string(report.Decision), "")
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveDecision(string(report.Decision), time.Since(started).Seconds())
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "decision made",
			"shipment_id", shipmentID,
			"decision", report.Decision,
			"version", report.Version,
			"regime", desc.Name,
		)
	}
	return &report, nil
}

// Latest returns the shipment's report of record.
func (s *Service) Latest(ctx context.Context, shipmentID id.ShipmentID) (*Report, error) {
	report, err := s.reports.LatestByShipment(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerr.New(domainerr.CodeNotFound, "no report for shipment")
		}
		return nil, domainerr.Wrap(err, domainerr.CodeInternal, "report lookup failed")
	}
	return report, nil
}

// History returns every retained report version for a shipment, oldest first.
func (s *Service) History(ctx context.Context, shipmentID id.ShipmentID) ([]Report, error) {
	return s.reports.ListByShipment(ctx, shipmentID)
}

func (s *Service) latest(ctx context.Context, shipmentID id.ShipmentID) (*Report, int, error) {
	report, err := s.reports.LatestByShipment(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, 0, nil
		}
		return nil, 0, domainerr.Wrap(err, domainerr.CodeInternal, "report lookup failed")
	}
	return report, report.Version, nil
}

func (s *Service) emit(ctx context.Context, shipmentID id.ShipmentID, action audit.Action, decision, reason string) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Event{
		ShipmentID: shipmentID,
		ActorID:    requestcontext.ActorID(ctx),
		Action:     string(action),
		Decision:   decision,
		Reason:     reason,
		RequestID:  requestcontext.RequestID(ctx),
	})
}
