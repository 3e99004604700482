package auditpack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	packmetrics "exportgate/internal/auditpack/metrics"
	"exportgate/internal/decision"
	"exportgate/internal/document"
	"exportgate/internal/shipment"
	id "exportgate/pkg/domain"
	"exportgate/pkg/domainerr"
	"exportgate/pkg/platform/audit"
	"exportgate/pkg/platform/sentinel"
	platformtx "exportgate/pkg/platform/tx"
	"exportgate/pkg/requestcontext"
)

// ReportSource supplies the report of record for a shipment.
type ReportSource interface {
	LatestByShipment(ctx context.Context, shipmentID id.ShipmentID) (*decision.Report, error)
}

// OrganizationGate refuses generation for suspended organizations.
type OrganizationGate interface {
	RequireActive(ctx context.Context, orgID id.OrganizationID) error
}

// GenerationGuard serializes pack generation across processes. The store's
// status gate already serializes within one store; the guard extends it when
// multiple instances share a database but race on the window between gate
// checks. A nil guard disables the cross-process layer.
type GenerationGuard interface {
	Acquire(ctx context.Context, shipmentID id.ShipmentID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, shipmentID id.ShipmentID) error
}

// Assembler builds, signs and timestamps audit packs.
type Assembler struct {
	snapshots      shipment.SnapshotReader
	reports        ReportSource
	store          Store
	signer         Signer
	timestamper    Timestamper
	guard          GenerationGuard
	tx             platformtx.Runner
	orgs           OrganizationGate
	auditor        *audit.Publisher
	logger         *slog.Logger
	metrics        *packmetrics.Metrics
	tracer         trace.Tracer
	signingTimeout time.Duration
}

// Option configures the Assembler.
type Option func(*Assembler)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) { a.logger = logger }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(a *Assembler) { a.auditor = p }
}

func WithGenerationGuard(g GenerationGuard) Option {
	return func(a *Assembler) { a.guard = g }
}

func WithSigningTimeout(d time.Duration) Option {
	return func(a *Assembler) { a.signingTimeout = d }
}

func WithMetrics(m *packmetrics.Metrics) Option {
	return func(a *Assembler) { a.metrics = m }
}

// WithTxRunner makes the READY flip commit atomically with the pack-generated
// audit row. The default runner is a passthrough for in-memory stores.
func WithTxRunner(r platformtx.Runner) Option {
	return func(a *Assembler) { a.tx = r }
}

// WithOrganizationGate enables the suspended-organization check. A nil gate
// skips it.
func WithOrganizationGate(g OrganizationGate) Option {
	return func(a *Assembler) { a.orgs = g }
}

const (
	defaultSigningTimeout = 10 * time.Second
	tracerName            = "exportgate/auditpack"
)

func NewAssembler(snapshots shipment.SnapshotReader, reports ReportSource, store Store, signer Signer, timestamper Timestamper, opts ...Option) *Assembler {
	a := &Assembler{
		snapshots:      snapshots,
		reports:        reports,
		store:          store,
		signer:         signer,
		timestamper:    timestamper,
		tx:             platformtx.Nop{},
		tracer:         otel.Tracer(tracerName),
		signingTimeout: defaultSigningTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate assembles a new pack for the shipment. Only one generation per
// shipment runs at a time; a second request while one is in flight is
// rejected with GENERATION_IN_PROGRESS rather than queued. On signing or
// timestamping failure the prior pack and status are restored and the caller
// receives SIGNING_FAILED.
func (a *Assembler) Generate(ctx context.Context, shipmentID id.ShipmentID) (*Pack, error) {
	ctx, span := a.tracer.Start(ctx, "auditpack.Generate",
		trace.WithAttributes(attribute.String("shipment_id", shipmentID.String())))
	defer span.End()

	started := time.Now()

	if a.guard != nil {
		ok, err := a.guard.Acquire(ctx, shipmentID, a.signingTimeout*2)
		if err != nil {
			return nil, domainerr.Wrap(err, domainerr.CodeInternal, "generation guard unavailable")
		}
		if !ok {
			return nil, domainerr.New(domainerr.CodeGenerationInProgress, "pack generation already in progress")
		}
		// Release must run even when the caller has already given up, or the
		// lease blocks regeneration until its TTL expires.
		defer func() { _ = a.guard.Release(context.WithoutCancel(ctx), shipmentID) }()
	}

	prior, err := a.store.BeginGeneration(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, domainerr.New(domainerr.CodeGenerationInProgress, "pack generation already in progress")
		}
		return nil, domainerr.Wrap(err, domainerr.CodeInternal, "pack generation could not start")
	}

	pack, err := a.assemble(ctx, shipmentID)
	if err != nil {
		a.rollback(ctx, shipmentID, prior, err)
		return nil, err
	}

	// The READY flip and the pack-generated audit row commit as one unit; if
	// the audit record cannot be written, the generation did not happen.
	err = a.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := a.store.Complete(txCtx, pack); err != nil {
			return domainerr.Wrap(err, domainerr.CodeInternal, "pack persistence failed")
		}
		return a.emit(txCtx, shipmentID, audit.EventPackGenerated, string(pack.Decision), "")
	})
	if err != nil {
		a.rollback(ctx, shipmentID, prior, err)
		return nil, err
	}
	pack.Status = StatusReady

	if a.metrics != nil {
		a.metrics.ObserveGenerated(time.Since(started).Seconds())
	}
	if a.logger != nil {
		a.logger.InfoContext(ctx, "audit pack generated",
			"shipment_id", shipmentID,
			"document_count", pack.DocumentCount,
			"fingerprint", pack.Fingerprint,
		)
	}
	return pack, nil
}

// Get returns the current pack record, refreshing READY to OUTDATED first
// when the shipment has drifted since generation.
func (a *Assembler) Get(ctx context.Context, shipmentID id.ShipmentID) (*Pack, error) {
	if err := a.RefreshStatus(ctx, shipmentID); err != nil {
		return nil, err
	}
	pack, err := a.store.Get(ctx, shipmentID)
	if err != nil {
		return nil, domainerr.Wrap(err, domainerr.CodeInternal, "pack lookup failed")
	}
	return pack, nil
}

// RefreshStatus compares a READY pack's fingerprint against the shipment's
// current state and demotes it to OUTDATED on drift.
func (a *Assembler) RefreshStatus(ctx context.Context, shipmentID id.ShipmentID) error {
	pack, err := a.store.Get(ctx, shipmentID)
	if err != nil {
		return domainerr.Wrap(err, domainerr.CodeInternal, "pack lookup failed")
	}
	if pack.Status != StatusReady {
		return nil
	}

	current, err := a.currentFingerprint(ctx, shipmentID)
	if err != nil {
		return err
	}
	if !IsOutdated(pack, current) {
		return nil
	}

	if err := a.store.MarkOutdated(ctx, shipmentID); err != nil {
		return domainerr.Wrap(err, domainerr.CodeInternal, "pack status update failed")
	}
	if err := a.emit(ctx, shipmentID, audit.EventPackMarkedOutdated, "", ""); err != nil {
		return err
	}
	if a.metrics != nil {
		a.metrics.IncMarkedOutdated()
	}
	if a.logger != nil {
		a.logger.InfoContext(ctx, "audit pack marked outdated", "shipment_id", shipmentID)
	}
	return nil
}

func (a *Assembler) assemble(ctx context.Context, shipmentID id.ShipmentID) (*Pack, error) {
	snapshot, report, err := a.load(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	fingerprint, err := Fingerprint(snapshot.Documents, report.Summary)
	if err != nil {
		return nil, domainerr.Wrap(err, domainerr.CodeInternal, "fingerprint computation failed")
	}

	pack := &Pack{
		ShipmentID:    shipmentID,
		Status:        StatusReady,
		GeneratedAt:   requestcontext.Now(ctx),
		DocumentCount: len(snapshot.Documents),
		Items:         buildItems(snapshot.Documents, report),
		Decision:      report.Decision,
		Summary:       report.Summary,
		Fingerprint:   fingerprint,
	}

	payload, err := canonicalPayload(pack, report)
	if err != nil {
		return nil, domainerr.Wrap(err, domainerr.CodeInternal, "pack payload encoding failed")
	}

	signCtx, cancel := context.WithTimeout(ctx, a.signingTimeout)
	defer cancel()

	g, signCtx := errgroup.WithContext(signCtx)
	g.Go(func() error {
		signature, err := a.signer.Sign(signCtx, payload)
		if err != nil {
			return fmt.Errorf("sign pack: %w", err)
		}
		pack.Signature = signature
		return nil
	})
	g.Go(func() error {
		token, err := a.timestamper.Timestamp(signCtx, payload)
		if err != nil {
			return fmt.Errorf("timestamp pack: %w", err)
		}
		pack.TimestampToken = token
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, domainerr.Wrap(err, domainerr.CodeSigningFailed, "pack signing failed")
	}
	return pack, nil
}

func (a *Assembler) load(ctx context.Context, shipmentID id.ShipmentID) (*shipment.Snapshot, *decision.Report, error) {
	snapshot, err := a.snapshots.Snapshot(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, domainerr.New(domainerr.CodeNotFound, "shipment not found")
		}
		return nil, nil, domainerr.Wrap(err, domainerr.CodeInternal, "snapshot load failed")
	}
	if a.orgs != nil {
		if err := a.orgs.RequireActive(ctx, snapshot.Shipment.OrganizationID); err != nil {
			return nil, nil, err
		}
	}
	report, err := a.reports.LatestByShipment(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, domainerr.New(domainerr.CodeValidation, "shipment has no compliance report, evaluate it first")
		}
		return nil, nil, domainerr.Wrap(err, domainerr.CodeInternal, "report lookup failed")
	}
	return snapshot, report, nil
}

func (a *Assembler) currentFingerprint(ctx context.Context, shipmentID id.ShipmentID) (string, error) {
	snapshot, report, err := a.load(ctx, shipmentID)
	if err != nil {
		return "", err
	}
	fingerprint, err := Fingerprint(snapshot.Documents, report.Summary)
	if err != nil {
		return "", domainerr.Wrap(err, domainerr.CodeInternal, "fingerprint computation failed")
	}
	return fingerprint, nil
}

// buildItems lists the pack contents: one entry per document plus the
// decision report and the rule result listing.
func buildItems(docs []*document.Document, report *decision.Report) []Item {
	items := make([]Item, 0, len(docs)+2)
	for _, doc := range docs {
		items = append(items, Item{
			Name:         fmt.Sprintf("document-%s", doc.ID),
			Type:         "document",
			DocumentType: doc.Type,
		})
	}
	items = append(items,
		Item{Name: fmt.Sprintf("decision-report-v%d", report.Version), Type: "decision_report"},
		Item{Name: "rule-results", Type: "rule_results"},
	)
	return items
}

// canonicalPayload is the byte sequence submitted for signing and
// timestamping: the pack body plus the full report it freezes.
func canonicalPayload(pack *Pack, report *decision.Report) ([]byte, error) {
	return json.Marshal(struct {
		Pack   *Pack            `json:"pack"`
		Report *decision.Report `json:"report"`
	}{Pack: pack, Report: report})
}

// rollback returns the record to its pre-generation state. It runs detached
// from the caller's cancellation: a caller giving up mid-generation must not
// be able to wedge the record in GENERATING.
func (a *Assembler) rollback(ctx context.Context, shipmentID id.ShipmentID, prior *Pack, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := a.store.Restore(ctx, shipmentID, prior); err != nil && a.logger != nil {
		a.logger.ErrorContext(ctx, "pack status restore failed",
			"shipment_id", shipmentID, "error", err)
	}
	a.emitFailure(ctx, shipmentID, cause)
	if a.metrics != nil {
		a.metrics.IncFailed()
	}
}

func (a *Assembler) emitFailure(ctx context.Context, shipmentID id.ShipmentID, cause error) {
	reason := "generation failed"
	if domainerr.HasCode(cause, domainerr.CodeSigningFailed) {
		reason = "signing failed"
	}
	if err := a.emit(ctx, shipmentID, audit.EventPackGenerationFailed, "", reason); err != nil && a.logger != nil {
		a.logger.ErrorContext(ctx, "pack failure audit emit failed",
			"shipment_id", shipmentID, "error", err)
	}
}

func (a *Assembler) emit(ctx context.Context, shipmentID id.ShipmentID, action audit.Action, decided, reason string) error {
	if a.auditor == nil {
		return nil
	}
	return a.auditor.Emit(ctx, audit.Event{
		ShipmentID: shipmentID,
		ActorID:    requestcontext.ActorID(ctx),
		Action:     string(action),
		Decision:   decided,
		Reason:     reason,
		RequestID:  requestcontext.RequestID(ctx),
	})
}
