package document

import (
	"context"
	"errors"
	"log/slog"

	id "exportgate/pkg/domain"
	"exportgate/pkg/domainerr"
	"exportgate/pkg/platform/audit"
	"exportgate/pkg/platform/sentinel"
	platformtx "exportgate/pkg/platform/tx"
	"exportgate/pkg/requestcontext"
)

// Service enforces the document state machine. Every successful transition
// appends an immutable Transition record; the document's current state is
// always the fold of its transition log.
type Service struct {
	store   Store
	tx      platformtx.Runner
	auditor *audit.Publisher
	logger  *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

// WithTxRunner makes each transition commit atomically with its audit outbox
// row. The default runner is a passthrough for in-memory stores.
func WithTxRunner(r platformtx.Runner) Option {
	return func(s *Service) { s.tx = r }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, tx: platformtx.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransitionRequest asks to move a document to a new state. ExpectedState is
// the state the caller observed; it guards against acting on stale reads.
type TransitionRequest struct {
	DocumentID    id.DocumentID
	ExpectedState State
	To            State
	Reason        string
	Metadata      map[string]string
}

// Transition validates and applies a state change. The actor and role come
// from the request context (resolved by the identity collaborator).
//
// Errors: CodeForbidden when the role cannot perform the requested edge, or
// cannot reach the target state by any edge at all; CodeInvalidTransition for
// a (from, to) pair absent from the table; CodeConflict when the document's
// state no longer matches ExpectedState. Insufficient privilege for the
// target wins over table membership, so a member asking for APPROVED hears
// FORBIDDEN, not a hint about which edges exist. Nothing is mutated on any
// failure path.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*Document, error) {
	doc, err := s.store.FindByID(ctx, req.DocumentID)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	from := req.ExpectedState
	if from == "" {
		from = doc.State
	}

	role := requestcontext.ActorRole(ctx)
	required, legal := RequiredRole(from, req.To)
	if !legal {
		if least, reachable := MinimumRoleInto(req.To); reachable && !role.Satisfies(least) {
			return nil, domainerr.Newf(domainerr.CodeForbidden,
				"reaching %s requires role %s", req.To, least)
		}
		return nil, domainerr.Newf(domainerr.CodeInvalidTransition,
			"no transition from %s to %s", from, req.To)
	}
	if !role.Satisfies(required) {
		return nil, domainerr.Newf(domainerr.CodeForbidden,
			"transition %s to %s requires role %s", from, req.To, required)
	}

	actor := requestcontext.ActorID(ctx)
	tr := Transition{
		ID:         id.NewTransitionID(),
		DocumentID: req.DocumentID,
		From:       from,
		To:         req.To,
		ActorID:    actor,
		Reason:     req.Reason,
		Metadata:   req.Metadata,
		Timestamp:  requestcontext.Now(ctx),
	}
	// The transition row and its audit record commit as one unit; a mutation
	// without its audit trail must not survive a crash between the two.
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.AppendTransition(txCtx, tr); err != nil {
			return translateStoreErr(err)
		}
		return s.emit(txCtx, doc.ShipmentID, req.DocumentID, audit.EventDocumentTransitioned, req.Reason)
	})
	if err != nil {
		return nil, err
	}

	doc.State = req.To
	doc.UpdatedAt = tr.Timestamp
	return doc, nil
}

// Expire moves a document to EXPIRED. It is legal from any non-terminal state
// but only when the expiry predicate holds at the request time. The caller is
// a scheduled sweep running with the system role.
func (s *Service) Expire(ctx context.Context, documentID id.DocumentID) (*Document, error) {
	doc, err := s.store.FindByID(ctx, documentID)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	now := requestcontext.Now(ctx)
	if doc.State.IsTerminal() {
		return nil, domainerr.Newf(domainerr.CodeInvalidTransition,
			"document in terminal state %s cannot expire", doc.State)
	}
	if !IsExpired(doc, now) {
		return nil, domainerr.New(domainerr.CodeValidation, "document is not past its expiry date")
	}
	if role := requestcontext.ActorRole(ctx); !role.Satisfies(id.RoleSystem) && !role.Satisfies(id.RoleAdmin) {
		return nil, domainerr.New(domainerr.CodeForbidden, "expiry requires the system or admin role")
	}

	tr := Transition{
		ID:         id.NewTransitionID(),
		DocumentID: documentID,
		From:       doc.State,
		To:         StateExpired,
		ActorID:    requestcontext.ActorID(ctx),
		Reason:     "document expired",
		Timestamp:  now,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.AppendTransition(txCtx, tr); err != nil {
			return translateStoreErr(err)
		}
		return s.emit(txCtx, doc.ShipmentID, documentID, audit.EventDocumentExpired, "")
	})
	if err != nil {
		return nil, err
	}

	doc.State = StateExpired
	doc.UpdatedAt = now
	return doc, nil
}

// History returns the document's transition log, oldest first.
func (s *Service) History(ctx context.Context, documentID id.DocumentID) ([]Transition, error) {
	if _, err := s.store.FindByID(ctx, documentID); err != nil {
		return nil, translateStoreErr(err)
	}
	return s.store.ListTransitions(ctx, documentID)
}

func (s *Service) emit(ctx context.Context, shipmentID id.ShipmentID, documentID id.DocumentID, action audit.Action, reason string) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Event{
		ShipmentID: shipmentID,
		DocumentID: documentID,
		ActorID:    requestcontext.ActorID(ctx),
		Action:     string(action),
		Reason:     reason,
		RequestID:  requestcontext.RequestID(ctx),
	})
}

func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return domainerr.New(domainerr.CodeNotFound, "document not found")
	case errors.Is(err, sentinel.ErrConflict):
		return domainerr.New(domainerr.CodeConflict, "document state changed concurrently, reload and retry")
	default:
		return domainerr.Wrap(err, domainerr.CodeInternal, "document store failure")
	}
}
