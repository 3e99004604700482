package document

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "exportgate/pkg/domain"
	"exportgate/pkg/domainerr"
	"exportgate/pkg/platform/audit"
	auditmemory "exportgate/pkg/platform/audit/store/memory"
	"exportgate/pkg/testutil"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	events  *auditmemory.InMemoryStore
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.events = auditmemory.NewInMemoryStore()
	s.service = NewService(s.store,
		WithAuditPublisher(audit.NewPublisher(s.events)),
	)
}

func (s *ServiceSuite) seed(state State) *Document {
	doc := &Document{
		ID:         id.DocumentID(uuid.New()),
		ShipmentID: id.ShipmentID(uuid.New()),
		Type:       id.DocTypeBillOfLading,
		State:      state,
		CreatedAt:  testNow.Add(-time.Hour),
		UpdatedAt:  testNow.Add(-time.Hour),
	}
	s.store.Seed(doc)
	return doc
}

func (s *ServiceSuite) TestTransition() {
	s.Run("legal transition succeeds and is audited", func() {
		doc := s.seed(StateDraft)
		ctx := testutil.ContextWithActor(id.RoleMember, testNow)

		updated, err := s.service.Transition(ctx, TransitionRequest{
			DocumentID: doc.ID,
			To:         StateUploaded,
			Reason:     "initial upload",
		})
		s.Require().NoError(err)
		s.Equal(StateUploaded, updated.State)
		s.Equal(testNow, updated.UpdatedAt)

		events, err := s.events.ListByShipment(context.Background(), doc.ShipmentID)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventDocumentTransitioned), events[0].Action)
		s.Equal(doc.ID, events[0].DocumentID)
	})

	s.Run("pair absent from the table is invalid", func() {
		doc := s.seed(StateUploaded)
		ctx := testutil.ContextWithActor(id.RoleAdmin, testNow)

		_, err := s.service.Transition(ctx, TransitionRequest{
			DocumentID: doc.ID,
			To:         StateApproved,
		})
		s.True(domainerr.HasCode(err, domainerr.CodeInvalidTransition))

		stored, _ := s.store.FindByID(context.Background(), doc.ID)
		s.Equal(StateUploaded, stored.State)
	})

	s.Run("unreachable target outranks table membership", func() {
		doc := s.seed(StateUploaded)
		ctx := testutil.ContextWithActor(id.RoleMember, testNow)

		// APPROVED needs compliance on every inbound edge, so a member gets
		// FORBIDDEN even though UPLOADED -> APPROVED is also not in the table.
		_, err := s.service.Transition(ctx, TransitionRequest{
			DocumentID: doc.ID,
			To:         StateApproved,
		})
		s.True(domainerr.HasCode(err, domainerr.CodeForbidden))

		stored, _ := s.store.FindByID(context.Background(), doc.ID)
		s.Equal(StateUploaded, stored.State)
	})

	s.Run("insufficient role is forbidden", func() {
		doc := s.seed(StateUploaded)
		ctx := testutil.ContextWithActor(id.RoleMember, testNow)

		_, err := s.service.Transition(ctx, TransitionRequest{
			DocumentID: doc.ID,
			To:         StateUnderReview,
		})
		s.True(domainerr.HasCode(err, domainerr.CodeForbidden))
	})

	s.Run("higher role satisfies a lower requirement", func() {
		doc := s.seed(StateUploaded)
		ctx := testutil.ContextWithActor(id.RoleAdmin, testNow)

		updated, err := s.service.Transition(ctx, TransitionRequest{
			DocumentID: doc.ID,
			To:         StateUnderReview,
		})
		s.Require().NoError(err)
		s.Equal(StateUnderReview, updated.State)
	})

	s.Run("stale expected state conflicts", func() {
		doc := s.seed(StateUploaded)
		ctx := testutil.ContextWithActor(id.RoleMember, testNow)

		_, err := s.service.Transition(ctx, TransitionRequest{
			DocumentID:    doc.ID,
			ExpectedState: StateDraft,
			To:            StateUploaded,
		})
		s.True(domainerr.HasCode(err, domainerr.CodeConflict))
	})

	s.Run("unknown document", func() {
		ctx := testutil.ContextWithActor(id.RoleMember, testNow)
		_, err := s.service.Transition(ctx, TransitionRequest{
			DocumentID: id.DocumentID(uuid.New()),
			To:         StateUploaded,
		})
		s.True(domainerr.HasCode(err, domainerr.CodeNotFound))
	})
}

// Two actors race the same transition; the store's expected-state check lets
// exactly one through.
func (s *ServiceSuite) TestConcurrentTransitionsOneWinner() {
	doc := s.seed(StateDraft)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := testutil.ContextWithActor(id.RoleMember, testNow)
			_, errs[i] = s.service.Transition(ctx, TransitionRequest{
				DocumentID:    doc.ID,
				ExpectedState: StateDraft,
				To:            StateUploaded,
			})
		}(i)
	}
	wg.Wait()

	winners, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case domainerr.HasCode(err, domainerr.CodeConflict):
			conflicts++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, winners)
	s.Equal(1, conflicts)

	transitions, err := s.store.ListTransitions(context.Background(), doc.ID)
	s.Require().NoError(err)
	s.Len(transitions, 1)
}

func (s *ServiceSuite) TestExpire() {
	s.Run("past expiry with system role", func() {
		doc := s.seed(StateUploaded)
		expiry := testNow.Add(-time.Minute)
		doc.ExpiresAt = &expiry
		s.store.Seed(doc)

		ctx := testutil.ContextWithActor(id.RoleSystem, testNow)
		updated, err := s.service.Expire(ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(StateExpired, updated.State)
	})

	s.Run("not yet expired", func() {
		doc := s.seed(StateUploaded)
		expiry := testNow.Add(time.Hour)
		doc.ExpiresAt = &expiry
		s.store.Seed(doc)

		ctx := testutil.ContextWithActor(id.RoleSystem, testNow)
		_, err := s.service.Expire(ctx, doc.ID)
		s.True(domainerr.HasCode(err, domainerr.CodeValidation))
	})

	s.Run("terminal state cannot expire", func() {
		doc := s.seed(StateArchived)
		expiry := testNow.Add(-time.Minute)
		doc.ExpiresAt = &expiry
		s.store.Seed(doc)

		ctx := testutil.ContextWithActor(id.RoleSystem, testNow)
		_, err := s.service.Expire(ctx, doc.ID)
		s.True(domainerr.HasCode(err, domainerr.CodeInvalidTransition))
	})

	s.Run("member role cannot expire", func() {
		doc := s.seed(StateUploaded)
		expiry := testNow.Add(-time.Minute)
		doc.ExpiresAt = &expiry
		s.store.Seed(doc)

		ctx := testutil.ContextWithActor(id.RoleMember, testNow)
		_, err := s.service.Expire(ctx, doc.ID)
		s.True(domainerr.HasCode(err, domainerr.CodeForbidden))
	})
}

func (s *ServiceSuite) TestHistoryReplaysToCurrentState() {
	doc := s.seed(StateDraft)

	steps := []struct {
		role id.Role
		to   State
	}{
		{id.RoleMember, StateUploaded},
		{id.RoleReviewer, StateUnderReview},
		{id.RoleReviewer, StateValidated},
		{id.RoleCompliance, StateComplianceOK},
	}
	for _, step := range steps {
		ctx := testutil.ContextWithActor(step.role, testNow)
		_, err := s.service.Transition(ctx, TransitionRequest{DocumentID: doc.ID, To: step.to})
		s.Require().NoError(err)
	}

	ctx := testutil.ContextWithActor(id.RoleMember, testNow)
	history, err := s.service.History(ctx, doc.ID)
	s.Require().NoError(err)
	s.Require().Len(history, len(steps))

	replayed, err := Replay(history)
	s.Require().NoError(err)

	current, err := s.store.FindByID(context.Background(), doc.ID)
	s.Require().NoError(err)
	s.Equal(current.State, replayed)
}

// The audit trail is fail-closed: when the audit write fails, the operation
// fails even though the store accepted the transition.
func (s *ServiceSuite) TestAuditFailureFailsTransition() {
	store := NewInMemoryStore()
	service := NewService(store,
		WithAuditPublisher(audit.NewPublisher(failingAuditStore{})),
	)
	doc := &Document{
		ID:         id.DocumentID(uuid.New()),
		ShipmentID: id.ShipmentID(uuid.New()),
		Type:       id.DocTypeBillOfLading,
		State:      StateDraft,
	}
	store.Seed(doc)

	ctx := testutil.ContextWithActor(id.RoleMember, testNow)
	_, err := service.Transition(ctx, TransitionRequest{DocumentID: doc.ID, To: StateUploaded})
	s.Error(err)
}

type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, audit.Event) error {
	return errors.New("audit sink unavailable")
}

func (failingAuditStore) ListByShipment(context.Context, id.ShipmentID) ([]audit.Event, error) {
	return nil, nil
}
