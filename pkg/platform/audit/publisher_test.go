package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "exportgate/pkg/domain"
	"exportgate/pkg/platform/audit"
	"exportgate/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func (failingStore) ListByShipment(context.Context, id.ShipmentID) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisherEmitAndList(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store)

	shipmentID := id.ShipmentID(uuid.New())
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		ShipmentID: shipmentID,
		Action:     string(audit.EventDecisionMade),
		Decision:   "APPROVE",
	}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		ShipmentID: shipmentID,
		Action:     string(audit.EventPackGenerated),
	}))

	events, err := pub.List(context.Background(), shipmentID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(audit.EventDecisionMade), events[0].Action)
	assert.Equal(t, string(audit.EventPackGenerated), events[1].Action)
}

func TestPublisherRequiresAnAction(t *testing.T) {
	pub := audit.NewPublisher(memory.NewInMemoryStore())
	err := pub.Emit(context.Background(), audit.Event{ShipmentID: id.ShipmentID(uuid.New())})
	assert.Error(t, err)
}

// A failed audit write must fail the calling operation.
func TestPublisherFailsClosed(t *testing.T) {
	pub := audit.NewPublisher(failingStore{})
	err := pub.Emit(context.Background(), audit.Event{
		ShipmentID: id.ShipmentID(uuid.New()),
		Action:     string(audit.EventDecisionMade),
	})
	assert.Error(t, err)
}

func TestPublisherSetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store)
	shipmentID := id.ShipmentID(uuid.New())

	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		ShipmentID: shipmentID,
		Action:     string(audit.EventDecisionMade),
	}))
	after := time.Now()

	events, err := pub.List(context.Background(), shipmentID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before))
	assert.False(t, events[0].Timestamp.After(after))
}

func TestPublisherPreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store)
	shipmentID := id.ShipmentID(uuid.New())
	stamped := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		ShipmentID: shipmentID,
		Action:     string(audit.EventDecisionMade),
		Timestamp:  stamped,
	}))

	events, err := pub.List(context.Background(), shipmentID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stamped, events[0].Timestamp)
}

func TestPublisherResolvesCategory(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store)
	shipmentID := id.ShipmentID(uuid.New())

	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		ShipmentID: shipmentID,
		Action:     string(audit.EventOverrideApplied),
	}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		ShipmentID: shipmentID,
		Action:     string(audit.EventPackMarkedOutdated),
	}))

	events, err := pub.List(context.Background(), shipmentID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, audit.CategoryOperations, events[1].Category)
}

func TestActionCategoryDefaultsToOperations(t *testing.T) {
	assert.Equal(t, audit.CategoryOperations, audit.Action("made_up_action").Category())
}
