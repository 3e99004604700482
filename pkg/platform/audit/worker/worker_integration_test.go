//go:build integration

package worker

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	platformpostgres "exportgate/internal/platform/postgres"
	id "exportgate/pkg/domain"
	"exportgate/pkg/platform/audit"
	auditpostgres "exportgate/pkg/platform/audit/store/postgres"
	"exportgate/pkg/testutil/containers"
)

// The outbox contract: every committed row reaches the broker exactly once,
// keyed by shipment so per-shipment ordering survives partitioning.
func TestOutboxDrainPublishesToKafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pg := containers.NewPostgresContainer(t)
	require.NoError(t, platformpostgres.Apply(ctx, pg.Pool))

	db, err := sql.Open("postgres", pg.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rp := containers.NewRedpandaContainer(t)
	const topic = "exportgate.audit.test"
	require.NoError(t, EnsureTopic(ctx, rp.Client, topic, 1))

	store := auditpostgres.New(pg.Pool)
	shipmentID := id.ShipmentID(uuid.New())
	base := time.Now().UTC()
	for i, action := range []audit.Action{audit.EventDecisionMade, audit.EventPackGenerated} {
		require.NoError(t, store.Append(ctx, audit.Event{
			ShipmentID: shipmentID,
			ActorID:    id.ActorID(uuid.New()),
			Action:     string(action),
			Timestamp:  base.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	w := New(db, rp.Client, topic, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, w.drainOnce(ctx))

	var unpublished int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&unpublished))
	assert.Zero(t, unpublished, "drained rows must be marked published")

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	var records []*kgo.Record
	for len(records) < 2 {
		fetches := consumer.PollFetches(pollCtx)
		require.NoError(t, fetches.Err())
		records = append(records, fetches.Records()...)
	}
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, shipmentID.String(), string(rec.Key),
			"records are keyed by shipment for ordering")
	}

	// A second drain finds nothing left to publish.
	require.NoError(t, w.drainOnce(ctx))
	var total int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox`).Scan(&total))
	assert.Equal(t, 2, total)
}

func TestListByShipmentReadsBackOutboxRows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pg := containers.NewPostgresContainer(t)
	require.NoError(t, platformpostgres.Apply(ctx, pg.Pool))

	store := auditpostgres.New(pg.Pool)
	shipmentID := id.ShipmentID(uuid.New())
	actorID := id.ActorID(uuid.New())

	require.NoError(t, store.Append(ctx, audit.Event{
		ShipmentID: shipmentID,
		ActorID:    actorID,
		Action:     string(audit.EventOverrideApplied),
		Decision:   "APPROVE",
		Reason:     "manual review",
		Timestamp:  time.Now().UTC(),
	}))

	events, err := store.ListByShipment(ctx, shipmentID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventOverrideApplied), events[0].Action)
	assert.Equal(t, shipmentID, events[0].ShipmentID)
	assert.Equal(t, actorID, events[0].ActorID)
	assert.Equal(t, "manual review", events[0].Reason)
}
