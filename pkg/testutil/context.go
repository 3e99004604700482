// Package testutil provides request-context helpers shared across test
// suites. Tests build contexts the same way the auth middleware would.
package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "exportgate/pkg/domain"
	"exportgate/pkg/requestcontext"
)

// ContextWithActor returns a context carrying an authenticated actor with the
// given role, a fresh request ID, and a fixed request time.
func ContextWithActor(role id.Role, now time.Time) context.Context {
	ctx := requestcontext.WithActorID(context.Background(), id.ActorID(uuid.New()))
	ctx = requestcontext.WithActorRole(ctx, role)
	ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
	return requestcontext.WithTime(ctx, now)
}

// ContextWithActorID is ContextWithActor with a caller-chosen actor id, for
// tests that assert on the actor recorded in transitions or audit events.
func ContextWithActorID(actorID id.ActorID, role id.Role, now time.Time) context.Context {
	ctx := requestcontext.WithActorID(context.Background(), actorID)
	ctx = requestcontext.WithActorRole(ctx, role)
	ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
	return requestcontext.WithTime(ctx, now)
}
