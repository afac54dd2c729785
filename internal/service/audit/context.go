package audit

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the staff member behind a request, as recorded on audit entries.
type Actor struct {
	UserID    uuid.UUID
	IPAddress string
	UserAgent string
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the request actor. Background jobs have none.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
