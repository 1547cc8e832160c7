package app

import (
	"context"
	"strings"
)

// ActorType identifies the kind of caller that changed the form.
type ActorType string

// ActorTypeUser and related constants define supported actor kinds.
const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAgent  ActorType = "agent"
	ActorTypeSystem ActorType = "system"
)

// MutationActor carries normalized caller identity metadata for mutation attribution.
type MutationActor struct {
	ActorID   string
	ActorType ActorType
}

// WithMutationActor attaches normalized mutation-actor identity metadata to context.
func WithMutationActor(ctx context.Context, actor MutationActor) context.Context {
	actor = normalizeMutationActor(actor)
	return context.WithValue(ctx, mutationActorContextKey{}, actor)
}

// MutationActorFromContext returns normalized mutation-actor metadata when present.
func MutationActorFromContext(ctx context.Context) (MutationActor, bool) {
	raw := ctx.Value(mutationActorContextKey{})
	actor, ok := raw.(MutationActor)
	if !ok {
		return MutationActor{}, false
	}
	actor = normalizeMutationActor(actor)
	if actor.ActorID == "" {
		return MutationActor{}, false
	}
	return actor, true
}

// mutationActorContextKey stores context keys for mutation actor metadata.
type mutationActorContextKey struct{}

// actorFromContext resolves the actor recorded on a mutation, defaulting to the local user.
func actorFromContext(ctx context.Context) MutationActor {
	if actor, ok := MutationActorFromContext(ctx); ok {
		return actor
	}
	return MutationActor{ActorID: "local", ActorType: ActorTypeUser}
}

// normalizeMutationActor trims and canonicalizes mutation actor metadata.
func normalizeMutationActor(actor MutationActor) MutationActor {
	actor.ActorID = strings.TrimSpace(actor.ActorID)
	actor.ActorType = ActorType(strings.TrimSpace(strings.ToLower(string(actor.ActorType))))
	switch actor.ActorType {
	case ActorTypeUser, ActorTypeAgent, ActorTypeSystem:
	default:
		actor.ActorType = ActorTypeUser
	}
	return actor
}
