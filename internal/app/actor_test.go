package app

import (
	"context"
	"testing"
)

func TestMutationActorContextRoundTrip(t *testing.T) {
	ctx := WithMutationActor(context.Background(), MutationActor{ActorID: "  planner-bot  ", ActorType: "AGENT"})
	actor, ok := MutationActorFromContext(ctx)
	if !ok {
		t.Fatal("expected actor in context")
	}
	if actor.ActorID != "planner-bot" || actor.ActorType != ActorTypeAgent {
		t.Fatalf("unexpected actor %#v", actor)
	}

	ctx = WithMutationActor(context.Background(), MutationActor{ActorID: "x", ActorType: "robot"})
	actor, _ = MutationActorFromContext(ctx)
	if actor.ActorType != ActorTypeUser {
		t.Fatalf("expected unknown type to normalize to user, got %q", actor.ActorType)
	}

	if _, ok := MutationActorFromContext(WithMutationActor(context.Background(), MutationActor{ActorID: " "})); ok {
		t.Fatal("expected blank actor id to be ignored")
	}
	if got := actorFromContext(context.Background()); got.ActorID != "local" || got.ActorType != ActorTypeUser {
		t.Fatalf("unexpected default actor %#v", got)
	}
}
