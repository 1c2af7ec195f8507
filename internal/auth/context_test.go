package auth

import (
	"context"
	"testing"
)

func TestSubjectContextRoundTrip(t *testing.T) {
	ctx := WithSubject(context.Background(), Subject{Username: "alice"})

	sub, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected subject in context")
	}
	if sub.Username != "alice" {
		t.Errorf("username = %q, want %q", sub.Username, "alice")
	}
	if got := Username(ctx); got != "alice" {
		t.Errorf("Username = %q, want %q", got, "alice")
	}
}

func TestFromContextEmpty(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no subject in empty context")
	}
	if got := Username(context.Background()); got != "" {
		t.Errorf("Username = %q, want empty", got)
	}
}
