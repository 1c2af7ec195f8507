package auth

import "context"

type contextKey struct{}

func WithSubject(ctx context.Context, sub Subject) context.Context {
	return context.WithValue(ctx, contextKey{}, sub)
}

func FromContext(ctx context.Context) (Subject, bool) {
	sub, ok := ctx.Value(contextKey{}).(Subject)
	return sub, ok
}

func Username(ctx context.Context) string {
	sub, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return sub.Username
}
