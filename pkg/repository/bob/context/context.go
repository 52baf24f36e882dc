package context

import (
	"context"

	"github.com/stephenafamo/bob"
)

type bobContextKey struct{}

func NewContext(ctx context.Context, executor bob.Executor) context.Context {
	return context.WithValue(ctx, bobContextKey{}, executor)
}

func FromContext(ctx context.Context) bob.Executor {
	if ctx == nil {
		return nil
	}
	if executor, ok := ctx.Value(bobContextKey{}).(bob.Executor); ok {
		return executor
	}
	return nil
}

// Executor returns the executor stored in ctx or fallback if there is none
func Executor(ctx context.Context, fallback bob.Executor) bob.Executor {
	if executor := FromContext(ctx); executor != nil {
		return executor
	}
	return fallback
}
