package dispatch

import "context"

type depthKey struct{}

// WithDepth кладёт глубину вложенности workflow в контекст.
func WithDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

// DepthOf возвращает глубину вложенности из контекста (0, если не задана).
func DepthOf(ctx context.Context) int {
	if d, ok := ctx.Value(depthKey{}).(int); ok {
		return d
	}
	return 0
}
