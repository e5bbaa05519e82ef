package services

import (
	"context"
	"time"
)

func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

// detachedContext outlives the request that started the work but is still
// bounded by timeout.
func detachedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(persistentContext(ctx), timeout)
}
