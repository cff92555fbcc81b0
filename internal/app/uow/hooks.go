package uow

import (
	"context"
	"sync"
)

type hooksKey struct{}

type commitHooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

// WithCommitHooks prepares ctx to collect AfterCommit callbacks. The owner of the unit calls run
// after a successful commit and simply drops it on rollback.
func WithCommitHooks(ctx context.Context) (hooked context.Context, run func(context.Context)) {
	hooks := &commitHooks{}
	return context.WithValue(ctx, hooksKey{}, hooks), hooks.run
}

// AfterCommit defers fn until the unit bound to ctx commits. Outside a unit fn runs at once.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	hooks, ok := ctx.Value(hooksKey{}).(*commitHooks)
	if !ok {
		fn(ctx)
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}

func (h *commitHooks) run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}
