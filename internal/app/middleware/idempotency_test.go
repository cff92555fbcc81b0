package middleware_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/middleware"
	"deskrent/internal/infra/storage/memory"
)

type bookCmd struct {
	actor string
	key   string
}

func (bookCmd) Key() string              { return "test.book" }
func (c bookCmd) Actor() string          { return c.actor }
func (c bookCmd) IdempotencyKey() string { return c.key }
func (bookCmd) ResultPrototype() any     { return new(bookResult) }

type bookResult struct {
	ID string `json:"id"`
}

func newIdempotentBus(t *testing.T, handler func(ctx context.Context, cmd bookCmd) (bookResult, error)) commands.Bus {
	t.Helper()
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookCmd, bookResult](bus, commands.HandlerFunc[bookCmd, bookResult](handler))
	return middleware.ChainCommands(bus, middleware.Idempotency(memory.NewIdempotencyStore(0), nil))
}

func TestIdempotencyRunsHandlerOnceForConcurrentDuplicates(t *testing.T) {
	var runs atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	bus := newIdempotentBus(t, func(context.Context, bookCmd) (bookResult, error) {
		n := runs.Add(1)
		if n == 1 {
			close(started)
			<-release
		}
		return bookResult{ID: "r-1"}, nil
	})
	cmd := bookCmd{actor: "u-1", key: "same"}

	var wg sync.WaitGroup
	var first bookResult
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, firstErr = commands.Dispatch[bookCmd, bookResult](context.Background(), bus, cmd)
	}()
	<-started

	for i := 0; i < 3; i++ {
		_, err := commands.Dispatch[bookCmd, bookResult](context.Background(), bus, cmd)
		assert.ErrorIs(t, err, middleware.ErrIdempotencyInProgress)
	}
	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, "r-1", first.ID)

	replayed, err := commands.Dispatch[bookCmd, bookResult](context.Background(), bus, cmd)
	require.NoError(t, err)
	assert.Equal(t, "r-1", replayed.ID)
	assert.Equal(t, int32(1), runs.Load())
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	var runs atomic.Int32
	bus := newIdempotentBus(t, func(context.Context, bookCmd) (bookResult, error) {
		if runs.Add(1) == 1 {
			return bookResult{}, assert.AnError
		}
		return bookResult{ID: "r-2"}, nil
	})
	cmd := bookCmd{actor: "u-1", key: "retry"}

	_, err := commands.Dispatch[bookCmd, bookResult](context.Background(), bus, cmd)
	require.ErrorIs(t, err, assert.AnError)

	res, err := commands.Dispatch[bookCmd, bookResult](context.Background(), bus, cmd)
	require.NoError(t, err)
	assert.Equal(t, "r-2", res.ID)
	assert.Equal(t, int32(2), runs.Load())
}

func TestIdempotencyScopesKeysByActor(t *testing.T) {
	var runs atomic.Int32
	bus := newIdempotentBus(t, func(_ context.Context, cmd bookCmd) (bookResult, error) {
		runs.Add(1)
		return bookResult{ID: cmd.actor}, nil
	})

	a, err := commands.Dispatch[bookCmd, bookResult](context.Background(), bus, bookCmd{actor: "u-1", key: "k"})
	require.NoError(t, err)
	b, err := commands.Dispatch[bookCmd, bookResult](context.Background(), bus, bookCmd{actor: "u-2", key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", a.ID)
	assert.Equal(t, "u-2", b.ID)
	assert.Equal(t, int32(2), runs.Load())
}
