package searcher

import (
	"context"
	"testing"
	"time"

	"treesearch/environment"
	"treesearch/game"

	"github.com/stretchr/testify/require"
)

type panicEnv struct{ game.Counting }

func (panicEnv) Step(environment.State, environment.Action) (environment.State, error) {
	panic("kaboom")
}

func TestPool(t *testing.T) {
	t.Run("pooled search matches a direct search", func(t *testing.T) {
		pool := NewPool(2, 4)
		defer pool.Close()

		want, err := Search(game.Counting{}, counter(10, 5), seeded(200, 8))
		require.NoError(t, err)

		got, err := pool.Submit(game.Counting{}, counter(10, 5), seeded(200, 8)).Wait(context.Background())
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("submit never blocks on a full queue", func(t *testing.T) {
		pool := NewPool(1, 0)
		defer pool.Close()

		futures := make([]*Future, 8)
		for i := range futures {
			futures[i] = pool.Submit(game.Counting{}, counter(10, 5), seeded(50, int64(i)))
		}
		for _, f := range futures {
			_, err := f.Wait(context.Background())
			require.NoError(t, err)
		}
	})

	t.Run("abandoned wait still completes the search", func(t *testing.T) {
		pool := NewPool(1, 1)
		defer pool.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f := pool.Submit(game.Counting{}, counter(10, 5), seeded(100, 1))
		_, err := f.Wait(ctx)
		if err != nil {
			require.ErrorIs(t, err, context.Canceled)
		}

		select {
		case <-f.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("search did not complete")
		}
		result, err := f.Wait(context.Background())
		require.NoError(t, err)
		require.Equal(t, 100, result.Visits)
	})

	t.Run("panics become errors", func(t *testing.T) {
		pool := NewPool(1, 1)
		defer pool.Close()

		_, err := pool.Submit(panicEnv{}, counter(10, 5), seeded(10, 1)).Wait(context.Background())
		require.ErrorIs(t, err, ErrSearchPanic)
	})

	t.Run("closed pool rejects work", func(t *testing.T) {
		pool := NewPool(1, 1)
		pool.Close()
		pool.Close()

		_, err := pool.Submit(game.Counting{}, counter(10, 5), seeded(10, 1)).Wait(context.Background())
		require.ErrorIs(t, err, ErrPoolClosed)
	})

	t.Run("default pool is shared", func(t *testing.T) {
		require.Same(t, DefaultPool(), DefaultPool())

		result, err := SearchAsync(context.Background(), game.Counting{}, counter(3, 1), seeded(100, 2))
		require.NoError(t, err)
		require.Equal(t, 3, result.BestAction)
	})

	t.Run("invalid worker count panics", func(t *testing.T) {
		require.Panics(t, func() { NewPool(0, 1) })
	})
}
