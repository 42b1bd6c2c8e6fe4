package game

import (
	"testing"

	"treesearch/environment"

	"github.com/stretchr/testify/require"
)

func TestCounting(t *testing.T) {
	env := Counting{}

	t.Run("initial state uses defaults", func(t *testing.T) {
		state, err := env.Initial(map[string]any{})
		require.NoError(t, err)
		require.Equal(t, Counter{Value: 0, Target: 10, MovesLeft: 5}, state)
	})

	t.Run("initial state accepts decoded numbers and strings", func(t *testing.T) {
		state, err := env.Initial(map[string]any{"target": 6.0, "moves": "3"})
		require.NoError(t, err)
		require.Equal(t, Counter{Target: 6, MovesLeft: 3}, state)
	})

	t.Run("initial state rejects garbage", func(t *testing.T) {
		_, err := env.Initial(map[string]any{"target": "ten"})
		require.Error(t, err)
	})

	t.Run("actions are filtered by target", func(t *testing.T) {
		actions, err := env.Actions(Counter{Value: 8, Target: 10, MovesLeft: 2})
		require.NoError(t, err)
		require.Equal(t, []environment.Action{1, 2}, actions)
	})

	t.Run("no actions without moves", func(t *testing.T) {
		actions, err := env.Actions(Counter{Target: 10})
		require.NoError(t, err)
		require.Empty(t, actions)
	})

	t.Run("step does not mutate its input", func(t *testing.T) {
		before := Counter{Value: 1, Target: 10, MovesLeft: 3}
		after, err := env.Step(before, 2)
		require.NoError(t, err)
		require.Equal(t, Counter{Value: 3, Target: 10, MovesLeft: 2}, after)
		require.Equal(t, Counter{Value: 1, Target: 10, MovesLeft: 3}, before)
	})

	t.Run("step rejects non integer actions", func(t *testing.T) {
		_, err := env.Step(Counter{Target: 10, MovesLeft: 3}, "up")
		require.ErrorIs(t, err, ErrBadMove)
	})

	t.Run("terminal when target reached or moves exhausted", func(t *testing.T) {
		require.True(t, env.IsDone(Counter{Value: 10, Target: 10, MovesLeft: 1}))
		require.True(t, env.IsDone(Counter{Value: 3, Target: 10}))
		require.False(t, env.IsDone(Counter{Value: 3, Target: 10, MovesLeft: 1}))
	})

	t.Run("reward is proportional to closeness", func(t *testing.T) {
		require.Equal(t, 1.0, env.Reward(Counter{Value: 10, Target: 10}))
		require.InDelta(t, 0.7, env.Reward(Counter{Value: 7, Target: 10}), 1e-9)
		require.Equal(t, 1.0, env.Reward(Counter{Value: 0, Target: 0}))
		require.Equal(t, 0.0, env.Reward(Counter{Value: 2, Target: 0}))
	})
}

func TestRegister(t *testing.T) {
	reg := NewRegistry()
	env, err := reg.Get(CountingName)
	require.NoError(t, err, "counting should be registered")
	require.IsType(t, Counting{}, env)
}
