package engine

import (
	"context"
	"testing"

	"treesearch/environment"
	"treesearch/experiments/metrics"
	"treesearch/game"
	"treesearch/searcher"
	"treesearch/session"

	"github.com/stretchr/testify/require"
)

func countingConfig(target, moves int, seed int64) EpisodeConfig {
	return EpisodeConfig{
		Env:        game.CountingName,
		Params:     map[string]any{"target": target, "moves": moves},
		Iterations: 500,
		Seed:       seed,
	}
}

func sum(actions []environment.Action) int {
	total := 0
	for _, a := range actions {
		total += a.(int)
	}
	return total
}

func TestEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("episode reaches the target", func(t *testing.T) {
		ep, err := New(game.NewRegistry()).Run(ctx, countingConfig(6, 3, 0))
		require.NoError(t, err)
		require.True(t, ep.Success)
		require.Equal(t, 1.0, ep.Reward)
		require.Equal(t, 6, sum(ep.Actions))
		require.Len(t, ep.Steps, len(ep.Actions))
		require.Equal(t, 1, ep.Steps[0].Step)
		require.Equal(t, 500, ep.Steps[0].Visits)
		require.True(t, ep.Trace.Success)
		require.Equal(t, 1, ep.Trace.Answer)
		require.False(t, ep.End.Before(ep.Start))
	})

	t.Run("ops replay to the same answer", func(t *testing.T) {
		ep, err := New(game.NewRegistry()).Run(ctx, countingConfig(7, 4, 3))
		require.NoError(t, err)

		replay := session.New(game.NewRegistry()).Run(ctx, ep.Ops)
		require.True(t, replay.Success, replay.Error)
		require.Equal(t, ep.Trace.Answer, replay.Answer)
		require.Equal(t, ep.Trace.Vars[session.VarState], replay.Vars[session.VarState])
	})

	t.Run("step records carry search metrics on request", func(t *testing.T) {
		e := New(game.NewRegistry(), WithSessionOptions(session.WithSearchOptions(searcher.WithMetrics())))
		ep, err := e.Run(ctx, countingConfig(5, 3, 1))
		require.NoError(t, err)
		require.Equal(t, 500, ep.Steps[0].Iterations)
		require.Positive(t, ep.Steps[0].Nodes)
	})

	t.Run("observers see every move", func(t *testing.T) {
		var seen []metrics.StepRecord
		e := New(game.NewRegistry(), WithObserver(func(r metrics.StepRecord) { seen = append(seen, r) }))
		ep, err := e.Run(ctx, countingConfig(6, 3, 2))
		require.NoError(t, err)
		require.Equal(t, ep.Steps, seen)
	})

	t.Run("step cap stops the episode", func(t *testing.T) {
		cfg := countingConfig(10, 5, 1)
		cfg.MaxSteps = 1
		ep, err := New(game.NewRegistry()).Run(ctx, cfg)
		require.NoError(t, err)
		require.Len(t, ep.Actions, 1)
		require.False(t, ep.Success)
	})

	t.Run("unknown environment fails with the trace", func(t *testing.T) {
		ep, err := New(game.NewRegistry()).Run(ctx, EpisodeConfig{Env: "chess"})
		require.ErrorIs(t, err, environment.ErrUnknownEnvironment)
		require.False(t, ep.Trace.Success)
		require.Zero(t, ep.Trace.StepsExecuted)
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		_, err := New(game.NewRegistry()).Run(ctx, EpisodeConfig{})
		require.ErrorIs(t, err, environment.ErrConfiguration)
	})

	t.Run("episode record", func(t *testing.T) {
		ep, err := New(game.NewRegistry()).Run(ctx, countingConfig(3, 1, 2))
		require.NoError(t, err)
		rec := ep.Record(4, 2)
		require.Equal(t, 4, rec.ID)
		require.Equal(t, 2, rec.Config)
		require.Equal(t, 1, rec.Steps)
		require.True(t, rec.Success)
	})
}

func TestPlan(t *testing.T) {
	ops := Plan(countingConfig(6, 3, 10), 2)
	require.Len(t, ops, 7)
	require.Equal(t, session.KindInitSearch, ops[0].Kind())
	require.Equal(t, int64(11), *ops[1].(session.Search).Seed)
	require.Equal(t, session.Apply{ActionVar: "a2"}, ops[4])
	require.Equal(t, session.Query{Var: RewardVar}, ops[6])
}
