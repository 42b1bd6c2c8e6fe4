package experiments

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"treesearch/engine"
	"treesearch/game"
	"treesearch/searcher"

	"github.com/stretchr/testify/require"
)

type failingRunner struct{}

func (failingRunner) Run(context.Context, engine.EpisodeConfig) (engine.Episode, error) {
	return engine.Episode{}, errors.New("no luck")
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("summarizes every config", func(t *testing.T) {
		report, err := Run(ctx, Setup{
			Name:     "sweep",
			Configs:  IterationSweep(game.CountingName, 3, 50, 400),
			Params:   map[string]any{"target": 6, "moves": 3},
			Parallel: 4,
			Runner:   engine.New(game.NewRegistry()),
		})
		require.NoError(t, err)
		require.Len(t, report.Summaries, 2)
		require.Len(t, report.Episodes, 6)
		for _, s := range report.Summaries {
			require.Equal(t, 3, s.Episodes)
			require.GreaterOrEqual(t, s.SuccessRate, 0.0)
			require.LessOrEqual(t, s.SuccessRate, 1.0)
			require.Positive(t, s.MeanSteps)
		}
		require.Equal(t, 1.0, report.Summaries[1].SuccessRate, "400 iterations should solve the small counting game")
		require.Empty(t, report.Dir)
	})

	t.Run("writes csv output", func(t *testing.T) {
		dir := t.TempDir()
		report, err := Run(ctx, Setup{
			Name:      "csv",
			Configs:   IterationSweep(game.CountingName, 1, 100),
			Params:    map[string]any{"target": 3, "moves": 1},
			OutputDir: dir,
			Runner:    engine.New(game.NewRegistry()),
		})
		require.NoError(t, err)
		require.NotEmpty(t, report.Dir)
		for _, name := range []string{"run_configs.csv", "episode_records.csv", "step_records.csv"} {
			_, err := os.Stat(filepath.Join(report.Dir, name))
			require.NoError(t, err, name)
		}
		require.Equal(t, 1, report.Steps[0].Episode)
	})

	t.Run("failed episode aborts", func(t *testing.T) {
		_, err := Run(ctx, Setup{Configs: IterationSweep("x", 2, 10), Runner: failingRunner{}})
		require.ErrorContains(t, err, "no luck")
	})

	t.Run("runner is required", func(t *testing.T) {
		_, err := Run(ctx, Setup{Name: "empty"})
		require.Error(t, err)
	})
}

func TestRunThroughput(t *testing.T) {
	cfg := searcher.Config{Iterations: 50, Exploration: 1.41, Seed: searcher.Seed(1)}
	results, err := RunThroughput(context.Background(), game.Counting{}, game.Counter{Target: 10, MovesLeft: 5}, cfg, 6, 1, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 2, results[1].Workers)
	require.Equal(t, 6, results[0].Searches)
	require.Positive(t, results[0].PerSecond)
}
