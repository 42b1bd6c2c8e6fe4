package engine_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"treesearch/engine"
	"treesearch/game"
	"treesearch/searcher"
	"treesearch/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func remoteConfig(target, moves int, seed int64) engine.EpisodeConfig {
	return engine.EpisodeConfig{
		Env:        game.CountingName,
		Params:     map[string]any{"target": target, "moves": moves},
		Iterations: 500,
		Seed:       seed,
	}
}

func TestRemote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pool := searcher.NewPool(1, 1)
	defer pool.Close()

	ts := httptest.NewServer(server.New(game.NewRegistry(), pool).Handler())
	defer ts.Close()

	t.Run("remote episode matches a local one", func(t *testing.T) {
		cfg := remoteConfig(6, 3, 0)
		cfg.MaxSteps = 4

		local, err := engine.New(game.NewRegistry()).Run(context.Background(), cfg)
		require.NoError(t, err)

		remote, err := engine.NewRemote(ts.URL+"/").Run(context.Background(), cfg)
		require.NoError(t, err)
		require.True(t, remote.Success)
		require.Equal(t, local.Reward, remote.Reward)
		require.Len(t, remote.Actions, len(local.Actions))
		for i := range local.Actions {
			require.EqualValues(t, local.Actions[i], remote.Actions[i])
		}
	})

	t.Run("remote failure is reported", func(t *testing.T) {
		_, err := engine.NewRemote(ts.URL).Run(context.Background(), engine.EpisodeConfig{Env: "chess"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown environment")
	})
}
