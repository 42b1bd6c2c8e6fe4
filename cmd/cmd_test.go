package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"treesearch/game"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(game.NewRegistry())
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestEnvs(t *testing.T) {
	out, err := execute(t, "envs")
	require.NoError(t, err)
	require.Equal(t, game.CountingName+"\n", out)
}

func TestSearch(t *testing.T) {
	t.Run("prints the best action", func(t *testing.T) {
		out, err := execute(t, "search", "--env", "counting", "--param", "target=3", "--param", "moves=1", "--iterations", "200", "--seed", "7")
		require.NoError(t, err)
		require.Contains(t, out, "best action: 3")
	})

	t.Run("renders a chart", func(t *testing.T) {
		chart := filepath.Join(t.TempDir(), "visits.html")
		_, err := execute(t, "search", "--env", "counting", "--iterations", "100", "--seed", "1", "--chart", chart)
		require.NoError(t, err)
		data, err := os.ReadFile(chart)
		require.NoError(t, err)
		require.Contains(t, string(data), "Root visits")
	})

	t.Run("unknown environment", func(t *testing.T) {
		_, err := execute(t, "search", "--env", "chess")
		require.ErrorContains(t, err, "unknown environment")
	})

	t.Run("env flag is required", func(t *testing.T) {
		_, err := execute(t, "search")
		require.Error(t, err)
	})
}

func TestRun(t *testing.T) {
	plan := `
- init_search:
    env: counting
    params:
      target: 3
      moves: 1
- search:
    iterations: 200
    seed: 1
- apply:
    action_var: best_action
- evaluate:
    seed: 1
- query: value
`
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(plan), 0o644))

	t.Run("formatted", func(t *testing.T) {
		out, err := execute(t, "run", path)
		require.NoError(t, err)
		require.Equal(t, "1\n", out)
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "run", "--json", path)
		require.NoError(t, err)
		require.Contains(t, out, `"success": true`)
		require.Contains(t, out, `"steps_executed": 5`)
	})

	t.Run("failing plan returns the step error", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`[{"op": "search"}]`), 0o644))
		_, err := execute(t, "run", bad)
		require.ErrorContains(t, err, "step 0")
	})

	t.Run("record needs a store", func(t *testing.T) {
		t.Setenv("TREESEARCH_STORE_IN_MEMORY", "true")
		_, err := execute(t, "run", "--record", path)
		require.NoError(t, err)
	})
}

func TestPlay(t *testing.T) {
	out, err := execute(t, "play", "--env", "counting", "--param", "target=6", "--param", "moves=3", "--iterations", "500")
	require.NoError(t, err)
	require.Contains(t, out, "solved")
	require.NotContains(t, out, "unsolved")
}

func TestBench(t *testing.T) {
	t.Run("iteration sweep", func(t *testing.T) {
		dir := t.TempDir()
		out, err := execute(t, "bench", "--env", "counting", "--param", "target=3", "--param", "moves=1",
			"--iterations", "50,200", "--games", "2", "--parallel", "2", "--out", dir)
		require.NoError(t, err)
		require.Contains(t, out, "mean reward")
		require.Contains(t, out, "records written to")
	})

	t.Run("pool throughput", func(t *testing.T) {
		out, err := execute(t, "bench", "--env", "counting", "--iterations", "20", "--workers", "1,2", "--searches", "4")
		require.NoError(t, err)
		require.Contains(t, out, "searches/s")
	})
}

func TestScalar(t *testing.T) {
	require.Equal(t, 3, scalar("3"))
	require.Equal(t, 0.5, scalar("0.5"))
	require.Equal(t, true, scalar("true"))
	require.Equal(t, "x", scalar("x"))
}

func TestLogLevelValidation(t *testing.T) {
	root := NewRootCommand(game.NewRegistry())
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--log-level", "loud", "envs"})
	require.Error(t, root.Execute())
}
