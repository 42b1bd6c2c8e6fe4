package session

import (
	"context"
	"testing"

	"treesearch/game"
	"treesearch/searcher"

	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	t.Run("flat json form", func(t *testing.T) {
		ops, err := ParsePlan([]byte(`[
			{"op": "init_search", "env": "counting", "target": 6, "moves": 3},
			{"op": "search", "iterations": 200, "exploration": 0.5, "seed": 4, "var": "a1"},
			{"op": "apply", "action_var": "a1"},
			{"op": "evaluate", "iterations": 50, "var": "v"},
			{"op": "query", "var": "v"}
		]`))
		require.NoError(t, err)
		require.Equal(t, []Op{
			InitSearch{Env: "counting", Params: map[string]any{"target": 6.0, "moves": 3.0}},
			Search{Iterations: 200, Exploration: ptr(0.5), Seed: searcher.Seed(4), Var: "a1"},
			Apply{ActionVar: "a1"},
			Evaluate{Iterations: 50, Var: "v"},
			Query{Var: "v"},
		}, ops)
	})

	t.Run("keyed yaml form", func(t *testing.T) {
		ops, err := ParsePlan([]byte(`
- init_search:
    env: counting
    params:
      target: 6
- search:
    iterations: 100
- apply: 3
- evaluate:
- query: value
`))
		require.NoError(t, err)
		require.Equal(t, []Op{
			InitSearch{Env: "counting", Params: map[string]any{"target": 6}},
			Search{Iterations: 100},
			Apply{Action: 3.0},
			Evaluate{},
			Query{Var: "value"},
		}, ops)
	})

	t.Run("trace wrapper", func(t *testing.T) {
		ops, err := ParsePlan([]byte(`{"trace": [{"query": "x"}]}`))
		require.NoError(t, err)
		require.Equal(t, []Op{Query{Var: "x"}}, ops)
	})

	t.Run("rejects malformed plans", func(t *testing.T) {
		cases := map[string]string{
			"unknown op":           `[{"op": "teleport"}]`,
			"not a list":           `{"op": "search"}`,
			"step not an object":   `[1]`,
			"ambiguous keyed":      `[{"search": {}, "apply": {}}]`,
			"bad iterations":       `[{"op": "search", "iterations": -3}]`,
			"fractional seed":      `[{"op": "search", "seed": 1.5}]`,
			"negative exploration": `[{"op": "search", "exploration": -1}]`,
			"query without var":    `[{"op": "query"}]`,
			"init without env":     `[{"op": "init_search", "target": 3}]`,
			"reserved var":         `[{"op": "evaluate", "var": "_state"}]`,
			"broken json":          `[{"op": `,
		}
		for name, plan := range cases {
			_, err := ParsePlan([]byte(plan))
			require.ErrorIs(t, err, ErrInvalidOperation, name)
		}
	})

	t.Run("steps round trip", func(t *testing.T) {
		ops := []Op{
			initCounting(6, 3),
			Search{Iterations: 10, Seed: searcher.Seed(1), Var: "a"},
			Apply{ActionVar: "a"},
			Apply{Action: 2},
			Query{Var: "a"},
		}
		data, err := MarshalPlan(ops)
		require.NoError(t, err)

		parsed, err := ParsePlan(data)
		require.NoError(t, err)
		require.Len(t, parsed, len(ops))
		require.Equal(t, ops[1], parsed[1])
		require.Equal(t, ops[2], parsed[2])
		require.Equal(t, Apply{Action: 2.0}, parsed[3])
		require.Equal(t, "counting", parsed[0].(InitSearch).Env)
	})

	t.Run("parsed plan runs", func(t *testing.T) {
		ops, err := ParsePlan([]byte(`[
			{"op": "init_search", "env": "counting", "params": {"target": 3, "moves": 1}},
			{"op": "apply", "action": 3},
			{"op": "evaluate"},
			{"op": "query", "var": "value"}
		]`))
		require.NoError(t, err)

		trace := New(game.NewRegistry()).Run(context.Background(), ops)
		require.True(t, trace.Success, trace.Error)
		require.Equal(t, 1, trace.Answer)
	})
}

func ptr[T any](v T) *T {
	return &v
}
