// Package engine plays an environment from its initial state to the end,
// searching before every move.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"treesearch/environment"
	"treesearch/experiments/metrics"
	"treesearch/meta"
	"treesearch/searcher"
	"treesearch/session"
)

// RewardVar holds the final evaluation of an episode.
const RewardVar = "reward"

// Runner plays one episode.
type Runner interface {
	Run(ctx context.Context, cfg EpisodeConfig) (Episode, error)
}

type EpisodeConfig struct {
	Env    string         `json:"env" validate:"required"`
	Params map[string]any `json:"params,omitempty"`
	// Iterations per move. Zero uses the session default.
	Iterations int `json:"iterations,omitempty" validate:"gte=0"`
	// Exploration constant. Zero uses the session default.
	Exploration float64 `json:"exploration,omitempty" validate:"gte=0"`
	// Seed is the base seed: move i is searched with Seed+i.
	Seed int64 `json:"seed"`
	// MaxSteps caps the number of moves. Zero uses meta.MaxSteps.
	MaxSteps int `json:"max_steps,omitempty" validate:"gte=0"`
}

func (c EpisodeConfig) maxSteps() int {
	if c.MaxSteps > 0 {
		return c.MaxSteps
	}
	return meta.MaxSteps
}

func (c EpisodeConfig) search(step int) session.Search {
	op := session.Search{
		Iterations: c.Iterations,
		Seed:       searcher.Seed(c.Seed + int64(step)),
		Var:        actionVar(step),
	}
	if c.Exploration > 0 {
		exploration := c.Exploration
		op.Exploration = &exploration
	}
	return op
}

func (c EpisodeConfig) evaluate() session.Evaluate {
	return session.Evaluate{Seed: searcher.Seed(c.Seed), Var: RewardVar}
}

// Plan is the fixed operation list for an episode of at most steps moves.
// Trailing search/apply rounds are no-ops once the state is terminal.
func Plan(cfg EpisodeConfig, steps int) []session.Op {
	ops := []session.Op{session.InitSearch{Env: cfg.Env, Params: cfg.Params}}
	for step := 1; step <= steps; step++ {
		ops = append(ops, cfg.search(step), session.Apply{ActionVar: actionVar(step)})
	}
	return append(ops, cfg.evaluate(), session.Query{Var: RewardVar})
}

type Episode struct {
	ID      string               `json:"id"`
	Env     string               `json:"env"`
	Seed    int64                `json:"seed"`
	Ops     []session.Op         `json:"-"`
	Actions []environment.Action `json:"actions"`
	Steps   []metrics.StepRecord `json:"steps"`
	Reward  float64              `json:"reward"`
	Success bool                 `json:"success"`
	Trace   session.Trace        `json:"trace"`
	Start   time.Time            `json:"start"`
	End     time.Time            `json:"end"`
}

func (e Episode) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Record flattens the episode for CSV output.
func (e Episode) Record(id, config int) metrics.EpisodeRecord {
	return metrics.EpisodeRecord{
		ID:        id,
		Config:    config,
		Seed:      e.Seed,
		Steps:     len(e.Actions),
		Reward:    e.Reward,
		Success:   e.Success,
		StartTime: e.Start,
		EndTime:   e.End,
		Duration:  e.Duration(),
	}
}

func actionVar(step int) string {
	return fmt.Sprintf("a%d", step)
}

func solved(reward float64) bool {
	return math.Abs(reward-1) < meta.AnswerTolerance
}

func rewardOf(vars map[string]any) float64 {
	reward, _ := vars[RewardVar].(float64)
	return reward
}
