// Package searcher implements single-threaded Monte Carlo Tree Search over any
// environment.Environment, plus a worker pool for running searches off the
// caller's goroutine.
package searcher

import (
	"errors"
	"fmt"
	"math"

	"treesearch/environment"
	"treesearch/experiments/metrics"
	"treesearch/meta"
)

var ErrInvalidConfig = fmt.Errorf("%w: invalid search config", environment.ErrConfiguration)

type Config struct {
	Iterations  int     `json:"iterations" yaml:"iterations"`
	Exploration float64 `json:"exploration" yaml:"exploration"`
	// Seed makes a search reproducible. Nil seeds from the searcher's seed generator.
	Seed *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

func DefaultConfig() Config {
	return Config{Iterations: meta.SearchIterations, Exploration: meta.Exploration}
}

// EvaluateConfig is the default config for estimating a position's value.
func EvaluateConfig() Config {
	return Config{Iterations: meta.EvaluateIterations, Exploration: meta.Exploration}
}

func (c Config) Validate() error {
	var errs []error
	if c.Iterations < 1 {
		errs = append(errs, fmt.Errorf("iterations must be at least 1, got %d", c.Iterations))
	}
	if c.Exploration < 0 || math.IsNaN(c.Exploration) || math.IsInf(c.Exploration, 0) {
		errs = append(errs, fmt.Errorf("exploration must be a finite non-negative number, got %v", c.Exploration))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Seed returns a pointer to seed for use in Config.
func Seed(seed int64) *int64 {
	return &seed
}

type ActionStat struct {
	Action environment.Action `json:"action"`
	Visits int                `json:"visits"`
	Value  float64            `json:"value"` // mean reward
}

type Result struct {
	BestAction  environment.Action   `json:"best_action"`
	Visits      int                  `json:"visits"`
	Value       float64              `json:"value"`
	ActionStats []ActionStat         `json:"action_stats"`
	Metric      metrics.SearchMetric `json:"metric"`
}

// Empty reports whether the root had no legal actions.
func (r Result) Empty() bool {
	return r.BestAction == nil && r.Visits == 0
}

// Top returns at most n action stats, most visited first.
func (r Result) Top(n int) []ActionStat {
	if n > len(r.ActionStats) {
		n = len(r.ActionStats)
	}
	top := make([]ActionStat, n)
	copy(top, r.ActionStats[:n])
	return top
}
