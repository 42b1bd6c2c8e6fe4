package engine

import (
	"context"
	"fmt"
	"time"

	"treesearch/environment"
	"treesearch/experiments/metrics"
	"treesearch/session"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type Option func(e *Engine)

// WithSessionOptions configures the session every episode runs in.
func WithSessionOptions(options ...session.Option) Option {
	return func(e *Engine) {
		e.sessionOptions = append(e.sessionOptions, options...)
	}
}

// WithObserver calls observe after every move, on the goroutine running the
// episode.
func WithObserver(observe func(metrics.StepRecord)) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, observe)
	}
}

// Engine plays episodes in-process through a session, so every episode
// leaves a replayable operation list.
type Engine struct {
	registry       *environment.Registry
	sessionOptions []session.Option
	observers      []func(metrics.StepRecord)
}

var _ Runner = (*Engine)(nil)

func New(registry *environment.Registry, options ...Option) *Engine {
	e := &Engine{registry: registry}
	for _, option := range options {
		option(e)
	}
	return e
}

// Run executes the entire episode loop until the state is terminal, no move
// is found or cfg's step cap is reached, then evaluates the final state.
func (e *Engine) Run(ctx context.Context, cfg EpisodeConfig) (Episode, error) {
	if err := validate.Struct(cfg); err != nil {
		return Episode{}, fmt.Errorf("%w: episode: %v", environment.ErrConfiguration, err)
	}

	s := session.New(e.registry, e.sessionOptions...)
	ep := Episode{ID: s.ID(), Env: cfg.Env, Seed: cfg.Seed, Start: time.Now()}

	exec := func(op session.Op) error {
		ep.Ops = append(ep.Ops, op)
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.Execute(ctx, op)
	}
	fail := func(err error) (Episode, error) {
		ep.End = time.Now()
		ep.Trace = s.Snapshot(len(ep.Ops)-1, err)
		return ep, ep.Trace.Err
	}

	if err := exec(session.InitSearch{Env: cfg.Env, Params: cfg.Params}); err != nil {
		return fail(err)
	}
	log.Info().Str("env", cfg.Env).Int64("seed", cfg.Seed).Msgf("episode %s is starting", ep.ID)

	for step := 1; step <= cfg.maxSteps(); step++ {
		done, err := s.Terminal()
		if err != nil {
			return fail(err)
		}
		if done {
			break
		}

		search := cfg.search(step)
		start := time.Now()
		if err := exec(search); err != nil {
			return fail(err)
		}
		elapsed := time.Since(start)

		diag, _ := s.Diagnostics()
		if diag.BestAction == nil {
			log.Warn().Int("step", step).Msg("no legal action, stopping episode")
			break
		}
		if err := exec(session.Apply{ActionVar: search.Var}); err != nil {
			return fail(err)
		}

		record := metrics.StepRecord{
			Step:         step,
			Action:       fmt.Sprint(diag.BestAction),
			Visits:       diag.Visits,
			Value:        diag.Value,
			SearchMetric: diag.Metric,
		}
		if record.Duration == 0 {
			record.Duration = elapsed
		}
		ep.Actions = append(ep.Actions, diag.BestAction)
		ep.Steps = append(ep.Steps, record)
		for _, observe := range e.observers {
			observe(record)
		}
		log.Debug().Int("step", step).Interface("action", diag.BestAction).Float64("value", diag.Value).Msg("move played")
	}

	if err := exec(cfg.evaluate()); err != nil {
		return fail(err)
	}
	if err := exec(session.Query{Var: RewardVar}); err != nil {
		return fail(err)
	}

	ep.End = time.Now()
	ep.Trace = s.Snapshot(len(ep.Ops), nil)
	ep.Reward = rewardOf(ep.Trace.Vars)
	ep.Success = solved(ep.Reward)

	log.Info().
		Str("env", cfg.Env).
		Int("moves", len(ep.Actions)).
		Float64("reward", ep.Reward).
		Dur("duration", ep.Duration()).
		Msgf("episode %s finished", ep.ID)
	return ep, nil
}
