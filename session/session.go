// Package session drives repeated searches against an evolving environment
// state through a small operation vocabulary: init_search, search, apply,
// evaluate and query.
package session

import (
	"context"
	"fmt"
	"maps"
	"math"

	"treesearch/environment"
	"treesearch/experiments/metrics"
	"treesearch/meta"
	"treesearch/searcher"
	"treesearch/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Reserved variables.
const (
	VarEnv         = "_env"
	VarState       = "_state"
	VarSearchStats = "_search_stats"
)

// Diagnostics describes the latest search of a session.
type Diagnostics struct {
	BestAction environment.Action    `json:"best_action"`
	Visits     int                   `json:"visits"`
	Value      float64               `json:"value"`
	TopActions []searcher.ActionStat `json:"top_actions"`
	Metric     metrics.SearchMetric  `json:"metric"` // zero unless searches run with metrics
}

type Option func(s *Session)

// WithLogger sets the parent logger. The session ID is added as a field.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Session) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithSeedGenerator sets where unseeded searches get their seed from.
func WithSeedGenerator(seeds func() int64) Option {
	return WithSearchOptions(searcher.WithSeedGenerator(seeds))
}

// WithSearchOptions adds options to every search the session runs.
func WithSearchOptions(options ...searcher.Option) Option {
	return func(s *Session) {
		s.searchOptions = append(s.searchOptions, options...)
	}
}

// WithDefaults replaces the configs used when an op leaves fields unset.
func WithDefaults(search, evaluate searcher.Config) Option {
	return func(s *Session) {
		s.searchDefaults = search
		s.evaluateDefaults = evaluate
	}
}

// Session is a single-owner sequence of operations over one variable map.
// It is not safe for concurrent use.
type Session struct {
	id               uuid.UUID
	registry         *environment.Registry
	vars             map[string]any
	query            string
	logger           zerolog.Logger
	tracer           trace.Tracer
	searchOptions    []searcher.Option
	searchDefaults   searcher.Config
	evaluateDefaults searcher.Config
}

func New(registry *environment.Registry, options ...Option) *Session {
	if registry == nil {
		panic("session needs an environment registry")
	}
	id := uuid.New()
	s := &Session{ // Default values
		id:               id,
		registry:         registry,
		vars:             make(map[string]any),
		logger:           log.Logger,
		tracer:           otel.Tracer("treesearch/session"),
		searchDefaults:   searcher.DefaultConfig(),
		evaluateDefaults: searcher.EvaluateConfig(),
	}
	for _, option := range options {
		option(s)
	}
	s.logger = s.logger.With().Str("session", id.String()).Logger()
	return s
}

func (s *Session) ID() string {
	return s.id.String()
}

// Vars returns a shallow copy of the variable map.
func (s *Session) Vars() map[string]any {
	return maps.Clone(s.vars)
}

func (s *Session) Env() string {
	name, _ := s.vars[VarEnv].(string)
	return name
}

// State returns the current environment state, false before init_search.
func (s *Session) State() (environment.State, bool) {
	if s.Env() == "" {
		return nil, false
	}
	return s.vars[VarState], true
}

func (s *Session) Diagnostics() (Diagnostics, bool) {
	d, ok := s.vars[VarSearchStats].(Diagnostics)
	return d, ok
}

// Terminal reports whether the current state is terminal.
func (s *Session) Terminal() (bool, error) {
	env, state, err := s.active("terminal")
	if err != nil {
		return false, err
	}
	return env.IsDone(state), nil
}

// Answer resolves the queried variable. A float within meta.AnswerTolerance
// of an integer is reported as that integer. Nil when nothing was queried or
// the variable is absent.
func (s *Session) Answer() any {
	if s.query == "" {
		return nil
	}
	value, ok := s.vars[s.query]
	if !ok {
		return nil
	}
	if f, isFloat := value.(float64); isFloat {
		if r := math.Round(f); math.Abs(f-r) < meta.AnswerTolerance {
			return int(r)
		}
	}
	return value
}

// Execute runs one operation. A failed operation leaves the variable map as
// it was before the operation.
func (s *Session) Execute(ctx context.Context, op Op) error {
	kind := "invalid"
	if op != nil {
		kind = op.Kind()
	}
	_, span := s.tracer.Start(ctx, "session."+kind, trace.WithAttributes(
		attribute.String("session.id", s.ID()),
		attribute.String("session.env", s.Env()),
	))
	defer span.End()

	err := s.dispatch(op)
	metrics.ObserveOp(kind, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug().Err(err).Str("op", kind).Msg("operation failed")
		return err
	}
	s.logger.Debug().Str("op", kind).Msg("operation done")
	return nil
}

func (s *Session) dispatch(op Op) error {
	if err := validateOp(op); err != nil {
		return err
	}
	switch op := op.(type) {
	case InitSearch:
		return s.initSearch(op)
	case Search:
		return s.search(op)
	case Apply:
		return s.apply(op)
	case Evaluate:
		return s.evaluate(op)
	case Query:
		s.query = op.Var
		return nil
	default:
		return fmt.Errorf("%w: unsupported operation %T", ErrInvalidOperation, op)
	}
}

func (s *Session) initSearch(op InitSearch) error {
	env, err := s.registry.Get(op.Env)
	if err != nil {
		return err
	}
	state, err := environment.Initial(op.Env, env, op.Params)
	if err != nil {
		return err
	}

	s.vars[VarEnv] = op.Env
	s.vars[VarState] = state
	delete(s.vars, VarSearchStats)
	s.logger.Info().Str("env", op.Env).Interface("state", state).Msg("search initialized")
	return nil
}

func (s *Session) search(op Search) error {
	env, state, err := s.active(KindSearch)
	if err != nil {
		return err
	}

	cfg := s.searchDefaults
	if op.Iterations > 0 {
		cfg.Iterations = op.Iterations
	}
	if op.Exploration != nil {
		cfg.Exploration = *op.Exploration
	}
	cfg.Seed = op.Seed

	result, err := s.mcts().Search(env, state, cfg)
	if err != nil {
		return err
	}

	s.vars[or(op.Var, DefaultSearchVar)] = result.BestAction
	s.vars[VarSearchStats] = Diagnostics{
		BestAction: result.BestAction,
		Visits:     result.Visits,
		Value:      result.Value,
		TopActions: result.Top(meta.TopActions),
		Metric:     result.Metric,
	}
	return nil
}

func (s *Session) apply(op Apply) error {
	env, state, err := s.active(KindApply)
	if err != nil {
		return err
	}
	if env.IsDone(state) {
		return nil
	}

	action, err := s.resolveAction(op)
	if err != nil {
		return err
	}
	legal, err := environment.LegalActions(env, state)
	if err != nil {
		return err
	}
	idx := utils.FindIndexFunc(legal, func(a environment.Action) bool {
		return utils.SameValue(a, action)
	})
	if idx < 0 {
		return fmt.Errorf("%w: %v, legal: %v", ErrIllegalAction, action, legal)
	}

	next, err := environment.Advance(env, state, legal[idx])
	if err != nil {
		return err
	}
	s.vars[VarState] = next
	return nil
}

func (s *Session) resolveAction(op Apply) (environment.Action, error) {
	hasAction, hasVar := op.Action != nil, op.ActionVar != ""
	switch {
	case hasAction && hasVar:
		return nil, fmt.Errorf("%w: apply takes action or action_var, not both", ErrInvalidOperation)
	case hasAction:
		return op.Action, nil
	case hasVar:
		action, ok := s.vars[op.ActionVar]
		if !ok {
			return nil, fmt.Errorf("%w: %q not found", ErrMissingVariable, op.ActionVar)
		}
		if action == nil {
			return nil, fmt.Errorf("%w: no action in %q, the environment may be terminal", ErrMissingVariable, op.ActionVar)
		}
		return action, nil
	default:
		return nil, fmt.Errorf("%w: apply requires action or action_var", ErrInvalidOperation)
	}
}

func (s *Session) evaluate(op Evaluate) error {
	env, state, err := s.active(KindEvaluate)
	if err != nil {
		return err
	}
	name := or(op.Var, DefaultEvaluateVar)

	if env.IsDone(state) {
		s.vars[name] = env.Reward(state)
		return nil
	}

	cfg := s.evaluateDefaults
	if op.Iterations > 0 {
		cfg.Iterations = op.Iterations
	}
	cfg.Seed = op.Seed

	result, err := s.mcts().Search(env, state, cfg)
	if err != nil {
		return err
	}
	s.vars[name] = result.Value
	return nil
}

// active looks the environment up on every call so a re-registered
// environment takes effect immediately.
func (s *Session) active(kind string) (environment.Environment, environment.State, error) {
	name := s.Env()
	if name == "" {
		return nil, nil, fmt.Errorf("%w: %s before init_search", ErrPrecondition, kind)
	}
	env, err := s.registry.Get(name)
	if err != nil {
		return nil, nil, err
	}
	return env, s.vars[VarState], nil
}

func (s *Session) mcts() *searcher.MCTS {
	options := append([]searcher.Option{searcher.WithLabel(s.Env())}, s.searchOptions...)
	return searcher.NewMCTS(options...)
}
