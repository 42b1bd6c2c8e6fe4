package searcher

import (
	"slices"
	"time"

	"treesearch/environment"
	"treesearch/experiments/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

type Option func(mcts *MCTS)

// MCTS holds search settings. It keeps no per-search state, so one value can
// serve concurrent searches.
type MCTS struct {
	rollout     RolloutPolicy
	seeds       func() int64
	withMetrics bool
	label       string
}

func WithRolloutPolicy(policy RolloutPolicy) Option {
	return func(m *MCTS) {
		if policy != nil {
			m.rollout = policy
		}
	}
}

// WithMetrics fills Result.Metric and reports searches to Prometheus.
func WithMetrics() Option {
	return func(m *MCTS) {
		m.withMetrics = true
	}
}

// WithSeedGenerator sets where unseeded searches get their seed from.
func WithSeedGenerator(seeds func() int64) Option {
	return func(m *MCTS) {
		if seeds != nil {
			m.seeds = seeds
		}
	}
}

// WithLabel names the environment in logs and metrics.
func WithLabel(label string) Option {
	return func(m *MCTS) {
		m.label = label
	}
}

func NewMCTS(options ...Option) *MCTS {
	m := &MCTS{ // Default values
		rollout: UniformRollout,
		seeds:   func() int64 { return time.Now().UnixNano() },
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Search runs MCTS from state with a fresh tree and a fresh generator.
func Search(env environment.Environment, state environment.State, cfg Config, options ...Option) (Result, error) {
	return NewMCTS(options...).Search(env, state, cfg)
}

// Search runs cfg.Iterations select/expand/rollout/backup rounds from state.
// A terminal root or one without legal actions yields an empty Result and no
// error. Environment failures abort the search and are returned as
// *environment.Error.
func (m *MCTS) Search(env environment.Environment, state environment.State, cfg Config) (Result, error) {
	var untried []environment.Action
	if !env.IsDone(state) {
		actions, err := environment.LegalActions(env, state)
		if err != nil {
			return Result{}, m.fail(err)
		}
		untried = slices.Clone(actions)
	}
	if len(untried) == 0 {
		return Result{}, nil
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	seed := m.seeds()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	rng := rand.New(rand.NewSource(uint64(seed)))

	collector := metrics.NewDummyCollector()
	if m.withMetrics {
		collector = metrics.NewCollector()
	}
	collector.Start(cfg.Iterations, cfg.Exploration)

	t := newTree(state, untried)
	for i := 0; i < cfg.Iterations; i++ {
		if err := m.simulate(env, t, cfg.Exploration, rng, collector); err != nil {
			return Result{}, m.fail(err)
		}
		collector.AddIteration()
	}
	collector.SetNodes(t.size())

	result := t.result()
	result.Metric = collector.Complete()
	if m.withMetrics {
		metrics.ObserveSearch(m.label, result.Metric, nil)
	}

	log.Debug().
		Str("env", m.label).
		Int("iterations", cfg.Iterations).
		Int("nodes", t.size()).
		Interface("best", result.BestAction).
		Float64("value", result.Value).
		Msg("search complete")
	return result, nil
}

func (m *MCTS) fail(err error) error {
	if m.withMetrics {
		metrics.ObserveSearch(m.label, metrics.SearchMetric{}, err)
	}
	log.Debug().Err(err).Str("env", m.label).Msg("search aborted")
	return err
}

func (m *MCTS) simulate(env environment.Environment, t *tree, exploration float64, rng *rand.Rand, collector metrics.Collector) error {
	leaf, err := selectThenExpand(env, t, exploration, rng)
	if err != nil {
		return err
	}
	reward, full, err := rollout(env, t.nodes[leaf].state, m.rollout, rng)
	if err != nil {
		return err
	}
	if full {
		collector.AddFullPlayout()
	} else {
		collector.AddDeadEnd()
	}
	t.backup(leaf, reward)
	return nil
}

// selectThenExpand descends through fully expanded nodes by UCB1, then expands
// one untried action if the reached node has any.
func selectThenExpand(env environment.Environment, t *tree, exploration float64, rng *rand.Rand) (int, error) {
	idx := 0
	for len(t.nodes[idx].untried) == 0 && len(t.nodes[idx].children) > 0 {
		idx = t.bestChild(idx, exploration)
	}
	if len(t.nodes[idx].untried) == 0 {
		return idx, nil
	}
	return expand(env, t, idx, rng)
}

func expand(env environment.Environment, t *tree, idx int, rng *rand.Rand) (int, error) {
	n := &t.nodes[idx]
	i := rng.Intn(len(n.untried))
	action := n.untried[i]
	n.untried = slices.Delete(n.untried, i, i+1)

	state, err := environment.Advance(env, n.state, action)
	if err != nil {
		return 0, err
	}

	var untried []environment.Action
	if !env.IsDone(state) {
		actions, err := environment.LegalActions(env, state)
		if err != nil {
			return 0, err
		}
		untried = slices.Clone(actions)
	}
	return t.add(idx, action, state, untried), nil
}

// rollout plays from state until it is terminal or has no legal actions. full
// reports whether a terminal state was reached.
func rollout(env environment.Environment, state environment.State, policy RolloutPolicy, rng *rand.Rand) (reward float64, full bool, err error) {
	for !env.IsDone(state) {
		actions, err := environment.LegalActions(env, state)
		if err != nil {
			return 0, false, err
		}
		if len(actions) == 0 {
			return env.Reward(state), false, nil
		}
		state, err = environment.Advance(env, state, policy.Choose(state, actions, rng))
		if err != nil {
			return 0, false, err
		}
	}
	return env.Reward(state), true, nil
}
