package searcher

import (
	"treesearch/environment"

	"golang.org/x/exp/rand"
)

// RolloutPolicy picks the next action during a playout. actions is never empty.
type RolloutPolicy interface {
	Choose(state environment.State, actions []environment.Action, rng *rand.Rand) environment.Action
}

type RolloutFunc func(state environment.State, actions []environment.Action, rng *rand.Rand) environment.Action

func (f RolloutFunc) Choose(state environment.State, actions []environment.Action, rng *rand.Rand) environment.Action {
	return f(state, actions, rng)
}

// UniformRollout picks uniformly at random among the legal actions.
var UniformRollout RolloutPolicy = RolloutFunc(func(_ environment.State, actions []environment.Action, rng *rand.Rand) environment.Action {
	return actions[rng.Intn(len(actions))]
})
