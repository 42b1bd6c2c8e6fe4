// Package environment defines the contract a search domain implements and a
// registry that binds environments to names.
package environment

// State is an environment-defined position. Environments treat states as
// immutable values: Step always returns a fresh state and never mutates its input.
type State = any

// Action is an environment-defined move.
type Action = any

// Environment is the only extension point for new search domains.
//
// Actions must return legal actions in a stable order: seeded searches break
// ties among unvisited children by this order. Environments shared between
// concurrent searches must tolerate concurrent calls on disjoint states.
type Environment interface {
	Actions(state State) ([]Action, error)
	Step(state State, action Action) (State, error)
	IsDone(state State) bool
	// Reward scores a terminal state in [0, 1].
	Reward(state State) float64
}

// Initializer is implemented by environments that can build an initial state
// from keyword parameters.
type Initializer interface {
	Initial(params map[string]any) (State, error)
}

// LegalActions calls env.Actions and wraps any failure in an *Error.
func LegalActions(env Environment, state State) ([]Action, error) {
	actions, err := env.Actions(state)
	if err != nil {
		return nil, wrap("actions", err)
	}
	return actions, nil
}

// Advance calls env.Step and wraps any failure in an *Error.
func Advance(env Environment, state State, action Action) (State, error) {
	next, err := env.Step(state, action)
	if err != nil {
		return nil, wrap("step", err)
	}
	return next, nil
}

// Initial builds the initial state of env, failing with ErrConfiguration when
// env has no factory.
func Initial(name string, env Environment, params map[string]any) (State, error) {
	init, ok := env.(Initializer)
	if !ok {
		return nil, newConfigError("environment %q has no initial state factory", name)
	}
	if params == nil {
		params = map[string]any{}
	}
	state, err := init.Initial(params)
	if err != nil {
		return nil, wrap("initial", err)
	}
	return state, nil
}
