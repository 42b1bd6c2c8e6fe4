package game

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"treesearch/environment"
)

const (
	DefaultTarget = 10
	DefaultMoves  = 5
)

// Increments are the amounts a counting move may add, in action order.
var Increments = []int{1, 2, 3}

var ErrBadMove = errors.New("bad counting move")

// Counter is the counting state. It is a value type: Step returns a new copy.
type Counter struct {
	Value     int `json:"value" yaml:"value"`
	Target    int `json:"target" yaml:"target"`
	MovesLeft int `json:"moves_left" yaml:"moves_left"`
}

func (c Counter) String() string {
	return fmt.Sprintf("%d/%d (%d moves left)", c.Value, c.Target, c.MovesLeft)
}

// Counting adds 1, 2 or 3 to a counter until it reaches its target or runs
// out of moves. Hitting the target exactly scores 1, anything else scores by
// closeness.
type Counting struct{}

var (
	_ environment.Environment = Counting{}
	_ environment.Initializer = Counting{}
)

func (Counting) Initial(params map[string]any) (environment.State, error) {
	target, err := intParam(params, "target", DefaultTarget)
	if err != nil {
		return nil, err
	}
	moves, err := intParam(params, "moves", DefaultMoves)
	if err != nil {
		return nil, err
	}
	return Counter{Target: target, MovesLeft: moves}, nil
}

func (Counting) Actions(state environment.State) ([]environment.Action, error) {
	c, err := asCounter(state)
	if err != nil {
		return nil, err
	}
	if c.MovesLeft <= 0 {
		return nil, nil
	}
	actions := make([]environment.Action, 0, len(Increments))
	for _, inc := range Increments {
		if c.Value+inc <= c.Target {
			actions = append(actions, inc)
		}
	}
	return actions, nil
}

func (Counting) Step(state environment.State, action environment.Action) (environment.State, error) {
	c, err := asCounter(state)
	if err != nil {
		return nil, err
	}
	inc, ok := asInt(action)
	if !ok {
		return nil, fmt.Errorf("%w: %v (%T)", ErrBadMove, action, action)
	}
	c.Value += inc
	c.MovesLeft--
	return c, nil
}

func (Counting) IsDone(state environment.State) bool {
	c, err := asCounter(state)
	if err != nil {
		return true
	}
	return c.MovesLeft <= 0 || c.Value >= c.Target
}

func (Counting) Reward(state environment.State) float64 {
	c, err := asCounter(state)
	if err != nil {
		return 0
	}
	if c.Value == c.Target {
		return 1
	}
	if c.Target <= 0 {
		return 0
	}
	return math.Max(0, 1-math.Abs(float64(c.Value-c.Target))/float64(c.Target))
}

func asCounter(state environment.State) (Counter, error) {
	switch s := state.(type) {
	case Counter:
		return s, nil
	case *Counter:
		if s != nil {
			return *s, nil
		}
	}
	return Counter{}, fmt.Errorf("counting: unexpected state %T", state)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

func intParam(params map[string]any, key string, fallback int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	if s, isString := raw.(string); isString {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("counting: %s: %w", key, err)
		}
		return n, nil
	}
	if f, isFloat := raw.(float64); isFloat {
		return int(f), nil
	}
	n, ok := asInt(raw)
	if !ok {
		return 0, fmt.Errorf("counting: %s must be an integer, got %T", key, raw)
	}
	return n, nil
}
