package environment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubEnv struct {
	name string
	err  error
}

func (s *stubEnv) Actions(State) ([]Action, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []Action{1}, nil
}

func (s *stubEnv) Step(state State, _ Action) (State, error) {
	if s.err != nil {
		return nil, s.err
	}
	return state, nil
}

func (s *stubEnv) IsDone(State) bool     { return false }
func (s *stubEnv) Reward(State) float64 { return 0 }

func TestRegistry(t *testing.T) {
	t.Run("get returns the registered environment", func(t *testing.T) {
		reg := NewRegistry()
		env := &stubEnv{name: "a"}
		require.NoError(t, reg.Register("a", env))

		got, err := reg.Get("a")
		require.NoError(t, err)
		require.Same(t, env, got)
	})

	t.Run("unknown name lists registered names", func(t *testing.T) {
		reg := NewRegistry()
		reg.MustRegister("alpha", &stubEnv{})
		reg.MustRegister("beta", &stubEnv{})

		_, err := reg.Get("gamma")
		require.ErrorIs(t, err, ErrUnknownEnvironment)
		require.ErrorIs(t, err, ErrConfiguration)
		require.Contains(t, err.Error(), "alpha")
		require.Contains(t, err.Error(), "beta")
	})

	t.Run("re-registering replaces and keeps order", func(t *testing.T) {
		reg := NewRegistry()
		first, second := &stubEnv{name: "first"}, &stubEnv{name: "second"}
		reg.MustRegister("x", first)
		reg.MustRegister("y", &stubEnv{})
		reg.MustRegister("x", second)

		got, err := reg.Get("x")
		require.NoError(t, err)
		require.Same(t, second, got, "last registration should win")
		require.Equal(t, []string{"x", "y"}, reg.List())
	})

	t.Run("nil and unnamed environments are rejected", func(t *testing.T) {
		reg := NewRegistry()
		require.ErrorIs(t, reg.Register("n", nil), ErrConfiguration)

		var typedNil *stubEnv
		require.ErrorIs(t, reg.Register("n", typedNil), ErrConfiguration)
		require.ErrorIs(t, reg.Register("", &stubEnv{}), ErrConfiguration)
		require.Empty(t, reg.List())
	})

	t.Run("list returns a copy", func(t *testing.T) {
		reg := NewRegistry()
		reg.MustRegister("a", &stubEnv{})
		names := reg.List()
		names[0] = "mutated"
		require.Equal(t, []string{"a"}, reg.List())
	})
}

func TestEnvironmentErrors(t *testing.T) {
	boom := errors.New("boom")
	env := &stubEnv{err: boom}

	t.Run("actions failure is wrapped", func(t *testing.T) {
		_, err := LegalActions(env, nil)
		var envErr *Error
		require.ErrorAs(t, err, &envErr)
		require.Equal(t, "actions", envErr.Op)
		require.ErrorIs(t, err, boom)
	})

	t.Run("step failure is wrapped once", func(t *testing.T) {
		_, err := Advance(env, nil, 1)
		require.ErrorIs(t, err, boom)

		_, err = Advance(&stubEnv{err: err}, nil, 1)
		var envErr *Error
		require.ErrorAs(t, err, &envErr)
		require.Same(t, boom, envErr.Err, "already wrapped errors should pass through")
	})

	t.Run("initial requires a factory", func(t *testing.T) {
		_, err := Initial("stub", env, nil)
		require.ErrorIs(t, err, ErrConfiguration)
	})
}
