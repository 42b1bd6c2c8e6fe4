package environment

import (
	"fmt"
	"reflect"
	"sync"

	"treesearch/utils"

	"github.com/rs/zerolog/log"
)

// Registry maps names to environments. Sessions receive a registry explicitly
// instead of sharing a process-wide table.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	envs  map[string]Environment
	names []string
}

func NewRegistry() *Registry {
	return &Registry{envs: make(map[string]Environment)}
}

// Register binds env to name. Registering an existing name replaces the prior
// binding and keeps its position in List.
func (r *Registry) Register(name string, env Environment) error {
	if name == "" {
		return newConfigError("environment name must not be empty")
	}
	if isNil(env) {
		return newConfigError("environment %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	replaced := utils.FindIndex(r.names, name) >= 0
	if !replaced {
		r.names = append(r.names, name)
	}
	r.envs[name] = env

	log.Debug().Str("env", name).Bool("replaced", replaced).Msg("registered environment")
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, env Environment) {
	if err := r.Register(name, env); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (Environment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	env, ok := r.envs[name]
	if !ok {
		return nil, fmt.Errorf("%w %q, registered: %v", ErrUnknownEnvironment, name, r.names)
	}
	return env, nil
}

// List returns the registered names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

func isNil(env Environment) bool {
	if env == nil {
		return true
	}
	v := reflect.ValueOf(env)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
