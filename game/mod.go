// Package game holds the environments that ship with treesearch.
package game

import "treesearch/environment"

// CountingName is the registry name of the counting environment.
const CountingName = "counting"

// Register binds every built-in environment into reg.
func Register(reg *environment.Registry) {
	reg.MustRegister(CountingName, Counting{})
}

// NewRegistry returns a registry preloaded with the built-in environments.
func NewRegistry() *environment.Registry {
	reg := environment.NewRegistry()
	Register(reg)
	return reg
}
