package session

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	KindInitSearch = "init_search"
	KindSearch     = "search"
	KindApply      = "apply"
	KindEvaluate   = "evaluate"
	KindQuery      = "query"
)

const (
	DefaultSearchVar   = "best_action"
	DefaultEvaluateVar = "value"
)

// Op is one session operation. The set of implementations is closed.
type Op interface {
	Kind() string
	isOp()
}

// InitSearch (re)initializes the session's environment and state.
type InitSearch struct {
	Env    string         `json:"env" yaml:"env" validate:"required"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Search runs MCTS on the current state. Zero or nil fields take the session defaults.
type Search struct {
	Iterations  int      `json:"iterations,omitempty" yaml:"iterations,omitempty" validate:"gte=0"`
	Exploration *float64 `json:"exploration,omitempty" yaml:"exploration,omitempty" validate:"omitempty,gte=0"`
	Seed        *int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	Var         string   `json:"var,omitempty" yaml:"var,omitempty" validate:"omitempty,varname"`
}

// Apply advances the state by a literal action or one stored in a variable.
// Exactly one of Action and ActionVar must be set.
type Apply struct {
	Action    any    `json:"action,omitempty" yaml:"action,omitempty"`
	ActionVar string `json:"action_var,omitempty" yaml:"action_var,omitempty"`
}

// Evaluate estimates the value of the current state.
type Evaluate struct {
	Iterations int    `json:"iterations,omitempty" yaml:"iterations,omitempty" validate:"gte=0"`
	Seed       *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	Var        string `json:"var,omitempty" yaml:"var,omitempty" validate:"omitempty,varname"`
}

// Query names the variable holding the final answer.
type Query struct {
	Var string `json:"var" yaml:"var" validate:"required"`
}

func (InitSearch) Kind() string { return KindInitSearch }
func (Search) Kind() string     { return KindSearch }
func (Apply) Kind() string      { return KindApply }
func (Evaluate) Kind() string   { return KindEvaluate }
func (Query) Kind() string      { return KindQuery }

func (InitSearch) isOp() {}
func (Search) isOp()     {}
func (Apply) isOp()      {}
func (Evaluate) isOp()   {}
func (Query) isOp()      {}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Names with a leading underscore belong to the session.
	_ = v.RegisterValidation("varname", func(fl validator.FieldLevel) bool {
		return !strings.HasPrefix(fl.Field().String(), "_")
	})
	return v
}

func validateOp(op Op) error {
	if op == nil {
		return fmt.Errorf("%w: nil operation", ErrInvalidOperation)
	}
	if err := validate.Struct(op); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidOperation, op.Kind(), err)
	}
	return nil
}

func or(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
