package session

import (
	"context"
	"fmt"
)

// Trace is the outcome of running a list of operations.
type Trace struct {
	Success       bool           `json:"success"`
	Answer        any            `json:"answer"`
	Vars          map[string]any `json:"state"`
	Error         string         `json:"error,omitempty"`
	StepsExecuted int            `json:"steps_executed"`
	Err           error          `json:"-"`
}

// Formatted renders the answer, empty when there is none.
func (t Trace) Formatted() string {
	if t.Answer == nil {
		return ""
	}
	return fmt.Sprint(t.Answer)
}

// Run executes ops in order and stops at the first failure. Variables written
// by the steps that completed stay in place.
func (s *Session) Run(ctx context.Context, ops []Op) Trace {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return s.Snapshot(i, err)
		}
		if err := s.Execute(ctx, op); err != nil {
			return s.Snapshot(i, err)
		}
	}
	return s.Snapshot(len(ops), nil)
}

// Snapshot builds the trace of a run that executed steps operations and then
// stopped with err, nil on success.
func (s *Session) Snapshot(steps int, err error) Trace {
	if err != nil {
		err = fmt.Errorf("step %d: %w", steps, err)
		s.logger.Warn().Err(err).Msg("trace aborted")
		return Trace{
			Vars:          s.Vars(),
			Error:         err.Error(),
			StepsExecuted: steps,
			Err:           err,
		}
	}

	s.logger.Info().Int("steps", steps).Interface("answer", s.Answer()).Msg("trace complete")
	return Trace{
		Success:       true,
		Answer:        s.Answer(),
		Vars:          s.Vars(),
		StepsExecuted: steps,
	}
}
