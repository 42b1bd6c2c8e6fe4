package server

import (
	"treesearch/environment"
	"treesearch/searcher"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type EnvironmentsResponse struct {
	Environments []string `json:"environments"`
}

// SearchRequest runs one search from the environment's initial state.
type SearchRequest struct {
	Env         string         `json:"env" binding:"required"`
	Params      map[string]any `json:"params"`
	Iterations  int            `json:"iterations" binding:"gte=0"`
	Exploration *float64       `json:"exploration" binding:"omitempty,gte=0"`
	Seed        *int64         `json:"seed"`
}

type SearchResponse struct {
	State  environment.State `json:"state"`
	Result searcher.Result   `json:"result"`
}

// TraceResponse mirrors the execute_trace result shape.
type TraceResponse struct {
	Success       bool           `json:"success"`
	Answer        any            `json:"answer"`
	State         map[string]any `json:"state"`
	Error         *string        `json:"error"`
	StepsExecuted int            `json:"steps_executed"`
	Formatted     string         `json:"formatted"`
	RunID         string         `json:"run_id,omitempty"`
}
