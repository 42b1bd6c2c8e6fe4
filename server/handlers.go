package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"treesearch/environment"
	"treesearch/searcher"
	"treesearch/session"
	"treesearch/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleEnvironments(c *gin.Context) {
	c.JSON(http.StatusOK, EnvironmentsResponse{Environments: s.registry.List()})
}

// handleSearch handles POST /v1/search.
//
// Response:
//
//	200 OK: SearchResponse
//	400 Bad Request: invalid body, params or config
//	404 Not Found: unknown environment
//	422 Unprocessable Entity: environment failure
func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}

	env, err := s.registry.Get(req.Env)
	if err != nil {
		respondError(c, err)
		return
	}
	state, err := environment.Initial(req.Env, env, req.Params)
	if err != nil {
		respondError(c, err)
		return
	}

	cfg := s.searchDefaults
	if req.Iterations > 0 {
		cfg.Iterations = req.Iterations
	}
	if req.Exploration != nil {
		cfg.Exploration = *req.Exploration
	}
	cfg.Seed = req.Seed

	result, err := s.pool.
		Submit(env, state, cfg, searcher.WithMetrics(), searcher.WithLabel(req.Env)).
		Wait(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SearchResponse{State: state, Result: result})
}

// handleTrace handles POST /v1/trace. The body is a plan accepted by
// session.ParsePlan. A trace that fails mid-way still answers 200 with
// success false.
func (s *Server) handleTrace(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_REQUEST"})
		return
	}
	ops, err := session.ParsePlan(body)
	if err != nil {
		msg := err.Error()
		c.JSON(http.StatusBadRequest, TraceResponse{Error: &msg, State: map[string]any{}})
		return
	}

	sess := session.New(s.registry, s.sessionOptions...)
	trace := sess.Run(c.Request.Context(), ops)

	resp := TraceResponse{
		Success:       trace.Success,
		Answer:        trace.Answer,
		State:         trace.Vars,
		StepsExecuted: trace.StepsExecuted,
		Formatted:     trace.Formatted(),
	}
	if trace.Error != "" {
		resp.Error = &trace.Error
	}

	if s.runs != nil {
		plan, err := session.Steps(ops)
		if err == nil {
			resp.RunID, err = s.runs.Put(store.Run{SessionID: sess.ID(), Env: sess.Env(), Plan: plan, Trace: trace})
		}
		if err != nil {
			log.Error().Err(err).Str("session", sess.ID()).Msg("failed to record run")
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "run store disabled", Code: "NO_STORE"})
		return
	}
	run, err := s.runs.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "run store disabled", Code: "NO_STORE"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer", Code: "INVALID_REQUEST"})
		return
	}
	runs, err := s.runs.List(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError && c.Request.Context().Err() != nil {
		status, code = http.StatusRequestTimeout, "CANCELLED"
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	var envErr *environment.Error
	switch {
	case errors.Is(err, environment.ErrUnknownEnvironment):
		return http.StatusNotFound, "UNKNOWN_ENVIRONMENT"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, environment.ErrConfiguration):
		return http.StatusBadRequest, "INVALID_CONFIG"
	case errors.As(err, &envErr):
		return http.StatusUnprocessableEntity, "ENVIRONMENT_ERROR"
	case errors.Is(err, searcher.ErrPoolClosed):
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	}
	return http.StatusInternalServerError, "INTERNAL"
}
