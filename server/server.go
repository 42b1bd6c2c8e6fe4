// Package server exposes searches and trace execution over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"treesearch/environment"
	"treesearch/searcher"
	"treesearch/session"
	"treesearch/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// ServiceName names the server's spans.
const ServiceName = "treesearch"

type Option func(s *Server)

// WithRunStore records every executed trace.
func WithRunStore(runs *store.Store) Option {
	return func(s *Server) {
		s.runs = runs
	}
}

// WithSessionOptions configures the sessions traces run in.
func WithSessionOptions(options ...session.Option) Option {
	return func(s *Server) {
		s.sessionOptions = append(s.sessionOptions, options...)
	}
}

// WithSearchDefaults sets the config used for fields a search request omits.
func WithSearchDefaults(cfg searcher.Config) Option {
	return func(s *Server) {
		s.searchDefaults = cfg
	}
}

type Server struct {
	registry       *environment.Registry
	pool           *searcher.Pool
	runs           *store.Store
	sessionOptions []session.Option
	searchDefaults searcher.Config
	router         *gin.Engine
}

// New wires the routes. Searches run on pool.
func New(registry *environment.Registry, pool *searcher.Pool, options ...Option) *Server {
	s := &Server{
		registry:       registry,
		pool:           pool,
		searchDefaults: searcher.DefaultConfig(),
	}
	for _, option := range options {
		option(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(ServiceName), requestLogger())
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.GET("/environments", s.handleEnvironments)
	v1.POST("/search", s.handleSearch)
	v1.POST("/trace", s.handleTrace)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
	v1.GET("/episodes/stream", s.handleStream)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
