// Package config loads process settings from YAML with TREESEARCH_* overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"treesearch/meta"
	"treesearch/searcher"
	"treesearch/store"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "TREESEARCH_"

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	Search SearchConfig `yaml:"search"`
	Pool   PoolConfig   `yaml:"pool"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Trace  TraceConfig  `yaml:"trace"`
}

type SearchConfig struct {
	Iterations         int     `yaml:"iterations" validate:"gte=1"`
	EvaluateIterations int     `yaml:"evaluate_iterations" validate:"gte=1"`
	Exploration        float64 `yaml:"exploration" validate:"gte=0"`
}

type PoolConfig struct {
	Workers int `yaml:"workers" validate:"gte=1"`
	Queue   int `yaml:"queue" validate:"gte=0"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr" validate:"required"`
	StorePath string `yaml:"store_path" validate:"required_without=InMemory"`
	InMemory  bool   `yaml:"in_memory"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
}

type TraceConfig struct {
	// Exporter is none or stdout.
	Exporter string `yaml:"exporter" validate:"oneof=none stdout"`
}

func Default() Config {
	return Config{
		Search: SearchConfig{
			Iterations:         meta.SearchIterations,
			EvaluateIterations: meta.EvaluateIterations,
			Exploration:        meta.Exploration,
		},
		Pool: PoolConfig{
			Workers: meta.AsyncWorkers,
			Queue:   meta.AsyncQueue,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			StorePath: "data/runs",
		},
		Log:   LogConfig{Level: "info"},
		Trace: TraceConfig{Exporter: "none"},
	}
}

// Load starts from the defaults, merges the file at path if it exists and
// applies environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := loadEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, fmt.Errorf("load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	setInt := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setString := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	setInt("SEARCH_ITERATIONS", &cfg.Search.Iterations)
	setInt("EVALUATE_ITERATIONS", &cfg.Search.EvaluateIterations)
	if v, ok := lookup(EnvPrefix + "EXPLORATION"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sEXPLORATION: %w", EnvPrefix, err))
		} else {
			cfg.Search.Exploration = f
		}
	}
	setInt("POOL_WORKERS", &cfg.Pool.Workers)
	setInt("POOL_QUEUE", &cfg.Pool.Queue)
	setString("ADDR", &cfg.Server.Addr)
	setString("STORE_PATH", &cfg.Server.StorePath)
	if v, ok := lookup(EnvPrefix + "STORE_IN_MEMORY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSTORE_IN_MEMORY: %w", EnvPrefix, err))
		} else {
			cfg.Server.InMemory = b
		}
	}
	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("TRACE_EXPORTER", &cfg.Trace.Exporter)
	return errors.Join(errs...)
}

func (c Config) Validate() error {
	return validate.Struct(c)
}

func (c Config) SearchDefaults() searcher.Config {
	return searcher.Config{Iterations: c.Search.Iterations, Exploration: c.Search.Exploration}
}

func (c Config) EvaluateDefaults() searcher.Config {
	return searcher.Config{Iterations: c.Search.EvaluateIterations, Exploration: c.Search.Exploration}
}

func (c Config) Store() store.Config {
	return store.Config{Path: c.Server.StorePath, InMemory: c.Server.InMemory}
}

// Level returns the configured zerolog level, falling back to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || c.Log.Level == "" {
		return zerolog.InfoLevel
	}
	return level
}
