// Package cmd implements the treesearch command line.
package cmd

import (
	"io"
	"os"
	"strconv"

	"treesearch/config"
	"treesearch/environment"
	"treesearch/game"
	"treesearch/session"
	"treesearch/telemetry"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	logLevel   string
	cfg        config.Config
	registry   *environment.Registry
	shutdown   telemetry.ShutdownFunc
}

// NewRootCommand builds the command tree. Environments come from registry.
func NewRootCommand(registry *environment.Registry) *cobra.Command {
	a := &app{registry: registry}

	root := &cobra.Command{
		Use:           "treesearch",
		Short:         "Monte Carlo tree search over pluggable environments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level, overrides the config file")

	root.AddCommand(
		a.envsCommand(),
		a.searchCommand(),
		a.runCommand(),
		a.playCommand(),
		a.benchCommand(),
		a.serveCommand(),
	)
	return root
}

// Execute runs the CLI over the built-in environments.
func Execute() error {
	return NewRootCommand(game.NewRegistry()).Execute()
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	w := cmd.ErrOrStderr()
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	zerolog.SetGlobalLevel(cfg.Level())
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, NoColor: noColor})
	log.Debug().Str("config", a.configPath).Msg("configuration loaded")

	a.shutdown, err = telemetry.Setup("treesearch", cfg.Trace.Exporter, w)
	return err
}

func (a *app) sessionOptions() []session.Option {
	return []session.Option{
		session.WithDefaults(a.cfg.SearchDefaults(), a.cfg.EvaluateDefaults()),
	}
}

// parseParams turns key=value flags into environment params, keeping numbers
// and booleans typed.
func parseParams(raw map[string]string) map[string]any {
	params := make(map[string]any, len(raw))
	for k, v := range raw {
		params[k] = scalar(v)
	}
	return params
}

func scalar(v string) any {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
