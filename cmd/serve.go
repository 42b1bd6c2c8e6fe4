package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"treesearch/searcher"
	"treesearch/server"
	"treesearch/store"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *app) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve searches and traces over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			runs, err := store.Open(a.cfg.Store())
			if err != nil {
				return err
			}
			defer runs.Close()

			pool := searcher.NewPool(a.cfg.Pool.Workers, a.cfg.Pool.Queue)
			defer pool.Close()

			srv := server.New(a.registry, pool,
				server.WithRunStore(runs),
				server.WithSearchDefaults(a.cfg.SearchDefaults()),
				server.WithSessionOptions(a.sessionOptions()...),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log.Info().Str("addr", addr).Int("workers", a.cfg.Pool.Workers).Msg("serving")
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
