package cmd

import (
	"fmt"
	"text/tabwriter"

	"treesearch/engine"
	"treesearch/environment"
	"treesearch/experiments"

	"github.com/spf13/cobra"
)

type benchFlags struct {
	env        string
	params     map[string]string
	iterations []int
	games      int
	parallel   int
	seed       int64
	out        string
	workers    []int
	searches   int
}

func (a *app) benchCommand() *cobra.Command {
	var f benchFlags
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Play batches of episodes across iteration budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(f.workers) > 0 {
				return a.throughput(cmd, f)
			}
			report, err := experiments.Run(cmd.Context(), experiments.Setup{
				Name:      "iteration sweep",
				Configs:   experiments.IterationSweep(f.env, f.games, f.iterations...),
				Params:    parseParams(f.params),
				BaseSeed:  f.seed,
				Parallel:  f.parallel,
				OutputDir: f.out,
				Runner:    engine.New(a.registry, engine.WithSessionOptions(a.sessionOptions()...)),
			})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "iterations\tepisodes\tsolved\tmean reward\tmean moves\ttime")
			for _, s := range report.Summaries {
				fmt.Fprintf(tw, "%d\t%d\t%.0f%%\t%.3f\t%.1f\t%s\n",
					s.Config.Iterations, s.Episodes, s.SuccessRate*100, s.MeanReward, s.MeanSteps, s.Duration)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if report.Dir != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "records written to %s\n", report.Dir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.env, "env", "", "environment name")
	cmd.Flags().StringToStringVar(&f.params, "param", nil, "environment parameter as key=value")
	cmd.Flags().IntSliceVar(&f.iterations, "iterations", []int{100, 500, 1000}, "iteration budgets to compare")
	cmd.Flags().IntVar(&f.games, "games", experiments.NumGames, "episodes per budget")
	cmd.Flags().IntVar(&f.parallel, "parallel", 1, "episodes played concurrently")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "base seed")
	cmd.Flags().StringVar(&f.out, "out", "", "directory for CSV records")
	cmd.Flags().IntSliceVar(&f.workers, "workers", nil, "measure search pool throughput for these worker counts instead")
	cmd.Flags().IntVar(&f.searches, "searches", 32, "searches per throughput measurement")
	_ = cmd.MarkFlagRequired("env")
	return cmd
}

func (a *app) throughput(cmd *cobra.Command, f benchFlags) error {
	env, err := a.registry.Get(f.env)
	if err != nil {
		return err
	}
	state, err := environment.Initial(f.env, env, parseParams(f.params))
	if err != nil {
		return err
	}
	cfg := a.cfg.SearchDefaults()
	if len(f.iterations) > 0 {
		cfg.Iterations = f.iterations[0]
	}

	results, err := experiments.RunThroughput(cmd.Context(), env, state, cfg, f.searches, f.workers...)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "workers\tsearches\ttime\tsearches/s")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%.1f\n", r.Workers, r.Searches, r.Duration, r.PerSecond)
	}
	return tw.Flush()
}
