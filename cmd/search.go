package cmd

import (
	"fmt"
	"io"
	"os"

	"treesearch/environment"
	"treesearch/searcher"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"
)

type searchFlags struct {
	env         string
	params      map[string]string
	iterations  int
	exploration float64
	seed        int64
	top         int
	chart       string
}

func (a *app) searchCommand() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search from an environment's initial state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.search(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.env, "env", "", "environment name")
	cmd.Flags().StringToStringVar(&f.params, "param", nil, "environment parameter as key=value")
	cmd.Flags().IntVar(&f.iterations, "iterations", 0, "search iterations (default from config)")
	cmd.Flags().Float64Var(&f.exploration, "exploration", -1, "UCB1 exploration constant (default from config)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&f.top, "top", 5, "number of ranked actions to print")
	cmd.Flags().StringVar(&f.chart, "chart", "", "write an HTML bar chart of root visits to this path")
	_ = cmd.MarkFlagRequired("env")
	return cmd
}

func (a *app) search(cmd *cobra.Command, f searchFlags) error {
	env, err := a.registry.Get(f.env)
	if err != nil {
		return err
	}
	state, err := environment.Initial(f.env, env, parseParams(f.params))
	if err != nil {
		return err
	}

	cfg := a.cfg.SearchDefaults()
	if f.iterations > 0 {
		cfg.Iterations = f.iterations
	}
	if f.exploration >= 0 {
		cfg.Exploration = f.exploration
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = searcher.Seed(f.seed)
	}

	pool := searcher.NewPool(a.cfg.Pool.Workers, a.cfg.Pool.Queue)
	defer pool.Close()
	result, err := pool.Submit(env, state, cfg, searcher.WithMetrics(), searcher.WithLabel(f.env)).Wait(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Empty() {
		fmt.Fprintln(out, "no legal actions from the initial state")
		return nil
	}
	fmt.Fprintf(out, "best action: %v (visits %d, value %.3f)\n", result.BestAction, result.Visits, result.Value)
	for i, stat := range result.Top(f.top) {
		fmt.Fprintf(out, "%2d. %-12v visits=%-6d value=%.3f\n", i+1, stat.Action, stat.Visits, stat.Value)
	}
	fmt.Fprintf(out, "%d iterations in %s, %d nodes\n", result.Metric.Iterations, result.Metric.Duration, result.Metric.Nodes)

	if f.chart != "" {
		if err := writeChart(f.chart, f.env, result); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
		fmt.Fprintf(out, "chart written to %s\n", f.chart)
	}
	return nil
}

func writeChart(path, env string, result searcher.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return renderChart(file, env, result)
}

// renderChart draws root visit counts in action order of the ranking.
func renderChart(w io.Writer, env string, result searcher.Result) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Root visits",
			Subtitle: fmt.Sprintf("%s, %d iterations", env, result.Metric.Iterations),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	labels := make([]string, 0, len(result.ActionStats))
	visits := make([]opts.BarData, 0, len(result.ActionStats))
	for _, stat := range result.ActionStats {
		labels = append(labels, fmt.Sprint(stat.Action))
		visits = append(visits, opts.BarData{Value: stat.Visits})
	}
	bar.SetXAxis(labels).AddSeries("visits", visits)

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}
