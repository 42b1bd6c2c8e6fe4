package cmd

import (
	"fmt"
	"io"

	"treesearch/engine"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

type playFlags struct {
	env         string
	params      map[string]string
	iterations  int
	exploration float64
	seed        int64
	maxSteps    int
	remote      string
}

func (a *app) playCommand() *cobra.Command {
	var f playFlags
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one episode, searching before every move",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var runner engine.Runner = engine.New(a.registry, engine.WithSessionOptions(a.sessionOptions()...))
			if f.remote != "" {
				runner = engine.NewRemote(f.remote)
			}
			episode, err := runner.Run(cmd.Context(), engine.EpisodeConfig{
				Env:         f.env,
				Params:      parseParams(f.params),
				Iterations:  f.iterations,
				Exploration: f.exploration,
				Seed:        f.seed,
				MaxSteps:    f.maxSteps,
			})
			if err != nil {
				return err
			}
			printEpisode(cmd.OutOrStdout(), episode)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.env, "env", "", "environment name")
	cmd.Flags().StringToStringVar(&f.params, "param", nil, "environment parameter as key=value")
	cmd.Flags().IntVar(&f.iterations, "iterations", 0, "search iterations per move (default from config)")
	cmd.Flags().Float64Var(&f.exploration, "exploration", 0, "UCB1 exploration constant (default from config)")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "base seed, move i uses seed+i")
	cmd.Flags().IntVar(&f.maxSteps, "max-steps", 0, "move cap (default 300)")
	cmd.Flags().StringVar(&f.remote, "remote", "", "play on a treesearch server at this base URL")
	_ = cmd.MarkFlagRequired("env")
	return cmd
}

func printEpisode(w io.Writer, episode engine.Episode) {
	out := termenv.NewOutput(w)
	dim := func(s string) string { return out.String(s).Faint().String() }

	fmt.Fprintf(w, "%s %s\n", out.String("episode").Bold(), dim(episode.ID))
	if len(episode.Steps) > 0 {
		for _, step := range episode.Steps {
			fmt.Fprintf(w, "  %3d  %-10s %s\n", step.Step,
				out.String(step.Action).Foreground(out.Color("6")),
				dim(fmt.Sprintf("visits=%d value=%.3f %s", step.Visits, step.Value, step.Duration)))
		}
	} else {
		for i, action := range episode.Actions {
			fmt.Fprintf(w, "  %3d  %s\n", i+1, out.String(fmt.Sprint(action)).Foreground(out.Color("6")))
		}
	}

	outcome := out.String("unsolved").Foreground(out.Color("1")).Bold()
	if episode.Success {
		outcome = out.String("solved").Foreground(out.Color("2")).Bold()
	}
	fmt.Fprintf(w, "%s reward=%.3f moves=%d in %s\n", outcome, episode.Reward, len(episode.Actions), episode.Duration())
}
