// Package experiments plays batches of seeded episodes and summarizes them.
package experiments

import (
	"context"
	"fmt"
	"time"

	"treesearch/engine"
	"treesearch/experiments/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	NumGames = 10 // Per config
	// SeedStride separates the seed ranges of consecutive games.
	SeedStride = 1000
)

// IterationSweep builds configs that differ only in search iterations.
func IterationSweep(env string, games int, iterations ...int) []metrics.RunConfig {
	configs := make([]metrics.RunConfig, 0, len(iterations))
	for i, n := range iterations {
		configs = append(configs, metrics.RunConfig{ID: i + 1, Env: env, Iterations: n, Games: games})
	}
	return configs
}

type Setup struct {
	Name    string
	Configs []metrics.RunConfig
	// Params are passed to every episode's init_search.
	Params   map[string]any
	BaseSeed int64
	// Parallel caps concurrently running episodes. Zero or less means one.
	Parallel int
	// OutputDir receives CSV records when set.
	OutputDir string
	Runner    engine.Runner
}

type Summary struct {
	Config      metrics.RunConfig `json:"config"`
	Episodes    int               `json:"episodes"`
	Successes   int               `json:"successes"`
	SuccessRate float64           `json:"success_rate"`
	MeanReward  float64           `json:"mean_reward"`
	MeanSteps   float64           `json:"mean_steps"`
	Duration    time.Duration     `json:"duration"`
}

type Report struct {
	Name      string                  `json:"name"`
	Summaries []Summary               `json:"summaries"`
	Episodes  []metrics.EpisodeRecord `json:"-"`
	Steps     []metrics.StepRecord    `json:"-"`
	Dir       string                  `json:"dir,omitempty"`
}

type task struct {
	id     int
	config metrics.RunConfig
	seed   int64
}

// Run plays every config's games, at most setup.Parallel at a time, and
// aborts on the first failed episode.
func Run(ctx context.Context, setup Setup) (Report, error) {
	if setup.Runner == nil {
		return Report{}, fmt.Errorf("experiment %q has no runner", setup.Name)
	}

	var tasks []task
	for _, config := range setup.Configs {
		games := config.Games
		if games <= 0 {
			games = NumGames
		}
		for i := 0; i < games; i++ {
			tasks = append(tasks, task{
				id:     len(tasks) + 1,
				config: config,
				seed:   setup.BaseSeed + int64(i)*SeedStride,
			})
		}
	}

	log.Info().Msgf("starting %s experiment with %d episodes...", setup.Name, len(tasks))

	episodes := make([]engine.Episode, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(setup.Parallel, 1))
	for i, t := range tasks {
		g.Go(func() error {
			ep, err := setup.Runner.Run(gctx, engine.EpisodeConfig{
				Env:         t.config.Env,
				Params:      setup.Params,
				Iterations:  t.config.Iterations,
				Exploration: t.config.Exploration,
				Seed:        t.seed,
			})
			if err != nil {
				return fmt.Errorf("episode %d (config %d): %w", t.id, t.config.ID, err)
			}
			episodes[i] = ep
			log.Info().Msgf("completed episode %d of %d with reward %.3f", t.id, len(tasks), ep.Reward)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := summarize(setup, tasks, episodes)
	log.Info().Msgf("completed %s experiment", setup.Name)

	if setup.OutputDir != "" {
		dir, err := write(setup, report)
		if err != nil {
			return report, err
		}
		report.Dir = dir
	}
	return report, nil
}

func summarize(setup Setup, tasks []task, episodes []engine.Episode) Report {
	report := Report{Name: setup.Name}
	byConfig := make(map[int]*Summary, len(setup.Configs))
	for _, config := range setup.Configs {
		report.Summaries = append(report.Summaries, Summary{Config: config})
	}
	for i := range report.Summaries {
		byConfig[report.Summaries[i].Config.ID] = &report.Summaries[i]
	}

	for i, t := range tasks {
		ep := episodes[i]
		report.Episodes = append(report.Episodes, ep.Record(t.id, t.config.ID))
		for _, step := range ep.Steps {
			step.Episode = t.id
			report.Steps = append(report.Steps, step)
		}

		s := byConfig[t.config.ID]
		s.Episodes++
		if ep.Success {
			s.Successes++
		}
		s.MeanReward += ep.Reward
		s.MeanSteps += float64(len(ep.Actions))
		s.Duration += ep.Duration()
	}

	for i := range report.Summaries {
		s := &report.Summaries[i]
		if s.Episodes == 0 {
			continue
		}
		n := float64(s.Episodes)
		s.SuccessRate = float64(s.Successes) / n
		s.MeanReward /= n
		s.MeanSteps /= n
	}
	return report
}

func write(setup Setup, report Report) (string, error) {
	writer, err := metrics.NewWriter(setup.OutputDir)
	if err != nil {
		return "", fmt.Errorf("failed to create experiment writer: %w", err)
	}
	if err := writer.WriteRunConfigs(setup.Configs); err != nil {
		return "", fmt.Errorf("failed to store run configs: %w", err)
	}
	log.Info().Msg("stored run configs")
	if err := writer.WriteEpisodeRecords(report.Episodes); err != nil {
		return "", fmt.Errorf("failed to write episode records: %w", err)
	}
	log.Info().Msg("stored episode records")
	if err := writer.WriteStepRecords(report.Steps); err != nil {
		return "", fmt.Errorf("failed to write step records: %w", err)
	}
	log.Info().Msg("stored step records")
	return writer.Dir(), nil
}
