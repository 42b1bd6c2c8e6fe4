package experiments

import (
	"context"
	"fmt"
	"time"

	"treesearch/environment"
	"treesearch/searcher"

	"github.com/rs/zerolog/log"
)

type Throughput struct {
	Workers   int           `json:"workers"`
	Searches  int           `json:"searches"`
	Duration  time.Duration `json:"duration"`
	PerSecond float64       `json:"per_second"`
}

// RunThroughput submits the same search repeatedly to pools of each size and
// measures completed searches per second.
func RunThroughput(ctx context.Context, env environment.Environment, state environment.State, cfg searcher.Config, searches int, workers ...int) ([]Throughput, error) {
	results := make([]Throughput, 0, len(workers))
	for _, n := range workers {
		pool := searcher.NewPool(n, searches)
		start := time.Now()

		futures := make([]*searcher.Future, searches)
		for i := range futures {
			futures[i] = pool.Submit(env, state, cfg)
		}
		for _, f := range futures {
			if _, err := f.Wait(ctx); err != nil {
				pool.Close()
				return nil, fmt.Errorf("throughput with %d workers: %w", n, err)
			}
		}
		elapsed := time.Since(start)
		pool.Close()

		result := Throughput{
			Workers:   n,
			Searches:  searches,
			Duration:  elapsed,
			PerSecond: float64(searches) / elapsed.Seconds(),
		}
		results = append(results, result)
		log.Info().Msgf("%d workers: %d searches in %s (%.1f/s)", n, searches, elapsed, result.PerSecond)
	}
	return results, nil
}
