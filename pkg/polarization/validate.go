package polarization

import (
	"github.com/rs/zerolog"
)

var validTimeWindows = map[string]bool{
	"no":      true,
	"seconds": true,
	"minutes": true,
	"hours":   true,
	"days":    true,
	"weeks":   true,
	"months":  true,
	"years":   true,
}

var validKernels = map[string]bool{
	"uniform":      true,
	"triangular":   true,
	"epanechnikov": true,
	"gaussian":     true,
}

// Validate checks all algorithm parameters against their allowed ranges.
// Out-of-range values are never fatal: each one is logged as a warning and
// replaced by its default before the engine runs.
func (c *Config) Validate(logger zerolog.Logger) {
	if a := c.Algorithm(); a != "genetic" && a != "greedy" {
		logger.Warn().Str("algorithm", a).
			Msg("Algorithm must be 'genetic' or 'greedy'. Using 'greedy' instead.")
		c.Set("algorithm.name", "greedy")
	}
	if k := c.NumClusters(); k <= 1 {
		logger.Warn().Int("num_clusters", k).
			Msg("Number of clusters (k) must be greater than 1. Using 2 clusters instead.")
		c.Set("algorithm.num_clusters", 2)
	}
	if p := c.NumParents(); p <= 0 {
		logger.Warn().Int("num_parents", p).
			Msg("Number of cluster solutions (= parents) must be positive. Using 50 parents instead.")
		c.Set("algorithm.num_parents", 50)
	}
	if n := c.NumIterations(); n <= 0 {
		logger.Warn().Int("num_iterations", n).
			Msg("Number of iterations must be positive. Using 1000 iterations instead.")
		c.Set("algorithm.num_iterations", 1000)
	}
	if e := c.ElitePercentage(); e < 0.0 || e > 1.0 {
		logger.Warn().Float64("elite_percentage", e).
			Msg("Elite percentage must be between 0 and 1 (inclusive). Using 0.1 instead.")
		c.Set("algorithm.elite_percentage", 0.1)
	}
	if m := c.MutationPercentage(); m < 0.0 || m > 1.0 {
		logger.Warn().Float64("mutation_percentage", m).
			Msg("Mutation percentage must be between 0 and 1 (inclusive). Using 0.1 instead.")
		c.Set("algorithm.mutation_percentage", 0.1)
	}
	if tw := c.TimeWindow(); !validTimeWindows[tw] {
		logger.Warn().Str("time_window", tw).
			Msg("Time window setting invalid. Using the default value 'no'.")
		c.Set("smoothing.time_window", "no")
	}
	if c.TimeWindow() == "no" && c.WindowSize() != 0 {
		logger.Warn().Int("window_size", c.WindowSize()).
			Msg("Window size must be 0 because no time window is used. Setting time window size to 0.")
		c.Set("smoothing.window_size", 0)
	} else if c.TimeWindow() != "no" {
		if ws := c.WindowSize(); ws <= 0 {
			logger.Warn().Int("window_size", ws).
				Msg("Window size must be positive. Using 10 instead.")
			c.Set("smoothing.window_size", 10)
		} else if ws%2 != 0 {
			// adding or subtracting w/2 around the midpoint must stay on whole units
			logger.Warn().Int("window_size", ws).
				Msg("Window size must be an even number. Incrementing by one.")
			c.Set("smoothing.window_size", ws+1)
		}
	}
	if k := c.Kernel(); !validKernels[k] {
		logger.Warn().Str("kernel", k).
			Msg("Kernel function invalid. Using 'uniform' instead.")
		c.Set("smoothing.kernel", "uniform")
	}
}
