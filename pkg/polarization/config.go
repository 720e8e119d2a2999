package polarization

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config manages polarization engine configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Variable selection
	v.SetDefault("variables.variable1", "organization")
	v.SetDefault("variables.variable1_document", false)
	v.SetDefault("variables.variable2", "concept")
	v.SetDefault("variables.variable2_document", false)
	v.SetDefault("variables.qualifier", "agreement")
	v.SetDefault("variables.qualifier_document", false)

	// Algorithm parameters
	v.SetDefault("algorithm.name", "greedy")
	v.SetDefault("algorithm.num_clusters", 2)
	v.SetDefault("algorithm.num_parents", 50)
	v.SetDefault("algorithm.num_iterations", 1000)
	v.SetDefault("algorithm.elite_percentage", 0.1)
	v.SetDefault("algorithm.mutation_percentage", 0.1)
	v.SetDefault("algorithm.normalize_scores", true)
	v.SetDefault("algorithm.random_seed", int64(0))

	// Time smoothing parameters
	v.SetDefault("smoothing.time_window", "no")
	v.SetDefault("smoothing.window_size", 0)
	v.SetDefault("smoothing.kernel", "uniform")
	v.SetDefault("smoothing.indent_time", true)
	v.SetDefault("smoothing.start", time.Time{})
	v.SetDefault("smoothing.stop", time.Time{})

	// Performance parameters
	v.SetDefault("performance.num_workers", runtime.NumCPU())

	// Logging parameters
	v.SetDefault("logging.level", "info")

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for variable selection
func (c *Config) Variable1() string          { return c.v.GetString("variables.variable1") }
func (c *Config) Variable1Document() bool    { return c.v.GetBool("variables.variable1_document") }
func (c *Config) Variable2() string          { return c.v.GetString("variables.variable2") }
func (c *Config) Variable2Document() bool    { return c.v.GetBool("variables.variable2_document") }
func (c *Config) Qualifier() string          { return c.v.GetString("variables.qualifier") }
func (c *Config) QualifierDocument() bool    { return c.v.GetBool("variables.qualifier_document") }

// Getters for algorithm parameters
func (c *Config) Algorithm() string           { return c.v.GetString("algorithm.name") }
func (c *Config) NumClusters() int            { return c.v.GetInt("algorithm.num_clusters") }
func (c *Config) NumParents() int             { return c.v.GetInt("algorithm.num_parents") }
func (c *Config) NumIterations() int          { return c.v.GetInt("algorithm.num_iterations") }
func (c *Config) ElitePercentage() float64    { return c.v.GetFloat64("algorithm.elite_percentage") }
func (c *Config) MutationPercentage() float64 { return c.v.GetFloat64("algorithm.mutation_percentage") }
func (c *Config) NormalizeScores() bool       { return c.v.GetBool("algorithm.normalize_scores") }
func (c *Config) RandomSeed() int64           { return c.v.GetInt64("algorithm.random_seed") }

// Getters for smoothing parameters
func (c *Config) TimeWindow() string  { return c.v.GetString("smoothing.time_window") }
func (c *Config) WindowSize() int     { return c.v.GetInt("smoothing.window_size") }
func (c *Config) Kernel() string      { return c.v.GetString("smoothing.kernel") }
func (c *Config) IndentTime() bool    { return c.v.GetBool("smoothing.indent_time") }
func (c *Config) Start() time.Time    { return c.v.GetTime("smoothing.start") }
func (c *Config) Stop() time.Time     { return c.v.GetTime("smoothing.stop") }

func (c *Config) NumWorkers() int  { return c.v.GetInt("performance.num_workers") }
func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "polarization").Logger()
}
