package polarization

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/discoursenet/polarization-service/pkg/models"
)

// ProgressCallback reports per-slice progress of a compute run.
type ProgressCallback func(completed, total int)

// Engine computes a polarization time series over a sequence of signed
// networks. It wires the statement source, the time slicer, the aggregator
// and the per-slice optimizers together and fans the slices out over a
// worker pool.
type Engine struct {
	config     *Config
	source     models.StatementSource
	aggregator models.Aggregator
	logger     zerolog.Logger
	progress   ProgressCallback

	mu      sync.RWMutex
	results *models.PolarizationResultTimeSeries
}

// NewEngine creates a polarization engine.
func NewEngine(config *Config, source models.StatementSource, aggregator models.Aggregator) *Engine {
	return &Engine{
		config:     config,
		source:     source,
		aggregator: aggregator,
		logger:     config.CreateLogger(),
	}
}

// SetProgressCallback registers an optional progress callback.
func (e *Engine) SetProgressCallback(cb ProgressCallback) {
	e.progress = cb
}

// Results returns the last computed series, or nil before the first compute.
func (e *Engine) Results() *models.PolarizationResultTimeSeries {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.results
}

// slicePair carries the two matrices of one slice through the pipeline. A nil
// pair (after an aggregation failure) degrades to a degenerate result.
type slicePair struct {
	congruence *models.Matrix
	conflict   *models.Matrix
	skeleton   *models.Matrix
}

// Compute validates the configuration, builds the kernel-smoothed matrix
// series and runs the configured optimizer over every slice in parallel.
// The returned series is in chronological slice order.
func (e *Engine) Compute(ctx context.Context) (*models.PolarizationResultTimeSeries, error) {
	runID := uuid.New().String()
	logger := e.logger.With().Str("run_id", runID).Logger()
	startTime := time.Now()

	e.config.Validate(logger)

	statements, err := e.source.LoadAndFilter()
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("statements", len(statements)).
		Str("algorithm", e.config.Algorithm()).
		Str("time_window", e.config.TimeWindow()).
		Str("kernel", e.config.Kernel()).
		Msg("Starting polarization computation")

	slicer := NewTimeSlicer(e.config, e.source, logger)
	var slices []TimeSlice
	if e.config.TimeWindow() == "no" {
		slices = []TimeSlice{slicer.SingleSlice(statements)}
	} else {
		slices, err = slicer.Slices(statements)
		if err != nil {
			return nil, err
		}
	}

	pairs, err := e.buildMatrices(ctx, slices, logger)
	if err != nil {
		return nil, err
	}

	results, err := e.optimizeSlices(ctx, pairs, logger)
	if err != nil {
		return nil, err
	}

	series := &models.PolarizationResultTimeSeries{Results: results}

	e.mu.Lock()
	e.results = series
	e.mu.Unlock()

	logger.Info().
		Int("slices", len(results)).
		Dur("runtime", time.Since(startTime)).
		Msg("Polarization computation completed")

	return series, nil
}

// buildMatrices fills the congruence and conflict matrices for every slice
// in parallel. An aggregation failure is fatal for its slice only: the slice
// keeps a nil pair and later yields a degenerate result.
func (e *Engine) buildMatrices(ctx context.Context, slices []TimeSlice, logger zerolog.Logger) ([]slicePair, error) {
	pairs := make([]slicePair, len(slices))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.NumWorkers())
	for t := range slices {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			congruence, conflict, err := buildSliceMatrices(e.aggregator, slices[t])
			if err != nil {
				logger.Error().Err(err).Int("slice", t).
					Msg("Matrix aggregation failed; slice degrades to a zero result")
				pairs[t] = slicePair{skeleton: slices[t].Skeleton}
				return nil
			}
			pairs[t] = slicePair{congruence: congruence, conflict: conflict, skeleton: slices[t].Skeleton}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// optimizeSlices runs the configured optimizer over all slices. One seed per
// slice is drawn from the master RNG before the parallel dispatch, so results
// are reproducible for a fixed random seed regardless of scheduling.
func (e *Engine) optimizeSlices(ctx context.Context, pairs []slicePair, logger zerolog.Logger) ([]models.PolarizationResult, error) {
	masterSeed := e.config.RandomSeed()
	if masterSeed == 0 {
		masterSeed = time.Now().UnixNano()
	}
	master := rand.New(rand.NewSource(masterSeed))
	seeds := make([]int64, len(pairs))
	for t := range seeds {
		seeds[t] = master.Int63()
	}

	results := make([]models.PolarizationResult, len(pairs))
	var completed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.NumWorkers())
	for t := range pairs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[t] = e.optimizeSlice(pairs[t], seeds[t], logger)
			if e.progress != nil {
				e.progress(int(completed.Add(1)), len(pairs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// optimizeSlice dispatches one slice to the configured optimizer.
func (e *Engine) optimizeSlice(pair slicePair, seed int64, logger zerolog.Logger) models.PolarizationResult {
	if pair.congruence == nil || pair.conflict == nil {
		return models.DegenerateResult(pair.skeleton.Start, pair.skeleton.Stop, pair.skeleton.Midpoint)
	}

	switch e.config.Algorithm() {
	case "genetic":
		optimizer := &geneticOptimizer{
			congruence:         pair.congruence,
			conflict:           pair.conflict,
			normalize:          e.config.NormalizeScores(),
			numClusters:        e.config.NumClusters(),
			numParents:         e.config.NumParents(),
			numIterations:      e.config.NumIterations(),
			elitePercentage:    e.config.ElitePercentage(),
			mutationPercentage: e.config.MutationPercentage(),
			logger:             logger,
		}
		return optimizer.geneticTimeStep(seed)
	default:
		optimizer := &greedyOptimizer{
			congruence:  pair.congruence,
			conflict:    pair.conflict,
			normalize:   e.config.NormalizeScores(),
			numClusters: e.config.NumClusters(),
			logger:      logger,
		}
		return optimizer.greedyTimeStep(seed)
	}
}
