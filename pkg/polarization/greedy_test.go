package polarization

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func newGreedyFixture(congruence, conflict [][]float64) *greedyOptimizer {
	return &greedyOptimizer{
		congruence:  makeMatrix(congruence),
		conflict:    makeMatrix(conflict),
		normalize:   true,
		numClusters: 2,
		logger:      zerolog.Nop(),
	}
}

func TestGreedyFindsOptimum(t *testing.T) {
	// for the two-camp congruence fixture the quality function peaks at 0.75
	// on the partitions that separate both agreeing pairs
	for seed := int64(1); seed <= 10; seed++ {
		g := newGreedyFixture(blockCongruence(), zeros(4))
		result := g.greedyTimeStep(seed)

		if math.Abs(result.MaxQ-0.75) > 1e-12 {
			t.Fatalf("seed %d: maxQ = %v, want 0.75", seed, result.MaxQ)
		}
		mem := result.Memberships
		if mem[0] == mem[1] || mem[2] == mem[3] {
			t.Fatalf("seed %d: memberships %v do not separate the agreeing pairs", seed, mem)
		}
	}
}

func TestGreedyTrajectoryStrictlyIncreasing(t *testing.T) {
	g := newGreedyFixture(blockCongruence(), blockConflict())
	result := g.greedyTimeStep(17)

	for i := 1; i < len(result.MaxQHistory); i++ {
		if result.MaxQHistory[i] <= result.MaxQHistory[i-1] {
			t.Fatalf("accepted swap did not improve quality at step %d: %v",
				i, result.MaxQHistory)
		}
	}
}

func TestGreedyResultShape(t *testing.T) {
	g := newGreedyFixture(blockCongruence(), blockConflict())
	result := g.greedyTimeStep(3)

	if !result.EarlyConvergence {
		t.Error("greedy results always report convergence")
	}
	if len(result.AvgQHistory) != len(result.MaxQHistory) {
		t.Fatalf("avgQ length %d != maxQ length %d", len(result.AvgQHistory), len(result.MaxQHistory))
	}
	for i := range result.AvgQHistory {
		if result.AvgQHistory[i] != result.MaxQHistory[i] {
			t.Error("greedy avgQ must mirror maxQ")
			break
		}
	}
	for _, sd := range result.SDQHistory {
		if sd != 0 {
			t.Error("greedy sdQ must be all zeros")
			break
		}
	}
	assertBalanced(t, result.Memberships, 2)
}

func TestGreedyDegenerateSlices(t *testing.T) {
	// fewer nodes than clusters
	g := newGreedyFixture([][]float64{{0}}, [][]float64{{0}})
	g.numClusters = 2
	result := g.greedyTimeStep(1)
	if len(result.Memberships) != 0 || result.MaxQ != 0 {
		t.Errorf("expected degenerate result for N < K, got %+v", result)
	}

	// empty networks
	g = newGreedyFixture(zeros(4), zeros(4))
	result = g.greedyTimeStep(1)
	if len(result.Memberships) != 0 || result.MaxQ != 0 {
		t.Errorf("expected degenerate result for zero norms, got %+v", result)
	}
}

func TestGeneticMatchesGreedyOnSmallNetwork(t *testing.T) {
	// on four nodes both optimizers must land on the analytic optimum
	greedy := newGreedyFixture(blockCongruence(), blockConflict())
	greedyResult := greedy.greedyTimeStep(42)

	genetic := newGeneticFixture(blockCongruence(), blockConflict())
	genetic.numIterations = 200
	geneticResult := genetic.geneticTimeStep(42)

	if math.Abs(greedyResult.MaxQ-geneticResult.MaxQ) > 1e-6 {
		t.Errorf("greedy maxQ %v != genetic maxQ %v",
			greedyResult.MaxQ, geneticResult.MaxQ)
	}
}
