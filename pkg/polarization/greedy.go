package polarization

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/discoursenet/polarization-service/pkg/models"
)

// greedyOptimizer runs the greedy membership swapping algorithm for one time
// slice: starting from a random balanced partition, scan all node pairs and
// accept every swap that improves the quality as soon as it is found, until a
// full pass finds no improving swap.
type greedyOptimizer struct {
	congruence *models.Matrix
	conflict   *models.Matrix

	normalize   bool
	numClusters int

	logger zerolog.Logger
}

// greedyTimeStep runs the greedy algorithm for a single time slice.
//
// Reviewer note: the guard below runs the non-degenerate branch only when the
// network has at least as many nodes as clusters AND a nonzero combined norm.
// The historical implementation entered it on `N >= K || combinedNorm == 0`,
// which inverts the evident intent; the AND combination of the genetic
// driver's guard is used here, while the node threshold stays at N < K (the
// genetic driver also treats N == K as degenerate).
func (g *greedyOptimizer) greedyTimeStep(seed int64) models.PolarizationResult {
	congruenceMatrix := g.congruence.Values
	conflictMatrix := g.conflict.Values
	n := g.congruence.Dim()

	congruenceNorm, _ := Norm1(congruenceMatrix)
	conflictNorm, _ := Norm1(conflictMatrix)
	combinedNorm := congruenceNorm + conflictNorm

	if n < g.numClusters || combinedNorm == 0.0 {
		// zero result because the network is empty or too small
		return models.DegenerateResult(g.congruence.Start, g.congruence.Stop, g.congruence.Midpoint)
	}

	rng := rand.New(rand.NewSource(seed))
	cs := NewRandomClusterSolution(n, g.numClusters, rng)
	mem := cs.Memberships()

	maxQArray := []float64{qualityAbsdiff(mem, congruenceMatrix, conflictMatrix, g.normalize, g.numClusters)}
	bestMemberships := append([]int(nil), mem...)
	maxQ := maxQArray[0]

	for {
		noChanges := true
		for i := 0; i < len(mem); i++ {
			for j := i + 1; j < len(mem); j++ {
				if mem[i] == mem[j] {
					continue
				}
				candidate := append([]int(nil), mem...)
				candidate[i], candidate[j] = candidate[j], candidate[i]
				q1 := qualityAbsdiff(mem, congruenceMatrix, conflictMatrix, g.normalize, g.numClusters)
				q2 := qualityAbsdiff(candidate, congruenceMatrix, conflictMatrix, g.normalize, g.numClusters)
				if q2 > q1 {
					mem = candidate
					maxQArray = append(maxQArray, q2)
					maxQ = q2
					bestMemberships = append([]int(nil), mem...)
					noChanges = false
				}
			}
		}
		if noChanges {
			break
		}
	}

	return models.PolarizationResult{
		MaxQHistory:      maxQArray,
		AvgQHistory:      append([]float64(nil), maxQArray...),
		SDQHistory:       make([]float64, len(maxQArray)),
		MaxQ:             maxQ,
		Memberships:      bestMemberships,
		RowNames:         append([]string(nil), g.congruence.RowNames...),
		EarlyConvergence: true,
		Start:            g.congruence.Start,
		Stop:             g.congruence.Stop,
		Midpoint:         g.congruence.Midpoint,
	}
}
