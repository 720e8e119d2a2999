package polarization

import (
	"math"
	"math/rand"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/discoursenet/polarization-service/pkg/models"
)

// geneticOptimizer runs the genetic algorithm for one time slice. All fields
// are fixed for the lifetime of the slice; the per-slice RNG is passed in.
type geneticOptimizer struct {
	congruence *models.Matrix
	conflict   *models.Matrix

	normalize          bool
	numClusters        int
	numParents         int
	numIterations      int
	elitePercentage    float64
	mutationPercentage float64

	logger zerolog.Logger
}

// membershipPair identifies an unordered pair of node indices used as a
// mutation target. Stored sorted so a pair hashes the same either way around.
type membershipPair struct {
	first  int
	second int
}

// geneticIteration holds the outcome of one generation: the children bred
// from the parent population and the quality scores of the parents.
type geneticIteration struct {
	children []*ClusterSolution
	q        []float64
}

// runIteration performs a single generation of the genetic algorithm:
// quality evaluation, elite retention, roulette crossover, and mutation.
func (g *geneticOptimizer) runIteration(parents []*ClusterSolution, rng *rand.Rand) geneticIteration {
	n := g.congruence.Dim()

	numElites := int(math.Round(g.elitePercentage * float64(g.numParents)))
	if numElites < 1 {
		numElites = 1
	}
	numMutations := int(math.Round(g.mutationPercentage * float64(n) / 2.0)) // pairs, hence half the nodes

	q := g.evaluateQuality(parents)
	children := g.eliteRetentionStep(parents, q, numElites)
	children = g.crossoverStep(parents, q, children, rng)
	g.mutationStep(children, numElites, numMutations, n, rng)

	return geneticIteration{children: children, q: q}
}

// evaluateQuality scores every parent solution with the absdiff quality function.
func (g *geneticOptimizer) evaluateQuality(parents []*ClusterSolution) []float64 {
	q := make([]float64, len(parents))
	for i, cs := range parents {
		q[i] = qualityAbsdiff(cs.memberships, g.congruence.Values, g.conflict.Values, g.normalize, g.numClusters)
	}
	return q
}

// eliteRetentionStep clones the top-quality parents into a fresh children list.
func (g *geneticOptimizer) eliteRetentionStep(parents []*ClusterSolution, q []float64, numElites int) []*ClusterSolution {
	qRanks := RanksDescending(q)
	children := make([]*ClusterSolution, 0, g.numParents)
	for i, rank := range qRanks {
		if rank < numElites {
			children = append(children, parents[i].Clone())
		}
	}
	return children
}

// crossoverStep fills the children list up to the population size using
// hybrid roulette wheel sampling: the first parent is always drawn
// fitness-proportionally, the second by a fair coin between another roulette
// draw and a uniform draw, to keep diversity in the gene pool.
func (g *geneticOptimizer) crossoverStep(parents []*ClusterSolution, q []float64, children []*ClusterSolution, rng *rand.Rand) []*ClusterSolution {
	n := g.congruence.Dim()

	// shift fitness scores so they are non-negative with a positive sum
	shifted := make([]float64, len(q))
	copy(shifted, q)
	qMinimum := shifted[0]
	for _, v := range shifted {
		if v < qMinimum {
			qMinimum = v
		}
	}
	qTotal := 0.0
	if qMinimum < 0 {
		for i := range shifted {
			shifted[i] -= qMinimum
		}
	}
	for _, v := range shifted {
		qTotal += v
	}
	if qTotal == 0.0 {
		for i := range shifted {
			shifted[i] = 1.0
		}
		qTotal = float64(len(shifted))
	}

	roulette := func() int {
		r := rng.Float64() * qTotal
		cumulative := 0.0
		for i, v := range shifted {
			cumulative += v
			if r <= cumulative {
				return i
			}
		}
		return len(shifted) - 1
	}

	for len(children) < g.numParents {
		firstParentIndex := roulette()
		secondParentIndex := firstParentIndex
		for secondParentIndex == firstParentIndex {
			if rng.Float64() <= 0.5 {
				secondParentIndex = roulette()
			} else {
				secondParentIndex = rng.Intn(len(shifted))
			}
		}

		childMemberships, err := parents[firstParentIndex].Crossover(parents[secondParentIndex].memberships, rng)
		if err != nil {
			g.logger.Error().Err(err).Msg("Crossover failed; substituting a random solution")
			children = append(children, NewRandomClusterSolution(n, g.numClusters, rng))
			continue
		}
		child, err := NewClusterSolution(n, g.numClusters, childMemberships)
		if err != nil {
			g.logger.Error().Err(err).Msg("Invalid child solution; substituting a random solution")
			child = NewRandomClusterSolution(n, g.numClusters, rng)
		}
		children = append(children, child)
	}
	return children
}

// mutationStep swaps the cluster memberships of randomly chosen node pairs in
// every non-elite child. Pairs are unique per child and always span two
// different clusters, so cluster sizes are preserved.
func (g *geneticOptimizer) mutationStep(children []*ClusterSolution, numElites, numMutations, n int, rng *rand.Rand) {
	if numMutations <= 0 {
		return
	}
	for i := numElites; i < len(children); i++ {
		memberships := children[i].memberships
		seen := make(map[membershipPair]bool)
		pairs := make([]membershipPair, 0, numMutations)
		for len(pairs) < numMutations {
			firstIndex := rng.Intn(n)
			secondIndex := rng.Intn(n)
			if firstIndex != secondIndex && memberships[firstIndex] != memberships[secondIndex] {
				if firstIndex > secondIndex {
					firstIndex, secondIndex = secondIndex, firstIndex
				}
				pair := membershipPair{firstIndex, secondIndex}
				if !seen[pair] {
					seen[pair] = true
					pairs = append(pairs, pair)
				}
			}
		}
		// apply in draw order so runs with the same seed stay identical
		for _, pair := range pairs {
			memberships[pair.first], memberships[pair.second] = memberships[pair.second], memberships[pair.first]
		}
	}
}

// round2 rounds to two decimal places, the resolution of the convergence test.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// geneticTimeStep runs the genetic algorithm for a single time slice.
func (g *geneticOptimizer) geneticTimeStep(seed int64) models.PolarizationResult {
	n := g.congruence.Dim()
	congruenceNorm, _ := Norm1(g.congruence.Values)
	conflictNorm, _ := Norm1(g.conflict.Values)

	// skip empty or near-empty networks
	if n <= g.numClusters || congruenceNorm+conflictNorm == 0 {
		return models.DegenerateResult(g.congruence.Start, g.congruence.Stop, g.congruence.Midpoint)
	}

	rng := rand.New(rand.NewSource(seed))
	maxQ := -1.0
	maxIndex := -1
	earlyConvergence := false
	lastIndex := g.numIterations - 1 // if convergence never fires, use the final iteration

	maxQArray := make([]float64, g.numIterations)
	avgQArray := make([]float64, g.numIterations)
	sdQArray := make([]float64, g.numIterations)

	cs := make([]*ClusterSolution, g.numParents)
	for i := range cs {
		cs[i] = NewRandomClusterSolution(n, g.numClusters, rng)
	}

	for i := 0; i < g.numIterations; i++ {
		iteration := g.runIteration(cs, rng)
		cs = iteration.children

		qualityScores := iteration.q
		maxQ = -1.0
		maxIndex = -1
		for j, v := range qualityScores {
			if v > maxQ {
				maxQ = v
				maxIndex = j
			}
		}
		avgQ := stat.Mean(qualityScores, nil)

		// Note: this is the sum of per-element sqrt terms, not the standard
		// deviation proper. Kept as is to reproduce published outputs.
		sdQ := 0.0
		for _, v := range qualityScores {
			sdQ += math.Sqrt((v - avgQ) * (v - avgQ) / float64(g.numParents))
		}

		maxQArray[i] = maxQ
		avgQArray[i] = avgQ
		sdQArray[i] = sdQ

		earlyConvergence = false
		if i >= 10 && round2(sdQ) == 0.0 && round2(maxQ) == round2(avgQ) {
			earlyConvergence = true
			for j := i - 10; j < i; j++ {
				if round2(maxQArray[j]) != round2(maxQ) ||
					round2(avgQArray[j]) != round2(avgQ) ||
					round2(sdQArray[j]) != 0.0 {
					earlyConvergence = false
				}
			}
		}
		if earlyConvergence {
			lastIndex = i
			break
		}
	}

	// trim the trailing plateau: keep history up to the first index whose
	// maximum already equals the final maximum
	finalIndex := lastIndex
	for i := lastIndex; i >= 0; i-- {
		if maxQArray[i] == maxQArray[lastIndex] {
			finalIndex = i
		} else {
			break
		}
	}

	return models.PolarizationResult{
		MaxQHistory:      append([]float64(nil), maxQArray[:finalIndex+1]...),
		AvgQHistory:      append([]float64(nil), avgQArray[:finalIndex+1]...),
		SDQHistory:       append([]float64(nil), sdQArray[:finalIndex+1]...),
		MaxQ:             maxQ,
		Memberships:      cs[maxIndex].Memberships(),
		RowNames:         append([]string(nil), g.congruence.RowNames...),
		EarlyConvergence: earlyConvergence,
		Start:            g.congruence.Start,
		Stop:             g.congruence.Stop,
		Midpoint:         g.congruence.Midpoint,
	}
}
