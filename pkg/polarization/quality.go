package polarization

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/discoursenet/polarization-service/pkg/models"
)

// Norm1 calculates the entrywise 1-norm (= the sum of absolute cell values)
// of a matrix given as a two-dimensional double array.
func Norm1(matrix [][]float64) (float64, error) {
	if matrix == nil {
		return 0, models.ErrNilMatrix
	}
	sum := 0.0
	for _, row := range matrix {
		sum += floats.Norm(row, 1)
	}
	return sum, nil
}

// RanksDescending ranks the values of a double array in descending order,
// starting at 0. Ties resolve in favor of the lower original index.
func RanksDescending(values []float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})
	ranks := make([]int, len(values))
	for rank, i := range idx {
		ranks[i] = rank
	}
	return ranks
}

// qualityAbsdiff calculates the polarization quality of a membership vector
// as the sum of absolute differences between observed and expected congruence
// and conflict within and between clusters. Higher values indicate stronger
// concentration of the signed ties relative to a uniform null.
func qualityAbsdiff(memberships []int, congruence, conflict [][]float64, normalize bool, numClusters int) float64 {
	congruenceNorm, _ := Norm1(congruence)
	conflictNorm, _ := Norm1(conflict)

	clusterMembers := make([]int, numClusters)
	for _, m := range memberships {
		clusterMembers[m]++
	}
	numWithinClusterDyads := 0
	for i := 0; i < numClusters; i++ {
		numWithinClusterDyads += clusterMembers[i] * (clusterMembers[i] - 1)
	}
	n := len(memberships)
	numBetweenClusterDyads := n*(n-1) - numWithinClusterDyads

	expectedWithinClusterCongruence := make([]float64, numClusters)
	if numWithinClusterDyads > 0 {
		for i := 0; i < numClusters; i++ {
			// proportion of within-cluster dyads that fall into cluster i
			clusterFactor := float64(clusterMembers[i]*(clusterMembers[i]-1)) / float64(numWithinClusterDyads)
			expectedWithinClusterCongruence[i] = clusterFactor * (congruenceNorm / float64(numWithinClusterDyads))
		}
	}

	absdiff := 0.0
	for i := 0; i < len(congruence); i++ {
		for j := 0; j < len(congruence[0]); j++ {
			if i == j {
				continue
			}
			if memberships[i] == memberships[j] {
				absdiff += math.Abs(congruence[i][j] - expectedWithinClusterCongruence[memberships[i]])
				absdiff += math.Abs(conflict[i][j])
			} else {
				absdiff += math.Abs(congruence[i][j])
				expectedBetweenClusterConflict := 0.0
				if numBetweenClusterDyads > 0 {
					betweenFactor := float64(clusterMembers[memberships[i]]*clusterMembers[memberships[j]]) / float64(numBetweenClusterDyads)
					expectedBetweenClusterConflict = betweenFactor * (conflictNorm / float64(numBetweenClusterDyads))
				}
				absdiff += math.Abs(conflict[i][j] - expectedBetweenClusterConflict)
			}
		}
	}

	// each dyad is counted twice (ordered pairs), hence the 2.0 and 0.5 factors
	if normalize {
		denominator := 2.0 * (congruenceNorm + conflictNorm)
		if denominator > 0 {
			return absdiff / denominator
		}
	}
	return absdiff * 0.5
}
