package polarization

import (
	"fmt"
	"math/rand"
)

// ClusterSolution is one candidate partition of the N network nodes into K
// clusters, stored as a membership vector with values in [0, K).
// All solutions produced here are balanced partitions: cluster sizes differ
// by at most one.
type ClusterSolution struct {
	memberships []int
	n           int
	k           int
}

// NewClusterSolution wraps an existing membership vector. The vector must
// have length n with all values in [0, k).
func NewClusterSolution(n, k int, memberships []int) (*ClusterSolution, error) {
	if n <= 0 {
		n = len(memberships)
	}
	if len(memberships) != n {
		return nil, fmt.Errorf("membership vector has length %d, want %d", len(memberships), n)
	}
	for _, m := range memberships {
		if m < 0 || m >= k {
			return nil, fmt.Errorf("membership value %d outside [0, %d)", m, k)
		}
	}
	cp := make([]int, n)
	copy(cp, memberships)
	return &ClusterSolution{memberships: cp, n: n, k: k}, nil
}

// NewRandomClusterSolution assigns the n nodes to k clusters at random while
// keeping the partition balanced: the pattern 0..k-1 is repeated until n
// values exist, then shuffled.
func NewRandomClusterSolution(n, k int, rng *rand.Rand) *ClusterSolution {
	memberships := make([]int, 0, n)
	for len(memberships) < n {
		for i := 0; i < k && len(memberships) < n; i++ {
			memberships = append(memberships, i)
		}
	}
	rng.Shuffle(len(memberships), func(i, j int) {
		memberships[i], memberships[j] = memberships[j], memberships[i]
	})
	return &ClusterSolution{memberships: memberships, n: n, k: k}
}

// Memberships returns a copy of the membership vector.
func (c *ClusterSolution) Memberships() []int {
	cp := make([]int, len(c.memberships))
	copy(cp, c.memberships)
	return cp
}

// N returns the number of nodes.
func (c *ClusterSolution) N() int { return c.n }

// K returns the number of clusters.
func (c *ClusterSolution) K() int { return c.k }

// Clone returns a deep copy of the solution.
func (c *ClusterSolution) Clone() *ClusterSolution {
	return &ClusterSolution{memberships: c.Memberships(), n: c.n, k: c.k}
}

// Crossover breeds this solution with a foreign membership vector and returns
// the child memberships. The foreign vector is left untouched. Steps: relabel
// this solution's clusters for maximum overlap with the foreign labels,
// recombine uniformly at random, then rebalance the cluster sizes.
func (c *ClusterSolution) Crossover(foreignMemberships []int, rng *rand.Rand) ([]int, error) {
	if len(foreignMemberships) != len(c.memberships) {
		return nil, fmt.Errorf("foreign membership vector has length %d, want %d",
			len(foreignMemberships), len(c.memberships))
	}

	overlap := overlapMatrix(c.memberships, foreignMemberships, c.k)
	relabeled := relabel(c.memberships, overlap)

	child := make([]int, len(relabeled))
	for i := range child {
		if rng.Intn(2) == 0 {
			child[i] = relabeled[i]
		} else {
			child[i] = foreignMemberships[i]
		}
	}

	return rebalance(child, c.k), nil
}

// overlapMatrix counts, for each pair of cluster labels, how many nodes carry
// the first label in memberships1 and the second in memberships2.
func overlapMatrix(memberships1, memberships2 []int, k int) [][]int {
	matrix := make([][]int, k)
	for i := range matrix {
		matrix[i] = make([]int, k)
	}
	for i := range memberships1 {
		matrix[memberships1[i]][memberships2[i]]++
	}
	return matrix
}

// relabel maps each cluster label to a distinct foreign label, greedily by
// descending overlap, and applies the map to the membership vector.
func relabel(memberships []int, overlap [][]int) []int {
	k := len(overlap)
	relabelMap := make([]int, k)
	for i := range relabelMap {
		relabelMap[i] = -1
	}
	assigned := make([]bool, k)

	rowValues := make([]float64, k)
	order := make([]int, k)
	for row := 0; row < k; row++ {
		for col := 0; col < k; col++ {
			rowValues[col] = float64(overlap[row][col])
		}
		ranks := RanksDescending(rowValues)
		for col, rank := range ranks {
			order[rank] = col
		}
		// pick the best not-yet-assigned column for this row
		for _, col := range order {
			if !assigned[col] {
				relabelMap[row] = col
				assigned[col] = true
				break
			}
		}
	}

	relabeled := make([]int, len(memberships))
	for i, m := range memberships {
		relabeled[i] = relabelMap[m]
	}
	return relabeled
}

// rebalance adjusts over-represented clusters until every cluster holds its
// target size: floor(n/k), plus one for the first n mod k clusters. Members
// move lowest index first into the first cluster with free capacity.
func rebalance(memberships []int, k int) []int {
	counts := make([]int, k)
	clusterIndices := make([][]int, k)
	for i, m := range memberships {
		counts[m]++
		clusterIndices[m] = append(clusterIndices[m], i)
	}

	base := len(memberships) / k
	extra := len(memberships) % k
	maxAllowed := make([]int, k)
	for i := range maxAllowed {
		maxAllowed[i] = base
		if i < extra {
			maxAllowed[i]++
		}
	}

	for i := 0; i < k; i++ {
		for counts[i] > maxAllowed[i] {
			for j := 0; j < k; j++ {
				if counts[j] < maxAllowed[j] {
					idx := clusterIndices[i][0]
					clusterIndices[i] = clusterIndices[i][1:]
					memberships[idx] = j
					counts[i]--
					counts[j]++
					clusterIndices[j] = append(clusterIndices[j], idx)
					break
				}
			}
		}
	}
	return memberships
}
