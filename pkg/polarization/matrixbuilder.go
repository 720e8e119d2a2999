package polarization

import (
	"fmt"

	"github.com/discoursenet/polarization-service/pkg/models"
)

// buildSliceMatrices invokes the aggregator twice for one time slice, once
// per role, and zeroes the diagonals. Both matrices share the skeleton's
// dimensions and labels.
func buildSliceMatrices(aggregator models.Aggregator, slice TimeSlice) (*models.Matrix, *models.Matrix, error) {
	congruence, err := aggregator.Build(slice.Skeleton.Clone(), slice.Buckets, models.RoleCongruence)
	if err != nil {
		return nil, nil, fmt.Errorf("congruence aggregation failed: %w", err)
	}
	conflict, err := aggregator.Build(slice.Skeleton.Clone(), slice.Buckets, models.RoleConflict)
	if err != nil {
		return nil, nil, fmt.Errorf("conflict aggregation failed: %w", err)
	}
	congruence.ZeroDiagonal()
	conflict.ZeroDiagonal()
	return congruence, conflict, nil
}
