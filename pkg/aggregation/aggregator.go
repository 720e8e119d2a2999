// Package aggregation provides the reference one-mode Aggregator: a
// kernel-weighted projection of bucketed statements onto a signed
// (variable 1 x variable 1) network, in the congruence or conflict role.
// Callers with their own aggregation semantics can substitute any
// implementation of models.Aggregator.
package aggregation

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/discoursenet/polarization-service/pkg/models"
)

// Kernel weight functions over u = (t - gamma) / halfWidth. The compact
// kernels are truncated at |u| > 1; the gaussian kernel covers the whole
// time range, which is why gaussian slices carry all statements.
const (
	KernelUniform      = "uniform"
	KernelTriangular   = "triangular"
	KernelEpanechnikov = "epanechnikov"
	KernelGaussian     = "gaussian"
)

// OneModeAggregator projects statement buckets onto the signed one-mode
// networks. Two first-variable nodes are tied whenever their statements meet
// on the same second-variable level; the tie contribution is the product of
// the two kernel weights and the qualifier agreement (congruence role) or
// disagreement (conflict role). Cell values are averaged over the number of
// contributing statement combinations.
type OneModeAggregator struct {
	kernel     string
	timeWindow string
	windowSize int

	qualifierType string

	logger zerolog.Logger
}

// New creates a one-mode aggregator. qualifierType is the declared data type
// of the qualifier variable, or empty when no qualifier is used.
func New(kernel, timeWindow string, windowSize int, qualifierType string, logger zerolog.Logger) *OneModeAggregator {
	return &OneModeAggregator{
		kernel:        kernel,
		timeWindow:    timeWindow,
		windowSize:    windowSize,
		qualifierType: qualifierType,
		logger:        logger,
	}
}

// unitDuration approximates one unit of a time-window granularity. Months
// and years use fixed civil approximations; the kernel weighting only needs
// relative offsets, not calendar arithmetic.
func unitDuration(unit string) time.Duration {
	switch unit {
	case "seconds":
		return time.Second
	case "minutes":
		return time.Minute
	case "hours":
		return time.Hour
	case "days":
		return 24 * time.Hour
	case "weeks":
		return 7 * 24 * time.Hour
	case "months":
		return 30 * 24 * time.Hour
	case "years":
		return 365 * 24 * time.Hour
	}
	return 0
}

// weight evaluates the kernel at a statement's offset from the slice midpoint.
func (a *OneModeAggregator) weight(t, gamma time.Time) float64 {
	if a.timeWindow == "no" || a.windowSize == 0 {
		return 1.0
	}
	halfWidth := unitDuration(a.timeWindow) * time.Duration(a.windowSize) / 2
	if halfWidth <= 0 {
		return 1.0
	}
	u := float64(t.Sub(gamma)) / float64(halfWidth)
	switch a.kernel {
	case KernelUniform:
		if math.Abs(u) <= 1 {
			return 0.5
		}
		return 0.0
	case KernelTriangular:
		if math.Abs(u) <= 1 {
			return 1 - math.Abs(u)
		}
		return 0.0
	case KernelEpanechnikov:
		if math.Abs(u) <= 1 {
			return 0.75 * (1 - u*u)
		}
		return 0.0
	case KernelGaussian:
		return math.Exp(-0.5*u*u) / math.Sqrt(2*math.Pi)
	}
	return 1.0
}

// qualifierLevels maps the qualifier axis of a bucket array onto numeric
// levels for graded agreement. Non-numeric qualifiers compare by identity.
func (a *OneModeAggregator) qualifierLevels(nq int) []float64 {
	levels := make([]float64, nq)
	for i := range levels {
		levels[i] = float64(i)
	}
	return levels
}

// agreement scores how strongly two qualifier levels agree, in [0, 1].
// Integer and boolean qualifiers grade by distance over the level range;
// everything else agrees only on identity.
func (a *OneModeAggregator) agreement(q1, q2 int, levels []float64) float64 {
	switch a.qualifierType {
	case models.DataTypeInteger, models.DataTypeBoolean:
		span := levels[len(levels)-1] - levels[0]
		if span == 0 {
			return 1.0
		}
		return 1.0 - math.Abs(levels[q1]-levels[q2])/span
	default:
		if q1 == q2 {
			return 1.0
		}
		return 0.0
	}
}

// Build fills the skeleton with the one-mode projection for the given role.
func (a *OneModeAggregator) Build(skeleton *models.Matrix, buckets models.BucketArray, role models.Role) (*models.Matrix, error) {
	if skeleton == nil {
		return nil, models.ErrNilMatrix
	}
	n1 := len(buckets)
	if n1 == 0 {
		return skeleton, nil
	}
	n2 := len(buckets[0])
	nq := 0
	if n2 > 0 {
		nq = len(buckets[0][0])
	}
	levels := a.qualifierLevels(nq)

	counts := make([][]float64, skeleton.Dim())
	for i := range counts {
		counts[i] = make([]float64, skeleton.Dim())
	}

	gamma := skeleton.Midpoint
	for i := 0; i < n1; i++ {
		for j := i + 1; j < n1; j++ {
			for v := 0; v < n2; v++ {
				for q1 := 0; q1 < nq; q1++ {
					for q2 := 0; q2 < nq; q2++ {
						for _, s1 := range buckets[i][v][q1] {
							for _, s2 := range buckets[j][v][q2] {
								agree := a.agreement(q1, q2, levels)
								score := agree
								if role == models.RoleConflict {
									score = 1.0 - agree
								}
								w := a.weight(s1.DateTime, gamma) * a.weight(s2.DateTime, gamma)
								skeleton.Values[i][j] += w * score
								skeleton.Values[j][i] += w * score
								counts[i][j]++
								counts[j][i]++
							}
						}
					}
				}
			}
		}
	}

	// "average" combination: divide each cell by its contributing combinations
	for i := range skeleton.Values {
		for j := range skeleton.Values[i] {
			if counts[i][j] > 0 {
				skeleton.Values[i][j] /= counts[i][j]
			}
		}
	}

	a.logger.Debug().
		Str("role", string(role)).
		Int("nodes", skeleton.Dim()).
		Msg("One-mode network aggregated")

	return skeleton, nil
}
