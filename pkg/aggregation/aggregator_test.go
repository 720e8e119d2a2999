package aggregation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/discoursenet/polarization-service/pkg/models"
)

var t0 = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

// booleanFixture buckets three statements of three organizations on one
// concept with a boolean qualifier: org A and org B agree (both level 1), org C
// disagrees with both (level 0).
func booleanFixture() (*models.Matrix, models.BucketArray) {
	labels := []string{"org A", "org B", "org C"}
	skeleton := models.NewMatrix(labels, t0, t0, t0)
	x := models.NewBucketArray(3, 1, 2)
	x.Add(0, 0, 1, models.NewStatement(1, t0))
	x.Add(1, 0, 1, models.NewStatement(2, t0))
	x.Add(2, 0, 0, models.NewStatement(3, t0))
	return skeleton, x
}

func TestBuildCongruenceAndConflict(t *testing.T) {
	agg := New(KernelUniform, "no", 0, models.DataTypeBoolean, zerolog.Nop())

	skeleton, x := booleanFixture()
	congruence, err := agg.Build(skeleton, x, models.RoleCongruence)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	// A and B share qualifier level 1: full agreement
	if congruence.Values[0][1] != 1.0 || congruence.Values[1][0] != 1.0 {
		t.Errorf("congruence A-B = %v, want 1", congruence.Values[0][1])
	}
	// A and C sit on opposite levels: no agreement
	if congruence.Values[0][2] != 0.0 {
		t.Errorf("congruence A-C = %v, want 0", congruence.Values[0][2])
	}

	skeleton, x = booleanFixture()
	conflict, err := agg.Build(skeleton, x, models.RoleConflict)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if conflict.Values[0][1] != 0.0 {
		t.Errorf("conflict A-B = %v, want 0", conflict.Values[0][1])
	}
	if conflict.Values[0][2] != 1.0 || conflict.Values[2][0] != 1.0 {
		t.Errorf("conflict A-C = %v, want 1", conflict.Values[0][2])
	}
}

func TestBuildAveragesCombinations(t *testing.T) {
	// two agreeing and one disagreeing statement of org A against one
	// statement of org B: the cell averages over the three combinations
	labels := []string{"org A", "org B"}
	skeleton := models.NewMatrix(labels, t0, t0, t0)
	x := models.NewBucketArray(2, 1, 2)
	x.Add(0, 0, 1, models.NewStatement(1, t0))
	x.Add(0, 0, 1, models.NewStatement(2, t0))
	x.Add(0, 0, 0, models.NewStatement(3, t0))
	x.Add(1, 0, 1, models.NewStatement(4, t0))

	agg := New(KernelUniform, "no", 0, models.DataTypeBoolean, zerolog.Nop())
	congruence, err := agg.Build(skeleton, x, models.RoleCongruence)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if math.Abs(congruence.Values[0][1]-2.0/3.0) > 1e-12 {
		t.Errorf("averaged congruence = %v, want 2/3", congruence.Values[0][1])
	}
}

func TestKernelWeights(t *testing.T) {
	agg := New(KernelUniform, "days", 4, "", zerolog.Nop())
	gamma := t0

	// inside the band the uniform kernel is flat
	if w := agg.weight(gamma.AddDate(0, 0, 1), gamma); w != 0.5 {
		t.Errorf("uniform weight inside band = %v, want 0.5", w)
	}
	// outside the band the compact kernels vanish
	if w := agg.weight(gamma.AddDate(0, 0, 3), gamma); w != 0.0 {
		t.Errorf("uniform weight outside band = %v, want 0", w)
	}

	agg = New(KernelTriangular, "days", 4, "", zerolog.Nop())
	if w := agg.weight(gamma.AddDate(0, 0, 1), gamma); math.Abs(w-0.5) > 1e-12 {
		t.Errorf("triangular weight at half offset = %v, want 0.5", w)
	}
	if w := agg.weight(gamma, gamma); w != 1.0 {
		t.Errorf("triangular weight at midpoint = %v, want 1", w)
	}

	agg = New(KernelEpanechnikov, "days", 4, "", zerolog.Nop())
	if w := agg.weight(gamma, gamma); w != 0.75 {
		t.Errorf("epanechnikov weight at midpoint = %v, want 0.75", w)
	}

	agg = New(KernelGaussian, "days", 4, "", zerolog.Nop())
	center := agg.weight(gamma, gamma)
	tail := agg.weight(gamma.AddDate(0, 0, 6), gamma)
	if center <= tail || tail <= 0 {
		t.Errorf("gaussian weights: center %v, tail %v; want decreasing and positive", center, tail)
	}
}

func TestBuildSymmetric(t *testing.T) {
	agg := New(KernelUniform, "no", 0, models.DataTypeBoolean, zerolog.Nop())
	skeleton, x := booleanFixture()
	congruence, err := agg.Build(skeleton, x, models.RoleCongruence)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i := range congruence.Values {
		for j := range congruence.Values {
			if congruence.Values[i][j] != congruence.Values[j][i] {
				t.Fatalf("matrix not symmetric at (%d, %d)", i, j)
			}
		}
	}
}

func TestBuildNilSkeleton(t *testing.T) {
	agg := New(KernelUniform, "no", 0, "", zerolog.Nop())
	if _, err := agg.Build(nil, nil, models.RoleCongruence); !errors.Is(err, models.ErrNilMatrix) {
		t.Errorf("error = %v, want ErrNilMatrix", err)
	}
}
