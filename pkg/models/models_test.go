package models

import (
	"testing"
	"time"
)

func TestStatementValues(t *testing.T) {
	ts := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	s := NewStatement(7, ts).
		SetValue("organization", "org A").
		SetValue("intensity", 3).
		SetValue("agreement", true)
	s.Author = "reporter"
	s.DocumentID = 12

	if got := s.EntityValue("organization"); got != "org A" {
		t.Errorf("EntityValue = %q, want %q", got, "org A")
	}
	if v, ok := s.IntValue("intensity"); !ok || v != 3 {
		t.Errorf("IntValue(intensity) = %d, %v", v, ok)
	}
	// booleans surface as 0/1
	if v, ok := s.IntValue("agreement"); !ok || v != 1 {
		t.Errorf("IntValue(agreement) = %d, %v", v, ok)
	}
	if _, ok := s.IntValue("organization"); ok {
		t.Error("IntValue must reject non-numeric values")
	}
	if got := s.DocumentValue("author"); got != "reporter" {
		t.Errorf("DocumentValue(author) = %q", got)
	}
	if got := s.DocumentValue("id"); got != "12" {
		t.Errorf("DocumentValue(id) = %q, want 12", got)
	}
}

func TestMatrixZeroDiagonalAndClone(t *testing.T) {
	ts := time.Now()
	m := NewMatrix([]string{"a", "b"}, ts, ts, ts)
	m.Values[0][0] = 5
	m.Values[0][1] = 2
	m.Values[1][1] = 3

	clone := m.Clone()
	m.ZeroDiagonal()

	if m.Values[0][0] != 0 || m.Values[1][1] != 0 {
		t.Error("diagonal not zeroed")
	}
	if m.Values[0][1] != 2 {
		t.Error("off-diagonal cell changed")
	}
	if clone.Values[0][0] != 5 {
		t.Error("clone shares storage with the original")
	}
	if clone.Dim() != 2 {
		t.Errorf("clone dim = %d, want 2", clone.Dim())
	}
}

func TestBucketArray(t *testing.T) {
	x := NewBucketArray(2, 3, 1)
	s := NewStatement(1, time.Now())
	x.Add(1, 2, 0, s)
	if len(x[1][2][0]) != 1 {
		t.Error("statement not added to bucket")
	}
	if len(x[0][0][0]) != 0 {
		t.Error("unrelated bucket not empty")
	}
}

func TestDegenerateResult(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stop := start.AddDate(0, 0, 4)
	mid := start.AddDate(0, 0, 2)
	r := DegenerateResult(start, stop, mid)

	if r.MaxQ != 0 || !r.EarlyConvergence {
		t.Error("degenerate result must report zero quality and convergence")
	}
	if len(r.MaxQHistory) != 1 || len(r.AvgQHistory) != 1 || len(r.SDQHistory) != 1 {
		t.Error("degenerate trajectories must hold a single zero entry")
	}
	if len(r.Memberships) != 0 || len(r.RowNames) != 0 {
		t.Error("degenerate result must carry empty memberships and labels")
	}
	if !r.Start.Equal(start) || !r.Stop.Equal(stop) || !r.Midpoint.Equal(mid) {
		t.Error("degenerate result must keep the slice timestamps")
	}
}

func TestTimeSeriesAccessors(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := PolarizationResultTimeSeries{Results: []PolarizationResult{
		{MaxQ: 0.25, Midpoint: t0},
		{MaxQ: 0.75, Midpoint: t0.AddDate(0, 0, 1)},
	}}
	maxes := series.FinalMaxQ()
	if len(maxes) != 2 || maxes[0] != 0.25 || maxes[1] != 0.75 {
		t.Errorf("FinalMaxQ = %v", maxes)
	}
	mids := series.Midpoints()
	if len(mids) != 2 || !mids[1].After(mids[0]) {
		t.Errorf("Midpoints = %v", mids)
	}
}
