package kernel

import (
	"math"
	"testing"

	"github.com/sivogel/hydpy-sub000/internal/model"
)

func testDescriptor(methods int) *model.Descriptor {
	consts := model.DefaultNumConsts(methods)
	return &model.Descriptor{
		Name: "test",
		Sequences: []model.SequenceGroup{
			{Kind: model.Fluxes, Seqs: []model.Sequence{
				{Name: "q", Numeric: true},
			}},
			{Kind: model.States, Seqs: []model.Sequence{
				{Name: "s", Numeric: true},
			}},
		},
		Solver: &consts,
	}
}

func newTestNumeric(t *testing.T, methods int) *Numeric {
	t.Helper()
	n, err := NewNumeric(testDescriptor(methods), nil)
	if err != nil {
		t.Fatalf("numeric: %v", err)
	}
	return n
}

func TestIntegrateFluxesTrapezoid(t *testing.T) {
	n := newTestNumeric(t, 2)
	q := n.Var("q")
	q.Points[0][0] = 1.0
	q.Points[1][0] = 3.0

	n.IntegrateFluxes([]float64{0.5, 0.5}, 2.0)

	if q.Values[0] != 4.0 {
		t.Errorf("expected trapezoid integral 4.0, got %f", q.Values[0])
	}
	if q.Integrals[0][0] != 1.0 || q.Integrals[1][0] != 3.0 {
		t.Errorf("expected weighted partials [1.0 3.0], got [%f %f]",
			q.Integrals[0][0], q.Integrals[1][0])
	}
}

func TestResetAddUpSumFluxes(t *testing.T) {
	n := newTestNumeric(t, 2)
	q := n.Var("q")

	q.Sum[0] = 99.0
	n.ResetSumFluxes()
	if q.Sum[0] != 0 {
		t.Fatalf("expected reset sum, got %f", q.Sum[0])
	}

	for _, value := range []float64{10.0, 20.0, 30.0} {
		q.Values[0] = value
		n.AddUpFluxes()
		n.AddUpFluxes()
	}
	if q.Sum[0] != 120.0 {
		t.Errorf("expected accumulated sum 120.0, got %f", q.Sum[0])
	}

	n.GetSumFluxes()
	if q.Values[0] != 120.0 {
		t.Errorf("expected live value to carry the total, got %f", q.Values[0])
	}
}

func TestAddUpFluxesRankOne(t *testing.T) {
	d := testDescriptor(2)
	d.Sequences[0].Seqs[0].NDim = 1
	n, err := NewNumeric(d, map[string][]int{"q": {3}})
	if err != nil {
		t.Fatalf("numeric: %v", err)
	}
	q := n.Var("q")

	copy(q.Values, []float64{10.0, 20.0, 30.0})
	n.ResetSumFluxes()
	n.AddUpFluxes()
	n.AddUpFluxes()

	want := []float64{20.0, 40.0, 60.0}
	for i, w := range want {
		if q.Sum[i] != w {
			t.Errorf("sum[%d]: expected %f, got %f", i, w, q.Sum[i])
		}
	}
}

func TestPointStateFallback(t *testing.T) {
	n := newTestNumeric(t, 2)
	s := n.Var("s")

	s.Values[0] = 5.0
	n.SnapshotStates()

	// Unseeded stages yield the step-start value.
	s.Values[0] = -1.0
	n.GetPointStates(2)
	if s.Values[0] != 5.0 {
		t.Fatalf("expected fallback to step start, got %f", s.Values[0])
	}

	s.Values[0] = 7.5
	n.SetPointStates(2)
	s.Values[0] = 0.0
	n.GetPointStates(2)
	if s.Values[0] != 7.5 {
		t.Errorf("expected seeded stage value, got %f", s.Values[0])
	}

	// A new snapshot invalidates all seeded stages.
	n.SnapshotStates()
	s.Values[0] = -1.0
	n.GetPointStates(2)
	if s.Values[0] != 0.0 {
		t.Errorf("expected fallback to the new step start, got %f", s.Values[0])
	}
}

func TestRestoreStates(t *testing.T) {
	n := newTestNumeric(t, 2)
	s := n.Var("s")

	s.Values[0] = 3.0
	n.SnapshotStates()
	s.Values[0] = 9.0
	n.RestoreStates()
	if s.Values[0] != 3.0 {
		t.Errorf("expected restored step start 3.0, got %f", s.Values[0])
	}
}

func TestCalculateErrorAbsolute(t *testing.T) {
	n := newTestNumeric(t, 3)
	s := n.Var("s")
	q := n.Var("q")

	s.Results[1][0] = 1.0
	s.Results[2][0] = 1.5
	q.Results[1][0] = 2.0
	q.Results[2][0] = 2.1

	abserr, relerr := n.CalculateError(2)
	if abserr != 0.5 {
		t.Errorf("expected abs error 0.5, got %f", abserr)
	}
	if !math.IsInf(relerr, 1) {
		t.Errorf("expected infinite rel error while tracking is off, got %f", relerr)
	}
}

func TestCalculateErrorRelative(t *testing.T) {
	n := newTestNumeric(t, 3)
	n.SetUseRelError(true)
	s := n.Var("s")
	q := n.Var("q")

	s.Results[1][0] = 4.0
	s.Results[2][0] = 5.0
	q.Results[1][0] = 0.0
	q.Results[2][0] = 0.0

	abserr, relerr := n.CalculateError(2)
	if abserr != 1.0 {
		t.Errorf("expected abs error 1.0, got %f", abserr)
	}
	if relerr != 0.2 {
		t.Errorf("expected rel error 0.2, got %f", relerr)
	}

	// A result of exactly zero forces an infinite relative error.
	q.Results[2][0] = 0.5
	q.Results[1][0] = 0.5
	s.Results[2][0] = 0.0
	_, relerr = n.CalculateError(2)
	if !math.IsInf(relerr, 1) {
		t.Errorf("expected infinite rel error on zero result, got %f", relerr)
	}
}

func TestNewNumericNotSolverBearing(t *testing.T) {
	d := testDescriptor(2)
	d.Solver = nil
	if _, err := NewNumeric(d, nil); err == nil {
		t.Error("expected error for non-solver descriptor")
	}
}

func TestNewNumericMissingShape(t *testing.T) {
	d := testDescriptor(2)
	d.Sequences[0].Seqs[0].NDim = 1
	if _, err := NewNumeric(d, nil); err == nil {
		t.Error("expected error for missing axis lengths")
	}
	if _, err := NewNumeric(d, map[string][]int{"q": {4}}); err != nil {
		t.Errorf("expected shapes to satisfy rank-1 flux: %v", err)
	}
}

func TestGoKernelRunsRegisteredUpdates(t *testing.T) {
	d := testDescriptor(2)
	gk, err := NewGo(d, nil)
	if err != nil {
		t.Fatalf("kernel: %v", err)
	}
	q := gk.Var("q")
	s := gk.Var("s")
	s.Values[0] = 8.0

	gk.RegisterSingle(func(*GoKernel) { q.Values[0] = s.Values[0] / 2.0 })
	gk.RegisterFull(func(*GoKernel) { s.Values[0] = s.Old()[0] - q.Values[0] })

	gk.SnapshotStates()
	gk.CalcSingleTerms()
	if q.Values[0] != 4.0 {
		t.Errorf("expected flux 4.0, got %f", q.Values[0])
	}
	gk.CalcFullTerms()
	if s.Values[0] != 4.0 {
		t.Errorf("expected state 4.0, got %f", s.Values[0])
	}
}
