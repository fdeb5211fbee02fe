package models

import (
	"math"
	"testing"

	"github.com/sivogel/hydpy-sub000/internal/solver"
)

func TestDescriptorsValidate(t *testing.T) {
	for _, name := range Names() {
		d := Build(name, 10)
		if d == nil {
			t.Fatalf("missing built-in descriptor %s", name)
		}
		if err := d.Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if Build("nonexistent", 10) != nil {
		t.Error("expected nil for unknown descriptor name")
	}
}

func TestReservoirAgainstAnalytic(t *testing.T) {
	rk, err := NewReservoirKernel(10)
	if err != nil {
		t.Fatalf("kernel: %v", err)
	}
	rk.Inflow = 2.0
	rk.K = 4.2
	s := rk.Var("s")
	s.Values[0] = 10.0

	sol, err := solver.New(rk, *rk.Descriptor().Solver, solver.DefaultConfig())
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	if err := sol.Solve(); err != nil {
		t.Fatalf("solve: %v", err)
	}

	// s' = p - s/k over one unit step has the closed form
	// s1 = p*k + (s0 - p*k) * exp(-1/k).
	want := 2.0*4.2 + (10.0-2.0*4.2)*math.Exp(-1.0/4.2)
	if diff := math.Abs(s.Values[0] - want); diff > 1e-3 {
		t.Errorf("state after one step: got %f, want %f (diff %g)", s.Values[0], want, diff)
	}
}

func TestReservoirMassBalance(t *testing.T) {
	rk, err := NewReservoirKernel(10)
	if err != nil {
		t.Fatalf("kernel: %v", err)
	}
	s := rk.Var("s")
	s.Values[0] = 5.0
	s0 := s.Values[0]

	sol, err := solver.New(rk, *rk.Descriptor().Solver, solver.DefaultConfig())
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	if err := sol.Solve(); err != nil {
		t.Fatalf("solve: %v", err)
	}

	qinTotal := rk.Var("qin").Sum[0]
	qoutTotal := rk.Var("qout").Sum[0]
	balance := s0 + qinTotal - qoutTotal
	if diff := math.Abs(s.Values[0] - balance); diff > 1e-10 {
		t.Errorf("mass balance violated: state %f vs balance %f", s.Values[0], balance)
	}
	if diff := math.Abs(qinTotal - rk.Inflow); diff > 1e-10 {
		t.Errorf("inflow total: got %f, want %f", qinTotal, rk.Inflow)
	}
}

func TestCascadeMassBalance(t *testing.T) {
	ck, err := NewCascadeKernel(10, DefaultCells)
	if err != nil {
		t.Fatalf("kernel: %v", err)
	}
	sv := ck.Var("sv")
	var s0 float64
	for i := range sv.Values {
		sv.Values[i] = 3.0
		s0 += sv.Values[i]
	}

	sol, err := solver.New(ck, *ck.Descriptor().Solver, solver.DefaultConfig())
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	if err := sol.Solve(); err != nil {
		t.Fatalf("solve: %v", err)
	}

	var s1 float64
	for _, v := range sv.Values {
		s1 += v
	}
	qzTotal := ck.Var("qz").Sum[0]
	last := len(sv.Values) - 1
	qOut := ck.Var("q").Sum[last]
	if diff := math.Abs(s1 - (s0 + qzTotal - qOut)); diff > 1e-10 {
		t.Errorf("cascade mass balance violated by %g", diff)
	}
}

func TestCascadeDampensDownstream(t *testing.T) {
	ck, err := NewCascadeKernel(10, DefaultCells)
	if err != nil {
		t.Fatalf("kernel: %v", err)
	}
	ck.Inflow = 10.0
	ck.K = 2.0

	sol, err := solver.New(ck, *ck.Descriptor().Solver, solver.DefaultConfig())
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	// Starting from empty storage the pulse must arrive attenuated cell
	// by cell within the first step.
	if err := sol.Solve(); err != nil {
		t.Fatalf("solve: %v", err)
	}
	q := ck.Var("q").Sum
	for i := 1; i < len(q); i++ {
		if q[i] >= q[i-1] {
			t.Errorf("cell %d outflow %f not below upstream %f", i, q[i], q[i-1])
		}
	}
}
