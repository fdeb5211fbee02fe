package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/sivogel/hydpy-sub000/internal/kernel"
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

// constantKernel realizes s' = rate, whose flux does not depend on the
// state at all.
func constantKernel(t *testing.T, methods int, rate float64) *kernel.GoKernel {
	t.Helper()
	gk, err := kernel.NewGo(testDescriptor(methods), nil)
	if err != nil {
		t.Fatalf("kernel: %v", err)
	}
	q := gk.Var("q")
	s := gk.Var("s")
	gk.RegisterSingle(func(*kernel.GoKernel) { q.Values[0] = rate })
	gk.RegisterFull(func(*kernel.GoKernel) { s.Values[0] = s.Old()[0] + q.Values[0] })
	return gk
}

// decayKernel realizes s' = -lambda * s.
func decayKernel(t *testing.T, methods int, lambda float64) *kernel.GoKernel {
	t.Helper()
	gk, err := kernel.NewGo(testDescriptor(methods), nil)
	if err != nil {
		t.Fatalf("kernel: %v", err)
	}
	q := gk.Var("q")
	s := gk.Var("s")
	gk.RegisterSingle(func(*kernel.GoKernel) { q.Values[0] = lambda * s.Values[0] })
	gk.RegisterFull(func(*kernel.GoKernel) { s.Values[0] = s.Old()[0] - q.Values[0] })
	return gk
}

func TestSolveConstantFluxSingleStep(t *testing.T) {
	gk := constantKernel(t, 4, 3.5)
	s := gk.Var("s")
	s.Values[0] = 1.0

	sol, err := New(gk, *testDescriptor(4).Solver, DefaultConfig())
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	if err := sol.Solve(); err != nil {
		t.Fatalf("solve: %v", err)
	}

	// A state-independent flux is integrated exactly by every method, so
	// the full coarse step is accepted at once.
	if got := sol.Vars().StepsTaken; got != 1 {
		t.Errorf("expected a single accepted step, got %d", got)
	}
	if diff := math.Abs(s.Values[0] - 4.5); diff > 1e-12 {
		t.Errorf("expected state 4.5, got %f", s.Values[0])
	}
	if diff := math.Abs(gk.Var("q").Sum[0] - 3.5); diff > 1e-12 {
		t.Errorf("expected flux total 3.5, got %f", gk.Var("q").Sum[0])
	}
}

func TestSolveDecayMatchesAnalytic(t *testing.T) {
	gk := decayKernel(t, 10, 0.8)
	s := gk.Var("s")
	s.Values[0] = 2.0

	sol, err := New(gk, *testDescriptor(10).Solver, DefaultConfig())
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	if err := sol.Solve(); err != nil {
		t.Fatalf("solve: %v", err)
	}

	want := 2.0 * math.Exp(-0.8)
	if diff := math.Abs(s.Values[0] - want); diff > 1e-3 {
		t.Errorf("decay after unit step: got %f, want %f (diff %g)", s.Values[0], want, diff)
	}

	// Flux totals must close the mass balance exactly.
	balance := 2.0 - gk.Var("q").Sum[0]
	if diff := math.Abs(s.Values[0] - balance); diff > 1e-10 {
		t.Errorf("mass balance violated: state %f vs %f", s.Values[0], balance)
	}
}

func TestSolveTighterToleranceTakesMoreCare(t *testing.T) {
	run := func(tol float64) float64 {
		gk := decayKernel(t, 10, 3.0)
		gk.Var("s").Values[0] = 1.0
		cfg := DefaultConfig()
		cfg.AbsTolerance = tol
		sol, err := New(gk, *testDescriptor(10).Solver, cfg)
		if err != nil {
			t.Fatalf("solver: %v", err)
		}
		if err := sol.Solve(); err != nil {
			t.Fatalf("solve: %v", err)
		}
		return math.Abs(gk.Var("s").Values[0] - math.Exp(-3.0))
	}

	loose := run(1e-2)
	tight := run(1e-8)
	if tight > loose {
		t.Errorf("tightening the tolerance must not worsen the result: %g > %g", tight, loose)
	}
	if tight > 1e-6 {
		t.Errorf("expected near-analytic result under tight tolerance, got diff %g", tight)
	}
}

// trialError runs one manual two-method trial step of size dt on a fresh
// decay kernel and returns the local absolute error between the orders.
func trialError(t *testing.T, dt float64) float64 {
	t.Helper()
	gk := decayKernel(t, 2, 2.0)
	gk.Var("s").Values[0] = 1.0
	coefs := Coefficients(2)

	gk.SnapshotStates()
	gk.CalcSingleTerms()
	gk.SetPointFluxes(0)

	for idxMethod := 1; idxMethod <= 2; idxMethod++ {
		for idxStage := 1; idxStage <= idxMethod; idxStage++ {
			gk.GetPointStates(idxStage)
			gk.CalcSingleTerms()
			gk.SetPointFluxes(idxStage)
			gk.IntegrateFluxes(coefs[idxMethod-1][idxStage-1], dt)
			gk.CalcFullTerms()
			gk.SetPointStates(idxStage)
		}
		gk.SetResultFluxes(idxMethod)
		gk.SetResultStates(idxMethod)
	}

	abserr, _ := gk.CalculateError(2)
	return abserr
}

func TestLocalErrorShrinksWithDt(t *testing.T) {
	coarse := trialError(t, 1.0)
	fine := trialError(t, 0.5)
	if !(fine < coarse) {
		t.Errorf("halving dt must shrink the local error: %g vs %g", fine, coarse)
	}
	if coarse == 0 {
		t.Error("a state-dependent flux must produce a nonzero local error")
	}
}

func TestSolveNonConvergenceAtFloor(t *testing.T) {
	gk, err := kernel.NewGo(testDescriptor(4), nil)
	if err != nil {
		t.Fatalf("kernel: %v", err)
	}
	q := gk.Var("q")
	s := gk.Var("s")
	calls := 0.0
	// Every evaluation yields a different flux, so no two methods ever
	// agree and the error never drops below tolerance.
	gk.RegisterSingle(func(*kernel.GoKernel) {
		calls += 1.0
		q.Values[0] = calls
	})
	gk.RegisterFull(func(*kernel.GoKernel) { s.Values[0] = s.Old()[0] + q.Values[0] })

	cfg := DefaultConfig()
	cfg.DtMin = 0.25
	sol, err := New(gk, *testDescriptor(4).Solver, cfg)
	if err != nil {
		t.Fatalf("solver: %v", err)
	}

	err = sol.Solve()
	if err == nil {
		t.Fatal("expected non-convergence")
	}
	if !errors.Is(err, ErrNonConvergence) {
		t.Errorf("expected ErrNonConvergence, got %v", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %T", err)
	}
	if stepErr.Dt > cfg.DtMin*(1+1e-9) {
		t.Errorf("failure must report the floored step, got dt %f", stepErr.Dt)
	}
	if stepErr.IdxMethod < 2 || stepErr.IdxMethod > 4 {
		t.Errorf("failure must report an order that was actually tried, got method %d", stepErr.IdxMethod)
	}
}

func TestSolveRelativeToleranceStallsOnZeroResult(t *testing.T) {
	// A state resting at zero produces zero results, which count as an
	// infinite relative error; such a solve must fail rather than accept.
	gk := decayKernel(t, 4, 0.5)
	gk.Var("s").Values[0] = 0.0

	cfg := DefaultConfig()
	cfg.RelTolerance = 1e-3
	cfg.DtMin = 0.5
	sol, err := New(gk, *testDescriptor(4).Solver, cfg)
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	if err := sol.Solve(); !errors.Is(err, ErrNonConvergence) {
		t.Errorf("expected ErrNonConvergence, got %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	gk := constantKernel(t, 2, 1.0)
	consts := *testDescriptor(2).Solver

	cases := []struct {
		name   string
		consts model.NumConsts
		mutate func(*Config)
	}{
		{"zero abs tolerance", consts, func(c *Config) { c.AbsTolerance = 0 }},
		{"dt floor above one", consts, func(c *Config) { c.DtMin = 1.5 }},
		{"zero dt floor", consts, func(c *Config) { c.DtMin = 0 }},
		{"method ceiling above table", consts, func(c *Config) { c.MaxMethods = 3 }},
		{"method ceiling of one", consts, func(c *Config) { c.MaxMethods = 1 }},
		{"single method table", model.NumConsts{NmbMethods: 1, NmbStages: 1, DtIncrease: 2, DtDecrease: 2}, func(*Config) {}},
		{"dt factor below one", model.NumConsts{NmbMethods: 2, NmbStages: 2, DtIncrease: 0.5, DtDecrease: 2}, func(*Config) {}},
		{"fewer stages than methods", model.NumConsts{NmbMethods: 2, NmbStages: 1, DtIncrease: 2, DtDecrease: 2}, func(*Config) {}},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if _, err := New(gk, tc.consts, cfg); !errors.Is(err, ErrBadConfig) {
			t.Errorf("%s: expected ErrBadConfig, got %v", tc.name, err)
		}
	}
}
