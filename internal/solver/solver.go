// Package solver implements the adaptive multi-stage integration protocol
// driving a specialized kernel through one coarse step with automatic
// step-size and error control.
package solver

import (
	"fmt"
	"math"

	"github.com/sivogel/hydpy-sub000/internal/kernel"
	"github.com/sivogel/hydpy-sub000/internal/model"
)

// Config bounds the step control. The step-size floor and the method-order
// ceiling are explicit here: when both are exhausted the step fails with a
// runtime numeric error instead of looping forever.
type Config struct {
	// AbsTolerance is the largest acceptable local absolute error.
	AbsTolerance float64
	// RelTolerance is the largest acceptable local relative error;
	// NaN disables relative tracking.
	RelTolerance float64
	// DtMin is the smallest micro-step, as a fraction of the coarse step.
	DtMin float64
	// MaxMethods caps the method order tried before shrinking dt;
	// 0 means the descriptor's full method count.
	MaxMethods int
}

// DefaultConfig mirrors the usual tolerances of the reference models.
func DefaultConfig() Config {
	return Config{
		AbsTolerance: 1e-4,
		RelTolerance: math.NaN(),
		DtMin:        1e-3,
	}
}

// NumVars is the live numeric bookkeeping of a solve.
type NumVars struct {
	UseRelError  bool
	T0, T1       float64
	Dt, DtEst    float64
	AbsError     float64
	RelError     float64
	LastAbsError float64
	IdxMethod    int
	IdxStage     int
	F0Ready      bool
	StepsTaken   int
}

// Solver advances a kernel through coarse steps. The time axis inside one
// coarse step is normalized to [0, 1]; dt is a step fraction.
type Solver struct {
	kern   kernel.Kernel
	consts model.NumConsts
	cfg    Config
	coefs  [][][]float64
	vars   NumVars
}

// New builds a solver over k from the descriptor's solver constants,
// with the default coefficient table for the constants' method count.
func New(k kernel.Kernel, consts model.NumConsts, cfg Config) (*Solver, error) {
	if consts.NmbMethods < 2 || consts.NmbStages < consts.NmbMethods {
		return nil, fmt.Errorf("%w: need nmb_stages >= nmb_methods >= 2", ErrBadConfig)
	}
	if consts.DtIncrease <= 1 || consts.DtDecrease <= 1 {
		return nil, fmt.Errorf("%w: dt factors must exceed 1", ErrBadConfig)
	}
	if cfg.AbsTolerance <= 0 {
		return nil, fmt.Errorf("%w: absolute tolerance must be positive", ErrBadConfig)
	}
	if cfg.DtMin <= 0 || cfg.DtMin > 1 {
		return nil, fmt.Errorf("%w: dt floor must lie in (0, 1]", ErrBadConfig)
	}
	if cfg.MaxMethods < 0 || cfg.MaxMethods > consts.NmbMethods {
		return nil, fmt.Errorf("%w: method ceiling outside 0..%d", ErrBadConfig, consts.NmbMethods)
	}
	if cfg.MaxMethods == 1 {
		// Error estimation compares consecutive orders; a ceiling of one
		// leaves nothing to compare and no step could ever be accepted.
		return nil, fmt.Errorf("%w: method ceiling must allow at least two orders", ErrBadConfig)
	}
	return &Solver{
		kern:   k,
		consts: consts,
		cfg:    cfg,
		coefs:  Coefficients(consts.NmbMethods),
	}, nil
}

// SetCoefficients replaces the coefficient table;
// row [m-1][s-1] must carry the point weights of stage s of method m.
func (s *Solver) SetCoefficients(coefs [][][]float64) { s.coefs = coefs }

// Vars returns a copy of the current numeric bookkeeping.
func (s *Solver) Vars() NumVars { return s.vars }

// Solve advances the kernel through one coarse step. The flux running sums
// hold the coarse totals afterwards, independent of how many micro-steps
// the error control needed. A numeric failure aborts only this step; the
// kernel keeps the last accepted state.
func (s *Solver) Solve() error {
	v := &s.vars
	v.UseRelError = !math.IsNaN(s.cfg.RelTolerance)
	if num, ok := s.kern.(interface{ SetUseRelError(bool) }); ok {
		num.SetUseRelError(v.UseRelError)
	}
	maxMethods := s.cfg.MaxMethods
	if maxMethods == 0 {
		maxMethods = s.consts.NmbMethods
	}

	v.T0, v.T1 = 0, 1
	v.DtEst = 1
	v.F0Ready = false
	v.StepsTaken = 0
	s.kern.ResetSumFluxes()

	for v.T0 < v.T1-1e-14 {
		// Bound dt by the floor and the remaining horizon.
		v.Dt = math.Min(v.T1-v.T0, math.Max(v.DtEst, s.cfg.DtMin))
		if !v.F0Ready {
			// Step start: snapshot the accepted states and record the
			// flux at t0 as point 0.
			s.kern.SnapshotStates()
			s.kern.CalcSingleTerms()
			s.kern.SetPointFluxes(0)
			v.F0Ready = true
		}

		v.LastAbsError = math.Inf(1)
		accepted := false
		for v.IdxMethod = 1; v.IdxMethod <= maxMethods; v.IdxMethod++ {
			for v.IdxStage = 1; v.IdxStage <= v.IdxMethod; v.IdxStage++ {
				s.kern.GetPointStates(v.IdxStage)
				s.kern.CalcSingleTerms()
				s.kern.SetPointFluxes(v.IdxStage)
				s.kern.IntegrateFluxes(s.coefs[v.IdxMethod-1][v.IdxStage-1], v.Dt)
				s.kern.CalcFullTerms()
				s.kern.SetPointStates(v.IdxStage)
			}
			s.kern.SetResultFluxes(v.IdxMethod)
			s.kern.SetResultStates(v.IdxMethod)
			if v.IdxMethod == 1 {
				continue
			}
			v.AbsError, v.RelError = s.kern.CalculateError(v.IdxMethod)
			if s.withinTolerance() {
				accepted = true
				break
			}
			if v.AbsError >= v.LastAbsError {
				// Raising the order stopped helping; only a smaller
				// step can reduce the error further.
				break
			}
			v.LastAbsError = v.AbsError
		}
		if v.IdxMethod > maxMethods {
			// The loop index walks one past the ceiling when every order
			// was rejected.
			v.IdxMethod = maxMethods
		}

		if accepted {
			s.kern.AddUpFluxes()
			v.T0 += v.Dt
			v.DtEst = v.Dt * s.consts.DtIncrease
			v.F0Ready = false
			v.StepsTaken++
			continue
		}
		if v.Dt <= s.cfg.DtMin*(1+1e-12) {
			return &StepError{
				T0:        v.T0,
				Dt:        v.Dt,
				IdxMethod: v.IdxMethod,
				AbsError:  v.AbsError,
				RelError:  v.RelError,
				Wrapped:   ErrNonConvergence,
			}
		}
		// Shrink and retry from the snapshot; the step-start flux stays
		// valid, the stale points do not.
		v.DtEst = v.Dt / s.consts.DtDecrease
		s.kern.RestoreStates()
		s.kern.SnapshotStates()
	}
	return nil
}

func (s *Solver) withinTolerance() bool {
	v := &s.vars
	if v.AbsError > s.cfg.AbsTolerance {
		return false
	}
	if v.UseRelError && v.RelError > s.cfg.RelTolerance {
		return false
	}
	return true
}
