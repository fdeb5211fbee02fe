package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrNonConvergence indicates the local error could not be driven
	// below tolerance at the minimum step size and maximum method order.
	ErrNonConvergence = errors.New("solver: local error not convergent")

	// ErrBadConfig indicates inconsistent solver configuration.
	ErrBadConfig = errors.New("solver: invalid configuration")
)

// StepError wraps a runtime numeric failure with the step context the
// caller needs to decide whether to continue.
type StepError struct {
	T0        float64
	Dt        float64
	IdxMethod int
	AbsError  float64
	RelError  float64
	Wrapped   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%v (t0=%.6f dt=%.2e method=%d abserror=%.3e relerror=%.3e)",
		e.Wrapped, e.T0, e.Dt, e.IdxMethod, e.AbsError, e.RelError)
}

func (e *StepError) Unwrap() error { return e.Wrapped }
