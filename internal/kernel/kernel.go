// Package kernel provides the runtime realizations of a specialized model
// kernel.
//
// The adaptive solver drives any realization through the [Kernel] interface:
//
//   - [GoKernel]: in-process realization backed by registered Go update
//     functions; always available, used when no native toolchain exists.
//   - [Native]: binding of a compiled, published kernel binary, resolved
//     through dlopen without cgo.
//
// Both share the numeric bookkeeping semantics of [Numeric]: one points,
// results and sum buffer per numeric sequence, plus an integrals buffer for
// fluxes, each one rank higher than the sequence itself.
package kernel

// Kernel is the per-step contract between the adaptive solver and a
// specialized model. Stage and method indices are 1-based; index 0 of the
// points buffers holds the step-start value.
type Kernel interface {
	// SnapshotStates records the live state values as the step-start
	// values and invalidates stale point entries.
	SnapshotStates()

	// RestoreStates resets the live state values to the step-start values.
	RestoreStates()

	// CalcSingleTerms evaluates the per-stage update methods, producing
	// flux values from the live state values.
	CalcSingleTerms()

	// CalcFullTerms completes a stage: new live states from the step-start
	// values and the integrated flux values.
	CalcFullTerms()

	SetPointStates(idxStage int)
	GetPointStates(idxStage int)
	SetResultStates(idxMethod int)
	SetPointFluxes(idxStage int)
	SetResultFluxes(idxMethod int)

	// IntegrateFluxes combines the recorded flux points with the given
	// coefficient row, scaled by dt, into each flux's live value.
	IntegrateFluxes(coefs []float64, dt float64)

	ResetSumFluxes()
	AddUpFluxes()

	// CalculateError returns the largest absolute and relative discrepancy
	// between the results at idxMethod and idxMethod-1 over all solver
	// sequences and elements.
	CalculateError(idxMethod int) (abserror, relerror float64)
}
