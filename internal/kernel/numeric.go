package kernel

import (
	"fmt"
	"math"

	"github.com/sivogel/hydpy-sub000/internal/model"
)

// Var is the runtime storage of one numeric sequence: its live values plus
// the stage/order bookkeeping buffers. Arrays of any rank are kept
// flattened; Shape records the per-axis lengths.
type Var struct {
	Name  string
	NDim  int
	Shape []int

	Values []float64
	old    []float64

	// Points holds one flattened value block per stage; index 0 is the
	// step-start block. Results holds one block per method order; index 0
	// is unused. Integrals (fluxes only) holds the weighted per-stage
	// partials of the last integration.
	Points    [][]float64
	Results   [][]float64
	Sum       []float64
	Integrals [][]float64
}

func newVar(seq model.Sequence, shape []int, stages, methods int, flux bool) *Var {
	n := 1
	for _, l := range shape {
		n *= l
	}
	v := &Var{
		Name:   seq.Name,
		NDim:   seq.NDim,
		Shape:  append([]int(nil), shape...),
		Values: make([]float64, n),
		old:    make([]float64, n),
		Sum:    make([]float64, n),
	}
	v.Points = makeBlocks(stages+1, n)
	v.Results = makeBlocks(methods+1, n)
	if flux {
		v.Integrals = makeBlocks(stages+1, n)
	}
	return v
}

func makeBlocks(k, n int) [][]float64 {
	out := make([][]float64, k)
	for i := range out {
		out[i] = make([]float64, n)
	}
	return out
}

// Len returns the flattened element count.
func (v *Var) Len() int { return len(v.Values) }

// Numeric is the shared buffer bank of a kernel realization: the numeric
// states and fluxes of one descriptor with their bookkeeping buffers, and
// the operations of the adaptive integration protocol over them.
type Numeric struct {
	States []*Var
	Fluxes []*Var

	// UseRelError enables relative error tracking; a result of exactly
	// zero then yields an infinite relative error.
	UseRelError bool

	byName map[string]*Var
	seeded []bool
}

// NewNumeric lays the buffers of every numeric sequence of d out. Shapes of
// rank>0 sequences come from the shapes map; a missing entry or a solver
// sequence of rank above 2 is an error.
func NewNumeric(d *model.Descriptor, shapes map[string][]int) (*Numeric, error) {
	consts := d.Solver
	if consts == nil {
		return nil, fmt.Errorf("model %s: not solver-bearing", d.Name)
	}
	n := &Numeric{
		byName: make(map[string]*Var),
		seeded: make([]bool, consts.NmbStages+1),
	}
	add := func(seq model.Sequence, flux bool) error {
		if seq.NDim > 2 {
			return &model.GenerationError{Model: d.Name, Name: seq.Name, Wrapped: model.ErrUnsupportedShape}
		}
		shape := shapes[seq.Name]
		if len(shape) != seq.NDim {
			return fmt.Errorf("model %s: sequence %s: need %d axis lengths, got %d",
				d.Name, seq.Name, seq.NDim, len(shape))
		}
		v := newVar(seq, shape, consts.NmbStages, consts.NmbMethods, flux)
		n.byName[seq.Name] = v
		if flux {
			n.Fluxes = append(n.Fluxes, v)
		} else {
			n.States = append(n.States, v)
		}
		return nil
	}
	for _, seq := range d.NumericStates() {
		if err := add(seq, false); err != nil {
			return nil, err
		}
	}
	for _, seq := range d.NumericFluxes() {
		if err := add(seq, true); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Var returns the storage of a numeric sequence by name, or nil.
func (n *Numeric) Var(name string) *Var { return n.byName[name] }

// SetUseRelError toggles relative error tracking.
func (n *Numeric) SetUseRelError(on bool) { n.UseRelError = on }

// SnapshotStates records the live state values as the step-start values and
// marks every point entry stale.
func (n *Numeric) SnapshotStates() {
	for _, v := range n.States {
		copy(v.old, v.Values)
	}
	for i := range n.seeded {
		n.seeded[i] = false
	}
}

// SetPointStates stores the live state values at idxStage.
func (n *Numeric) SetPointStates(idxStage int) {
	for _, v := range n.States {
		copy(v.Points[idxStage], v.Values)
	}
	n.seeded[idxStage] = true
}

// GetPointStates restores the live state values from idxStage, falling back
// to the step-start values while that stage has not been written since the
// last snapshot.
func (n *Numeric) GetPointStates(idxStage int) {
	for _, v := range n.States {
		if n.seeded[idxStage] {
			copy(v.Values, v.Points[idxStage])
		} else {
			copy(v.Values, v.old)
		}
	}
}

// RestoreStates resets the live state values to the step-start values.
func (n *Numeric) RestoreStates() {
	for _, v := range n.States {
		copy(v.Values, v.old)
	}
}

// Old returns the step-start block of a state variable.
func (v *Var) Old() []float64 { return v.old }

// SetResultStates records the live state values at idxMethod.
func (n *Numeric) SetResultStates(idxMethod int) {
	for _, v := range n.States {
		copy(v.Results[idxMethod], v.Values)
	}
}

// SetPointFluxes stores the live flux values at idxStage.
func (n *Numeric) SetPointFluxes(idxStage int) {
	for _, v := range n.Fluxes {
		copy(v.Points[idxStage], v.Values)
	}
}

// SetResultFluxes records the live flux values at idxMethod.
func (n *Numeric) SetResultFluxes(idxMethod int) {
	for _, v := range n.Fluxes {
		copy(v.Results[idxMethod], v.Values)
	}
}

// IntegrateFluxes combines the recorded flux points with the coefficient
// row scaled by dt. coefs[j] weights the point block at stage j; the
// weighted partials are kept in the integrals buffers.
func (n *Numeric) IntegrateFluxes(coefs []float64, dt float64) {
	for _, v := range n.Fluxes {
		for i := range v.Values {
			acc := 0.0
			for j, c := range coefs {
				w := dt * c * v.Points[j][i]
				v.Integrals[j][i] = w
				acc += w
			}
			v.Values[i] = acc
		}
	}
}

// ResetSumFluxes zeroes every flux's running sum.
func (n *Numeric) ResetSumFluxes() {
	for _, v := range n.Fluxes {
		for i := range v.Sum {
			v.Sum[i] = 0
		}
	}
}

// AddUpFluxes accumulates the live flux values into the running sums.
func (n *Numeric) AddUpFluxes() {
	for _, v := range n.Fluxes {
		for i := range v.Sum {
			v.Sum[i] += v.Values[i]
		}
	}
}

// GetSumFluxes copies the running sums back into the live flux values,
// turning them into coarse-step totals for reporting.
func (n *Numeric) GetSumFluxes() {
	for _, v := range n.Fluxes {
		copy(v.Values, v.Sum)
	}
}

// CalculateError compares the results at idxMethod against idxMethod-1 over
// all solver sequences and elements.
func (n *Numeric) CalculateError(idxMethod int) (abserror, relerror float64) {
	relerror = math.Inf(1)
	if n.UseRelError {
		relerror = 0
	}
	check := func(v *Var) {
		for i := range v.Results[idxMethod] {
			diff := math.Abs(v.Results[idxMethod][i] - v.Results[idxMethod-1][i])
			abserror = math.Max(abserror, diff)
			if !n.UseRelError {
				continue
			}
			if v.Results[idxMethod][i] == 0 {
				relerror = math.Inf(1)
			} else {
				relerror = math.Max(relerror, math.Abs(diff/v.Results[idxMethod][i]))
			}
		}
	}
	for _, v := range n.States {
		check(v)
	}
	for _, v := range n.Fluxes {
		check(v)
	}
	return abserror, relerror
}
