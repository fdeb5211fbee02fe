//go:build linux || darwin

package kernel

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/sivogel/hydpy-sub000/internal/model"
)

// Native binds a published kernel binary. The generated source unit keeps a
// single static model instance, so the exported routines take only stage and
// method indices; numeric state lives inside the loaded module.
type Native struct {
	path   string
	handle uintptr

	runMethods      func()
	calcSingleTerms func()
	calcFullTerms   func()
	snapshotStates  func()
	restoreStates   func()
	setUseRelError  func(int64)
	setPointStates  func(int64)
	getPointStates  func(int64)
	setResultStates func(int64)
	setPointFluxes  func(int64)
	setResultFluxes func(int64)
	integrateFluxes func(unsafe.Pointer, int64, float64)
	resetSumFluxes  func()
	addupFluxes     func()
	calculateError  func(int64)
	getAbsError     func() float64
	getRelError     func() float64
}

// OpenNative loads the published binary at path and resolves the symbol set
// a solver-bearing kernel of d must export. A missing symbol fails the load.
func OpenNative(path string, d *model.Descriptor) (*Native, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("model %s: load %s: %w", d.Name, path, err)
	}
	n := &Native{path: path, handle: handle}
	binds := []struct {
		name string
		fptr any
	}{
		{"run_methods", &n.runMethods},
	}
	if d.Solver == nil {
		if err := n.bind(d, binds); err != nil {
			return nil, err
		}
		return n, nil
	}
	binds = append(binds, []struct {
		name string
		fptr any
	}{
		{"calc_single_terms", &n.calcSingleTerms},
		{"calc_full_terms", &n.calcFullTerms},
		{"snapshot_states", &n.snapshotStates},
		{"restore_states", &n.restoreStates},
		{"set_use_relerror", &n.setUseRelError},
		{"set_point_states", &n.setPointStates},
		{"get_point_states", &n.getPointStates},
		{"set_result_states", &n.setResultStates},
		{"set_point_fluxes", &n.setPointFluxes},
		{"set_result_fluxes", &n.setResultFluxes},
		{"integrate_fluxes", &n.integrateFluxes},
		{"reset_sum_fluxes", &n.resetSumFluxes},
		{"addup_fluxes", &n.addupFluxes},
		{"calculate_error", &n.calculateError},
		{"get_abserror", &n.getAbsError},
		{"get_relerror", &n.getRelError},
	}...)
	if err := n.bind(d, binds); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Native) bind(d *model.Descriptor, binds []struct {
	name string
	fptr any
},
) error {
	for _, b := range binds {
		if _, err := purego.Dlsym(n.handle, b.name); err != nil {
			return fmt.Errorf("model %s: %s: missing symbol %s: %w", d.Name, n.path, b.name, err)
		}
		purego.RegisterLibFunc(b.fptr, n.handle, b.name)
	}
	return nil
}

// RunMethods calls every zero-argument update method in declaration order.
func (n *Native) RunMethods() { n.runMethods() }

// Path returns the loaded binary's location.
func (n *Native) Path() string { return n.path }

// Symbol resolves an additional exported routine, e.g. the per-subgroup
// load/store helpers or the set_shape accessors of rank>0 sequences.
func (n *Native) Symbol(name string) (uintptr, error) {
	return purego.Dlsym(n.handle, name)
}

// SetValue calls the exported set_<name> accessor of a rank-0 field.
func (n *Native) SetValue(name string, value float64) error {
	var fn func(float64)
	if err := n.bindOne("set_"+name, &fn); err != nil {
		return err
	}
	fn(value)
	return nil
}

// GetValue calls the exported get_<name> accessor of a rank-0 field.
func (n *Native) GetValue(name string) (float64, error) {
	var fn func() float64
	if err := n.bindOne("get_"+name, &fn); err != nil {
		return 0, err
	}
	return fn(), nil
}

// Call invokes an exported routine without arguments or result, e.g.
// get_sum_fluxes.
func (n *Native) Call(name string) error {
	var fn func()
	if err := n.bindOne(name, &fn); err != nil {
		return err
	}
	fn()
	return nil
}

func (n *Native) bindOne(name string, fptr any) error {
	if _, err := purego.Dlsym(n.handle, name); err != nil {
		return fmt.Errorf("%s: missing symbol %s: %w", n.path, name, err)
	}
	purego.RegisterLibFunc(fptr, n.handle, name)
	return nil
}

func (n *Native) SnapshotStates()             { n.snapshotStates() }
func (n *Native) RestoreStates()              { n.restoreStates() }
func (n *Native) SetUseRelError(on bool) {
	if on {
		n.setUseRelError(1)
	} else {
		n.setUseRelError(0)
	}
}
func (n *Native) CalcSingleTerms()            { n.calcSingleTerms() }
func (n *Native) CalcFullTerms()              { n.calcFullTerms() }
func (n *Native) SetPointStates(idxStage int) { n.setPointStates(int64(idxStage)) }
func (n *Native) GetPointStates(idxStage int) { n.getPointStates(int64(idxStage)) }
func (n *Native) SetResultStates(idxMethod int) {
	n.setResultStates(int64(idxMethod))
}
func (n *Native) SetPointFluxes(idxStage int) { n.setPointFluxes(int64(idxStage)) }
func (n *Native) SetResultFluxes(idxMethod int) {
	n.setResultFluxes(int64(idxMethod))
}

func (n *Native) IntegrateFluxes(coefs []float64, dt float64) {
	if len(coefs) == 0 {
		return
	}
	n.integrateFluxes(unsafe.Pointer(&coefs[0]), int64(len(coefs)), dt)
}

func (n *Native) ResetSumFluxes() { n.resetSumFluxes() }
func (n *Native) AddUpFluxes()    { n.addupFluxes() }

func (n *Native) CalculateError(idxMethod int) (abserror, relerror float64) {
	n.calculateError(int64(idxMethod))
	return n.getAbsError(), n.getRelError()
}
