package kernel

import (
	"github.com/sivogel/hydpy-sub000/internal/model"
)

// Update is one registered update function of a GoKernel. It reads and
// writes the kernel's Var storage directly.
type Update func(k *GoKernel)

// GoKernel realizes a solver-bearing descriptor in-process. Update methods
// are plain Go functions registered in declaration order: single-term
// updates produce flux values from the live states, full-term updates
// produce new states from the step-start values and the integrated fluxes.
type GoKernel struct {
	*Numeric

	desc    *model.Descriptor
	singles []Update
	fulls   []Update
}

// NewGo builds a GoKernel for d with the given rank>0 axis lengths.
func NewGo(d *model.Descriptor, shapes map[string][]int) (*GoKernel, error) {
	num, err := NewNumeric(d, shapes)
	if err != nil {
		return nil, err
	}
	return &GoKernel{Numeric: num, desc: d}, nil
}

// Descriptor returns the descriptor this kernel realizes.
func (k *GoKernel) Descriptor() *model.Descriptor { return k.desc }

// RegisterSingle appends a per-stage flux update.
func (k *GoKernel) RegisterSingle(fn Update) { k.singles = append(k.singles, fn) }

// RegisterFull appends a stage-completing state update.
func (k *GoKernel) RegisterFull(fn Update) { k.fulls = append(k.fulls, fn) }

// CalcSingleTerms runs the registered flux updates in order.
func (k *GoKernel) CalcSingleTerms() {
	for _, fn := range k.singles {
		fn(k)
	}
}

// CalcFullTerms runs the registered state updates in order.
func (k *GoKernel) CalcFullTerms() {
	for _, fn := range k.fulls {
		fn(k)
	}
}
