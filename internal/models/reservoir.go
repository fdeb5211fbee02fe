// Package models holds the built-in demonstration descriptors and their
// in-process realizations. The descriptors double as fixtures for the
// code generator and as runnable models for the CLI.
package models

import (
	"github.com/sivogel/hydpy-sub000/internal/kernel"
	"github.com/sivogel/hydpy-sub000/internal/model"
)

const (
	DefaultRetention = 4.2
	DefaultInflow    = 2.0
)

// Reservoir is a single linear storage: inflow fills it, outflow drains it
// proportionally to the current content over the retention time k.
func Reservoir(methods int) *model.Descriptor {
	consts := model.DefaultNumConsts(methods)
	return &model.Descriptor{
		Name: "reservoir",
		Parameters: []model.ParameterGroup{
			{Kind: model.Control, Params: []model.Parameter{
				{Name: "k", Type: model.Float},
			}},
		},
		Sequences: []model.SequenceGroup{
			{Kind: model.Inputs, Seqs: []model.Sequence{
				{Name: "p"},
			}},
			{Kind: model.Fluxes, Seqs: []model.Sequence{
				{Name: "qin", Numeric: true},
				{Name: "qout", Numeric: true},
			}},
			{Kind: model.States, Seqs: []model.Sequence{
				{Name: "s", Numeric: true},
			}},
		},
		Methods: []model.Method{
			{
				Name:   "calc_qin",
				Target: "qin",
				Body:   "qin = p",
			},
			{
				Name:   "calc_qout",
				Target: "qout",
				Body:   "qout = s / k",
			},
			{
				Name:   "calc_s",
				Target: "s",
				Body:   "s = s_old + qin - qout",
			},
		},
		Solver: &consts,
	}
}

// ReservoirKernel is the in-process realization of the reservoir
// descriptor. Inflow and K mirror the input sequence and the control
// parameter of the generated C kernel.
type ReservoirKernel struct {
	*kernel.GoKernel

	Inflow float64
	K      float64
}

func NewReservoirKernel(methods int) (*ReservoirKernel, error) {
	gk, err := kernel.NewGo(Reservoir(methods), nil)
	if err != nil {
		return nil, err
	}
	r := &ReservoirKernel{
		GoKernel: gk,
		Inflow:   DefaultInflow,
		K:        DefaultRetention,
	}
	qin := gk.Var("qin")
	qout := gk.Var("qout")
	s := gk.Var("s")
	gk.RegisterSingle(func(*kernel.GoKernel) {
		qin.Values[0] = r.Inflow
	})
	gk.RegisterSingle(func(*kernel.GoKernel) {
		qout.Values[0] = s.Values[0] / r.K
	})
	gk.RegisterFull(func(*kernel.GoKernel) {
		s.Values[0] = s.Old()[0] + qin.Values[0] - qout.Values[0]
	})
	return r, nil
}
