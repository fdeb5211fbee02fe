package models

import (
	"github.com/sivogel/hydpy-sub000/internal/kernel"
	"github.com/sivogel/hydpy-sub000/internal/model"
)

// DefaultCells is the reservoir count of the cascade realization.
const DefaultCells = 3

// Cascade chains linear reservoirs: each cell receives the outflow of its
// upstream neighbour, the first one the external inflow. The rank-1 method
// bodies exercise explicit element addressing.
func Cascade(methods int) *model.Descriptor {
	consts := model.DefaultNumConsts(methods)
	return &model.Descriptor{
		Name: "cascade",
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
				{Name: "qz", Numeric: true},
				{Name: "q", NDim: 1, Numeric: true},
			}},
			{Kind: model.States, Seqs: []model.Sequence{
				{Name: "sv", NDim: 1, Numeric: true},
			}},
		},
		Methods: []model.Method{
			{
				Name:   "calc_qz",
				Target: "qz",
				Body:   "qz = p",
			},
			{
				Name:   "calc_q",
				Target: "q",
				Body:   "q = sv / k",
			},
			{
				Name:   "calc_sv",
				Target: "sv",
				Body: `if idx0 == 0 {
	sv = sv_old + qz - q
} else {
	sv = sv_old + q[idx0 - 1] - q
}`,
			},
		},
		Solver: &consts,
	}
}

// CascadeKernel is the in-process realization of the cascade descriptor.
type CascadeKernel struct {
	*kernel.GoKernel

	Inflow float64
	K      float64
}

func NewCascadeKernel(methods, cells int) (*CascadeKernel, error) {
	shapes := map[string][]int{
		"q":  {cells},
		"sv": {cells},
	}
	gk, err := kernel.NewGo(Cascade(methods), shapes)
	if err != nil {
		return nil, err
	}
	c := &CascadeKernel{
		GoKernel: gk,
		Inflow:   DefaultInflow,
		K:        DefaultRetention,
	}
	qz := gk.Var("qz")
	q := gk.Var("q")
	sv := gk.Var("sv")
	gk.RegisterSingle(func(*kernel.GoKernel) {
		qz.Values[0] = c.Inflow
	})
	gk.RegisterSingle(func(*kernel.GoKernel) {
		for i := range q.Values {
			q.Values[i] = sv.Values[i] / c.K
		}
	})
	gk.RegisterFull(func(*kernel.GoKernel) {
		for i := range sv.Values {
			upstream := qz.Values[0]
			if i > 0 {
				upstream = q.Values[i-1]
			}
			sv.Values[i] = sv.Old()[i] + upstream - q.Values[i]
		}
	})
	return c, nil
}

// Build returns the named built-in descriptor, or nil for unknown names.
func Build(name string, methods int) *model.Descriptor {
	switch name {
	case "reservoir":
		return Reservoir(methods)
	case "cascade":
		return Cascade(methods)
	default:
		return nil
	}
}

// Names lists the built-in descriptors.
func Names() []string { return []string{"reservoir", "cascade"} }
