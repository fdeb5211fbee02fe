package model

import (
	"fmt"
	"strings"
)

// Type is the closed enumeration of value types a descriptor may declare.
type Type int

const (
	Unknown Type = iota
	Bool
	Int
	Float
)

var typeNames = map[Type]string{
	Bool:  "bool",
	Int:   "int",
	Float: "float",
}

var namedTypes = map[string]Type{
	"bool":    Bool,
	"int":     Int,
	"float":   Float,
	"float64": Float,
	"int64":   Int,
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// CType returns the C spelling used by the kernel writer.
func (t Type) CType() string {
	switch t {
	case Bool:
		return "int"
	case Int:
		return "long"
	case Float:
		return "double"
	default:
		return "void"
	}
}

// ParseType resolves a declared type name against the closed enumeration.
// Absent names fail loudly instead of being inferred.
func ParseType(name string) (Type, error) {
	if t, ok := namedTypes[name]; ok {
		return t, nil
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// ParamKind identifies a parameter subgroup.
type ParamKind int

const (
	Control ParamKind = iota
	Derived
	Fixed
	SolverParams
)

func (k ParamKind) String() string {
	switch k {
	case Control:
		return "control"
	case Derived:
		return "derived"
	case Fixed:
		return "fixed"
	case SolverParams:
		return "solver"
	}
	return "?"
}

// SeqKind identifies a sequence subgroup.
type SeqKind int

const (
	Inputs SeqKind = iota
	Factors
	Fluxes
	States
	Links
)

func (k SeqKind) String() string {
	switch k {
	case Inputs:
		return "inputs"
	case Factors:
		return "factors"
	case Fluxes:
		return "fluxes"
	case States:
		return "states"
	case Links:
		return "links"
	}
	return "?"
}

// MaxNDim is the highest declared rank a sequence may carry. Generated
// load/store code and solver buffers support ranks 0-2 only; rank 3 is
// accepted by the descriptor but rejected by generation.
const MaxNDim = 3

// Parameter is one named member of a parameter subgroup.
type Parameter struct {
	Name string
	Type Type
	NDim int
}

// Sequence is one named array field of a sequence subgroup. Numeric marks
// fluxes and states that take part in the adaptive solver and therefore
// carry the points/results/sum (and, for fluxes, integrals) buffers.
type Sequence struct {
	Name    string
	NDim    int
	Numeric bool
}

// ParameterGroup is an ordered parameter subgroup.
type ParameterGroup struct {
	Kind   ParamKind
	Params []Parameter
}

// SequenceGroup is an ordered sequence subgroup.
type SequenceGroup struct {
	Kind SeqKind
	Seqs []Sequence
}

// Param is a fully typed method argument.
type Param struct {
	Name string
	Type Type
}

// Method is one update routine of the method table. Body holds restricted
// Go statements; Target names the sequence receiving the method's result
// and fixes the loop rank of the translated routine.
type Method struct {
	Name   string
	Target string
	Args   []Param
	Result Type
	Body   string
}

// SubmodelSlot is an optional nested submodel reference typed by interface.
type SubmodelSlot struct {
	Name      string
	Interface string
}

// Interface declares a named submodel interface and its callable methods.
type Interface struct {
	Name    string
	Methods []string
}

// NumConsts are the fixed solver constants of a solver-bearing model.
type NumConsts struct {
	NmbMethods int
	NmbStages  int
	DtIncrease float64
	DtDecrease float64
}

// DefaultNumConsts mirrors the usual configuration of the equidistant
// explicit sequence: as many stages as methods, dt doubled on acceptance
// and halved on rejection.
func DefaultNumConsts(nmbMethods int) NumConsts {
	return NumConsts{
		NmbMethods: nmbMethods,
		NmbStages:  nmbMethods,
		DtIncrease: 2.0,
		DtDecrease: 2.0,
	}
}

// Descriptor is the read-only model description driving specialization:
// ordered parameter and sequence groups, the ordered method table, optional
// submodel slots, and solver constants when the model is solver-bearing.
type Descriptor struct {
	Name       string
	Parameters []ParameterGroup
	Sequences  []SequenceGroup
	Methods    []Method
	Submodels  []SubmodelSlot
	Interfaces []Interface
	Solver     *NumConsts
}

// FindSequence looks a name up across all sequence groups.
func (d *Descriptor) FindSequence(name string) (Sequence, SeqKind, bool) {
	for _, g := range d.Sequences {
		for _, s := range g.Seqs {
			if s.Name == name {
				return s, g.Kind, true
			}
		}
	}
	return Sequence{}, 0, false
}

// FindParameter looks a name up across all parameter groups.
func (d *Descriptor) FindParameter(name string) (Parameter, ParamKind, bool) {
	for _, g := range d.Parameters {
		for _, p := range g.Params {
			if p.Name == name {
				return p, g.Kind, true
			}
		}
	}
	return Parameter{}, 0, false
}

// FindSubmodel looks a submodel slot up by name.
func (d *Descriptor) FindSubmodel(name string) (SubmodelSlot, bool) {
	for _, s := range d.Submodels {
		if s.Name == name {
			return s, true
		}
	}
	return SubmodelSlot{}, false
}

// FindInterface looks a submodel interface up by name.
func (d *Descriptor) FindInterface(name string) (Interface, bool) {
	for _, i := range d.Interfaces {
		if i.Name == name {
			return i, true
		}
	}
	return Interface{}, false
}

// SolverSequences returns the numeric fluxes and states, in group order.
// These are the sequences the adaptive solver tracks for error control.
func (d *Descriptor) SolverSequences() []Sequence {
	var out []Sequence
	for _, g := range d.Sequences {
		if g.Kind != Fluxes && g.Kind != States {
			continue
		}
		for _, s := range g.Seqs {
			if s.Numeric {
				out = append(out, s)
			}
		}
	}
	return out
}

// NumericFluxes returns the numeric fluxes in group order.
func (d *Descriptor) NumericFluxes() []Sequence {
	return d.numericOf(Fluxes)
}

// NumericStates returns the numeric states in group order.
func (d *Descriptor) NumericStates() []Sequence {
	return d.numericOf(States)
}

func (d *Descriptor) numericOf(kind SeqKind) []Sequence {
	var out []Sequence
	for _, g := range d.Sequences {
		if g.Kind != kind {
			continue
		}
		for _, s := range g.Seqs {
			if s.Numeric {
				out = append(out, s)
			}
		}
	}
	return out
}

// Validate checks structural consistency before any generation happens.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("model: descriptor without a name")
	}
	if strings.ContainsAny(d.Name, " /\\") {
		return fmt.Errorf("model %s: name must be a plain identifier", d.Name)
	}
	seen := make(map[string]bool)
	for _, g := range d.Parameters {
		for _, p := range g.Params {
			if err := d.checkName(seen, p.Name, p.NDim); err != nil {
				return err
			}
			if p.Type == Unknown {
				return &GenerationError{Model: d.Name, Name: p.Name, Wrapped: ErrUnknownType}
			}
		}
	}
	for _, g := range d.Sequences {
		for _, s := range g.Seqs {
			if err := d.checkName(seen, s.Name, s.NDim); err != nil {
				return err
			}
			if s.Numeric && g.Kind != Fluxes && g.Kind != States {
				return fmt.Errorf("model %s: sequence %s: numeric flag outside fluxes/states", d.Name, s.Name)
			}
		}
	}
	for _, m := range d.Methods {
		if _, _, ok := d.FindSequence(m.Target); !ok {
			return fmt.Errorf("model %s: method %s: unknown target sequence %s", d.Name, m.Name, m.Target)
		}
		for _, a := range m.Args {
			if a.Type == Unknown {
				return &GenerationError{Model: d.Name, Method: m.Name, Name: a.Name, Wrapped: ErrUnknownType}
			}
		}
	}
	for _, s := range d.Submodels {
		if _, ok := d.FindInterface(s.Interface); !ok {
			return fmt.Errorf("model %s: submodel %s: unknown interface %s", d.Name, s.Name, s.Interface)
		}
	}
	if d.Solver != nil {
		if d.Solver.NmbMethods < 1 || d.Solver.NmbStages < 1 {
			return fmt.Errorf("model %s: solver constants need at least one method and stage", d.Name)
		}
		for _, s := range d.SolverSequences() {
			if s.NDim > 2 {
				return &GenerationError{Model: d.Name, Name: s.Name, Wrapped: ErrUnsupportedShape}
			}
		}
	}
	return nil
}

func (d *Descriptor) checkName(seen map[string]bool, name string, ndim int) error {
	if name == "" {
		return fmt.Errorf("model %s: unnamed field", d.Name)
	}
	if seen[name] {
		return fmt.Errorf("model %s: duplicate field name %s", d.Name, name)
	}
	seen[name] = true
	if ndim < 0 || ndim > MaxNDim {
		return &GenerationError{Model: d.Name, Name: name, Wrapped: ErrUnsupportedShape}
	}
	return nil
}
