package model

import (
	"errors"
	"testing"
)

func validDescriptor() *Descriptor {
	consts := DefaultNumConsts(2)
	return &Descriptor{
		Name: "basin",
		Parameters: []ParameterGroup{
			{Kind: Control, Params: []Parameter{{Name: "k", Type: Float}}},
		},
		Sequences: []SequenceGroup{
			{Kind: Inputs, Seqs: []Sequence{{Name: "p"}}},
			{Kind: Fluxes, Seqs: []Sequence{{Name: "q", Numeric: true}}},
			{Kind: States, Seqs: []Sequence{{Name: "s", Numeric: true}}},
		},
		Methods: []Method{
			{Name: "calc_q", Target: "q", Body: "q = s / k"},
		},
		Solver: &consts,
	}
}

func TestParseType(t *testing.T) {
	cases := map[string]Type{
		"bool":    Bool,
		"int":     Int,
		"int64":   Int,
		"float":   Float,
		"float64": Float,
	}
	for name, want := range cases {
		got, err := ParseType(name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if got != want {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
	}

	if _, err := ParseType("complex128"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestCTypeMapping(t *testing.T) {
	if Float.CType() != "double" || Int.CType() != "long" || Bool.CType() != "int" {
		t.Errorf("unexpected C spellings: %s %s %s", Float.CType(), Int.CType(), Bool.CType())
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validDescriptor().Validate(); err != nil {
		t.Errorf("valid descriptor rejected: %v", err)
	}
}

func TestValidateDuplicateName(t *testing.T) {
	d := validDescriptor()
	d.Sequences[0].Seqs = append(d.Sequences[0].Seqs, Sequence{Name: "q"})
	if err := d.Validate(); err == nil {
		t.Error("expected error for duplicate field name")
	}
}

func TestValidateNumericFlagPlacement(t *testing.T) {
	d := validDescriptor()
	d.Sequences[0].Seqs[0].Numeric = true
	if err := d.Validate(); err == nil {
		t.Error("expected error for numeric flag on an input sequence")
	}
}

func TestValidateUnknownTarget(t *testing.T) {
	d := validDescriptor()
	d.Methods[0].Target = "missing"
	if err := d.Validate(); err == nil {
		t.Error("expected error for unknown target sequence")
	}
}

func TestValidateSolverRankCeiling(t *testing.T) {
	d := validDescriptor()
	d.Sequences[2].Seqs[0].NDim = 3
	err := d.Validate()
	if !errors.Is(err, ErrUnsupportedShape) {
		t.Errorf("expected ErrUnsupportedShape for rank-3 solver sequence, got %v", err)
	}

	// The same rank is fine outside the solver set.
	d.Sequences[2].Seqs[0].Numeric = false
	if err := d.Validate(); err != nil {
		t.Errorf("rank-3 non-numeric state rejected: %v", err)
	}
}

func TestValidateUnknownInterface(t *testing.T) {
	d := validDescriptor()
	d.Submodels = []SubmodelSlot{{Name: "petmodel", Interface: "PETModel"}}
	if err := d.Validate(); err == nil {
		t.Error("expected error for undeclared interface")
	}
	d.Interfaces = []Interface{{Name: "PETModel", Methods: []string{"determine_pet"}}}
	if err := d.Validate(); err != nil {
		t.Errorf("declared interface rejected: %v", err)
	}
}

func TestFinders(t *testing.T) {
	d := validDescriptor()

	seq, kind, ok := d.FindSequence("s")
	if !ok || kind != States || !seq.Numeric {
		t.Errorf("FindSequence(s): %v %v %v", seq, kind, ok)
	}
	if _, _, ok := d.FindSequence("missing"); ok {
		t.Error("expected miss for unknown sequence")
	}

	par, pkind, ok := d.FindParameter("k")
	if !ok || pkind != Control || par.Type != Float {
		t.Errorf("FindParameter(k): %v %v %v", par, pkind, ok)
	}
}

func TestSolverSequencesOrder(t *testing.T) {
	d := validDescriptor()
	seqs := d.SolverSequences()
	if len(seqs) != 2 || seqs[0].Name != "q" || seqs[1].Name != "s" {
		t.Errorf("unexpected solver set: %v", seqs)
	}
	if fluxes := d.NumericFluxes(); len(fluxes) != 1 || fluxes[0].Name != "q" {
		t.Errorf("unexpected numeric fluxes: %v", fluxes)
	}
	if states := d.NumericStates(); len(states) != 1 || states[0].Name != "s" {
		t.Errorf("unexpected numeric states: %v", states)
	}
}
