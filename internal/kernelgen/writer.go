// Package kernelgen assembles one C source unit per model descriptor: the
// rank-fixed storage, the numeric bookkeeping buffers, the per-subgroup
// load/store routines and the translated update methods.
package kernelgen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sivogel/hydpy-sub000/internal/model"
	"github.com/sivogel/hydpy-sub000/internal/translate"
)

// SourceExt is the extension of the generated source unit.
const SourceExt = ".c"

// maxIORank bounds the explicit axis loops of the load/store routines.
const maxIORank = 2

// field is the writer's view of one parameter or sequence.
type field struct {
	name    string
	group   string
	ndim    int
	numeric bool
	flux    bool
	state   bool
	ctype   string
}

func (f field) ref() string { return fmt.Sprintf("model.%s.%s", f.group, f.name) }

func (f field) lenField(axis int) string {
	return fmt.Sprintf("model.%s.len_%s_%d", f.group, f.name, axis)
}

// numel renders the flattened element count.
func (f field) numel() string {
	if f.ndim == 0 {
		return "1"
	}
	parts := make([]string, f.ndim)
	for i := range parts {
		parts[i] = f.lenField(i)
	}
	return strings.Join(parts, " * ")
}

// elem renders element access at a flat index.
func (f field) elem(idx string) string {
	if f.ndim == 0 {
		return f.ref()
	}
	return fmt.Sprintf("%s[%s]", f.ref(), idx)
}

// aux renders access into a stage- or method-indexed bookkeeping buffer:
// block selects the slot, idx the flat element.
func (f field) aux(suffix, block, idx string) string {
	if f.ndim == 0 {
		return fmt.Sprintf("%s_%s[%s]", f.ref(), suffix, block)
	}
	return fmt.Sprintf("%s_%s[(%s) * (%s) + %s]", f.ref(), suffix, block, f.numel(), idx)
}

// flatAux renders access into an unblocked bookkeeping buffer (sum, old).
func (f field) flatAux(suffix, idx string) string {
	if f.ndim == 0 {
		return fmt.Sprintf("%s_%s", f.ref(), suffix)
	}
	return fmt.Sprintf("%s_%s[%s]", f.ref(), suffix, idx)
}

// Writer emits the source unit of one descriptor.
type Writer struct {
	desc *model.Descriptor
	tr   *translate.Translator
}

// New builds a writer over d.
func New(d *model.Descriptor) *Writer {
	return &Writer{desc: d, tr: translate.New(d)}
}

// SourcePath is the deterministic location of the generated unit.
func SourcePath(dir, modelName string) string {
	return filepath.Join(dir, modelName+SourceExt)
}

// WriteSource generates the unit and writes it to its deterministic path
// under dir. The file is the writer's only side effect.
func (w *Writer) WriteSource(dir string) (string, error) {
	src, err := w.Generate()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := SourcePath(dir, w.desc.Name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		return "", fmt.Errorf("model %s: write source: %w", w.desc.Name, err)
	}
	return path, nil
}

// Generate assembles the complete source unit.
func (w *Writer) Generate() (string, error) {
	if err := w.desc.Validate(); err != nil {
		return "", err
	}
	cw := &cwriter{}
	cw.line("/* specialized kernel for model %s; generated, do not edit */", w.desc.Name)
	cw.line("#include <math.h>")
	cw.line("#include <stdlib.h>")
	cw.line("#include <string.h>")
	cw.blank()
	solver := w.desc.Solver != nil
	if solver {
		cw.line("#define NMB_METHODS %d", w.desc.Solver.NmbMethods)
		cw.line("#define NMB_STAGES %d", w.desc.Solver.NmbStages)
		cw.blank()
	}
	w.writeInterfaces(cw)
	w.writeStructs(cw)
	w.writeShapeSetters(cw)
	w.writeAccessors(cw)
	if err := w.writeLoadStore(cw); err != nil {
		return "", err
	}
	if err := w.writeMethods(cw); err != nil {
		return "", err
	}
	if solver {
		w.writeBookkeeping(cw)
	}
	return cw.String(), nil
}

func (w *Writer) fields() []field {
	var out []field
	for _, g := range w.desc.Parameters {
		for _, p := range g.Params {
			out = append(out, field{
				name:  p.Name,
				group: g.Kind.String(),
				ndim:  p.NDim,
				ctype: p.Type.CType(),
			})
		}
	}
	for _, g := range w.desc.Sequences {
		for _, s := range g.Seqs {
			out = append(out, field{
				name:    s.Name,
				group:   g.Kind.String(),
				ndim:    s.NDim,
				numeric: s.Numeric,
				flux:    g.Kind == model.Fluxes,
				state:   g.Kind == model.States,
				ctype:   "double",
			})
		}
	}
	return out
}

func (w *Writer) numericFields() (states, fluxes []field) {
	for _, f := range w.fields() {
		if !f.numeric {
			continue
		}
		if f.state {
			states = append(states, f)
		} else if f.flux {
			fluxes = append(fluxes, f)
		}
	}
	return states, fluxes
}

func (w *Writer) writeInterfaces(cw *cwriter) {
	for _, iface := range w.desc.Interfaces {
		parts := make([]string, len(iface.Methods))
		for i, m := range iface.Methods {
			parts[i] = fmt.Sprintf("void (*%s)(void *)", m)
		}
		cw.line("typedef struct { %s; } %s;", strings.Join(parts, "; "), iface.Name)
	}
	if len(w.desc.Interfaces) > 0 {
		cw.blank()
	}
}

// writeStructs emits one struct per subgroup plus the static model
// instance. Every rank>0 field carries one length field per axis, so
// instances with different shapes share one compiled kernel.
func (w *Writer) writeStructs(cw *cwriter) {
	groups := make(map[string][]field)
	var order []string
	for _, f := range w.fields() {
		if _, seen := groups[f.group]; !seen {
			order = append(order, f.group)
		}
		groups[f.group] = append(groups[f.group], f)
	}
	for _, name := range order {
		cw.open("typedef struct")
		for _, f := range groups[name] {
			w.writeField(cw, f)
		}
		cw.close(fmt.Sprintf(" %s_t;", name))
		cw.blank()
	}
	cw.open("typedef struct")
	for _, name := range order {
		cw.line("%s_t %s;", name, name)
	}
	for _, slot := range w.desc.Submodels {
		cw.line("void *%s;", slot.Name)
	}
	cw.close(" model_t;")
	cw.blank()
	cw.line("static model_t model;")
	if w.desc.Solver != nil {
		cw.line("static int seeded[NMB_STAGES + 1];")
		cw.line("static double abserror;")
		cw.line("static double relerror;")
		cw.line("static long use_relerror;")
	}
	cw.blank()
}

func (w *Writer) writeField(cw *cwriter, f field) {
	if f.ndim == 0 {
		cw.line("%s %s;", f.ctype, f.name)
	} else {
		cw.line("%s *%s;", f.ctype, f.name)
		for axis := 0; axis < f.ndim; axis++ {
			cw.line("long len_%s_%d;", f.name, axis)
		}
	}
	if !f.numeric {
		return
	}
	// Numeric bookkeeping buffers are one rank higher than the field.
	if f.ndim == 0 {
		cw.line("double %s_points[NMB_STAGES + 1];", f.name)
		cw.line("double %s_results[NMB_METHODS + 1];", f.name)
		cw.line("double %s_sum;", f.name)
		if f.flux {
			cw.line("double %s_integrals[NMB_STAGES + 1];", f.name)
		}
		if f.state {
			cw.line("double %s_old;", f.name)
		}
		return
	}
	cw.line("double *%s_points;", f.name)
	cw.line("double *%s_results;", f.name)
	cw.line("double *%s_sum;", f.name)
	if f.flux {
		cw.line("double *%s_integrals;", f.name)
	}
	if f.state {
		cw.line("double *%s_old;", f.name)
	}
}

// writeShapeSetters emits one exported set_shape routine per rank>0 field,
// reallocating the storage and any numeric buffers for ragged per-instance
// shapes without recompilation.
func (w *Writer) writeShapeSetters(cw *cwriter) {
	for _, f := range w.fields() {
		if f.ndim == 0 {
			continue
		}
		args := make([]string, f.ndim)
		for i := range args {
			args[i] = fmt.Sprintf("long n%d", i)
		}
		cw.open("void set_shape_%s(%s)", f.name, strings.Join(args, ", "))
		dims := make([]string, f.ndim)
		for i := range dims {
			cw.line("%s = n%d;", f.lenField(i), i)
			dims[i] = fmt.Sprintf("n%d", i)
		}
		numel := strings.Join(dims, " * ")
		cw.line("free(%s);", f.ref())
		cw.line("%s = calloc(%s, sizeof(%s));", f.ref(), numel, f.ctype)
		if f.numeric {
			realloc := func(suffix, blocks string) {
				cw.line("free(%s_%s);", f.ref(), suffix)
				cw.line("%s_%s = calloc((%s) * (%s), sizeof(double));", f.ref(), suffix, blocks, numel)
			}
			realloc("points", "NMB_STAGES + 1")
			realloc("results", "NMB_METHODS + 1")
			realloc("sum", "1")
			if f.flux {
				realloc("integrals", "NMB_STAGES + 1")
			}
			if f.state {
				realloc("old", "1")
			}
		}
		cw.close("")
		cw.blank()
	}
}

// writeAccessors emits typed value accessors for rank-0 fields and data
// pointers for rank>0 fields.
func (w *Writer) writeAccessors(cw *cwriter) {
	for _, f := range w.fields() {
		if f.ndim == 0 {
			cw.line("void set_%s(%s value) { %s = value; }", f.name, f.ctype, f.ref())
			cw.line("%s get_%s(void) { return %s; }", f.ctype, f.name, f.ref())
		} else {
			cw.line("%s *ptr_%s(void) { return %s; }", f.ctype, f.name, f.ref())
		}
	}
	cw.blank()
}

// writeLoadStore emits one load and one save routine per sequence subgroup,
// copying between current-value storage and a caller-provided flattened
// block with explicit loops over 0-2 axes. Higher ranks are a hard
// generation error.
func (w *Writer) writeLoadStore(cw *cwriter) error {
	for _, g := range w.desc.Sequences {
		for _, s := range g.Seqs {
			if s.NDim > maxIORank {
				return &model.GenerationError{
					Model:   w.desc.Name,
					Name:    s.Name,
					Wrapped: model.ErrUnsupportedShape,
					Detail:  fmt.Sprintf("rank %d exceeds %d in %s load/store", s.NDim, maxIORank, g.Kind),
				}
			}
		}
		w.writeCopy(cw, g, "load", true)
		w.writeCopy(cw, g, "save", false)
	}
	return nil
}

func (w *Writer) writeCopy(cw *cwriter, g model.SequenceGroup, verb string, in bool) {
	qual := "double"
	if in {
		qual = "const double"
	}
	cw.open("void %s_%s(%s *buffer)", verb, g.Kind, qual)
	cw.line("long pos = 0;")
	for _, s := range g.Seqs {
		f := field{name: s.Name, group: g.Kind.String(), ndim: s.NDim, ctype: "double"}
		switch s.NDim {
		case 0:
			w.copyLine(cw, f.ref(), "buffer[pos]", in)
			cw.line("pos++;")
		case 1:
			cw.open("for (long i0 = 0; i0 < %s; i0++)", f.lenField(0))
			w.copyLine(cw, f.elem("i0"), "buffer[pos]", in)
			cw.line("pos++;")
			cw.close("")
		case 2:
			cw.open("for (long i0 = 0; i0 < %s; i0++)", f.lenField(0))
			cw.open("for (long i1 = 0; i1 < %s; i1++)", f.lenField(1))
			w.copyLine(cw, fmt.Sprintf("%s[i0 * %s + i1]", f.ref(), f.lenField(1)), "buffer[pos]", in)
			cw.line("pos++;")
			cw.close("")
			cw.close("")
		}
	}
	cw.close("")
	cw.blank()
}

func (w *Writer) copyLine(cw *cwriter, storage, buffer string, in bool) {
	if in {
		cw.line("%s = %s;", storage, buffer)
	} else {
		cw.line("%s = %s;", buffer, storage)
	}
}

// writeMethods lowers every method through the translator and emits the
// dispatchers calling them in declaration order.
func (w *Writer) writeMethods(cw *cwriter) error {
	var singles, fulls, all []string
	for _, m := range w.desc.Methods {
		routine, err := w.tr.Translate(m)
		if err != nil {
			return err
		}
		cw.raw(routine.Source)
		cw.blank()
		if len(m.Args) > 0 {
			continue
		}
		all = append(all, m.Name)
		_, kind, _ := w.desc.FindSequence(m.Target)
		switch kind {
		case model.States:
			fulls = append(fulls, m.Name)
		case model.Fluxes, model.Factors:
			singles = append(singles, m.Name)
		}
	}
	dispatch := func(name string, methods []string) {
		cw.open("void %s(void)", name)
		for _, m := range methods {
			cw.line("%s();", m)
		}
		cw.close("")
		cw.blank()
	}
	dispatch("run_methods", all)
	if w.desc.Solver != nil {
		dispatch("calc_single_terms", singles)
		dispatch("calc_full_terms", fulls)
	}
	return nil
}
