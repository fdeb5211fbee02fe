package kernelgen

// Numeric bookkeeping routines of a solver-bearing model. Each routine is
// unrolled per numeric sequence with one flat loop over its elements;
// buffer blocks are addressed by stage or method index.

// forElems wraps body emission into a flat element loop, or emits it once
// for rank-0 fields.
func (w *Writer) forElems(cw *cwriter, f field, body func(idx string)) {
	if f.ndim == 0 {
		body("0")
		return
	}
	cw.open("for (long i = 0; i < %s; i++)", f.numel())
	body("i")
	cw.close("")
}

func (w *Writer) writeBookkeeping(cw *cwriter) {
	states, fluxes := w.numericFields()

	cw.line("void set_use_relerror(long flag) { use_relerror = flag; }")
	cw.line("double get_abserror(void) { return abserror; }")
	cw.line("double get_relerror(void) { return relerror; }")
	cw.blank()

	cw.open("void snapshot_states(void)")
	for _, f := range states {
		w.forElems(cw, f, func(idx string) {
			cw.line("%s = %s;", f.flatAux("old", idx), f.elem(idx))
		})
	}
	cw.line("memset(seeded, 0, sizeof(seeded));")
	cw.close("")
	cw.blank()

	cw.open("void restore_states(void)")
	for _, f := range states {
		w.forElems(cw, f, func(idx string) {
			cw.line("%s = %s;", f.elem(idx), f.flatAux("old", idx))
		})
	}
	cw.close("")
	cw.blank()

	cw.open("void set_point_states(long idx_stage)")
	for _, f := range states {
		w.forElems(cw, f, func(idx string) {
			cw.line("%s = %s;", f.aux("points", "idx_stage", idx), f.elem(idx))
		})
	}
	cw.line("seeded[idx_stage] = 1;")
	cw.close("")
	cw.blank()

	cw.open("void get_point_states(long idx_stage)")
	cw.open("if (seeded[idx_stage])")
	for _, f := range states {
		w.forElems(cw, f, func(idx string) {
			cw.line("%s = %s;", f.elem(idx), f.aux("points", "idx_stage", idx))
		})
	}
	cw.close(" else {")
	cw.in()
	for _, f := range states {
		w.forElems(cw, f, func(idx string) {
			cw.line("%s = %s;", f.elem(idx), f.flatAux("old", idx))
		})
	}
	cw.close("")
	cw.close("")
	cw.blank()

	cw.open("void set_result_states(long idx_method)")
	for _, f := range states {
		w.forElems(cw, f, func(idx string) {
			cw.line("%s = %s;", f.aux("results", "idx_method", idx), f.elem(idx))
		})
	}
	cw.close("")
	cw.blank()

	cw.open("void set_point_fluxes(long idx_stage)")
	for _, f := range fluxes {
		w.forElems(cw, f, func(idx string) {
			cw.line("%s = %s;", f.aux("points", "idx_stage", idx), f.elem(idx))
		})
	}
	cw.close("")
	cw.blank()

	cw.open("void set_result_fluxes(long idx_method)")
	for _, f := range fluxes {
		w.forElems(cw, f, func(idx string) {
			cw.line("%s = %s;", f.aux("results", "idx_method", idx), f.elem(idx))
		})
	}
	cw.close("")
	cw.blank()

	cw.open("void integrate_fluxes(const double *coefs, long nmb_coefs, double dt)")
	cw.line("double acc;")
	for _, f := range fluxes {
		w.forElems(cw, f, func(idx string) {
			cw.line("acc = 0.0;")
			cw.open("for (long j = 0; j < nmb_coefs; j++)")
			cw.line("double part = dt * coefs[j] * %s;", f.aux("points", "j", idx))
			cw.line("%s = part;", f.aux("integrals", "j", idx))
			cw.line("acc = (acc + part);")
			cw.close("")
			cw.line("%s = acc;", f.elem(idx))
		})
	}
	cw.close("")
	cw.blank()

	cw.open("void reset_sum_fluxes(void)")
	for _, f := range fluxes {
		w.forElems(cw, f, func(idx string) {
			cw.line("%s = 0.0;", f.flatAux("sum", idx))
		})
	}
	cw.close("")
	cw.blank()

	cw.open("void addup_fluxes(void)")
	for _, f := range fluxes {
		w.forElems(cw, f, func(idx string) {
			cw.line("%s = (%s + %s);", f.flatAux("sum", idx), f.flatAux("sum", idx), f.elem(idx))
		})
	}
	cw.close("")
	cw.blank()

	cw.open("void get_sum_fluxes(void)")
	for _, f := range fluxes {
		w.forElems(cw, f, func(idx string) {
			cw.line("%s = %s;", f.elem(idx), f.flatAux("sum", idx))
		})
	}
	cw.close("")
	cw.blank()

	cw.open("void calculate_error(long idx_method)")
	cw.line("double diff;")
	cw.line("abserror = 0.0;")
	cw.line("relerror = use_relerror ? 0.0 : INFINITY;")
	for _, f := range append(append([]field{}, states...), fluxes...) {
		w.forElems(cw, f, func(idx string) {
			cw.line("diff = fabs(%s - %s);",
				f.aux("results", "idx_method", idx), f.aux("results", "idx_method - 1", idx))
			cw.line("if (diff > abserror) abserror = diff;")
			cw.open("if (use_relerror)")
			cw.open("if (%s == 0.0)", f.aux("results", "idx_method", idx))
			cw.line("relerror = INFINITY;")
			cw.close(" else {")
			cw.in()
			cw.line("diff = fabs(diff / %s);", f.aux("results", "idx_method", idx))
			cw.line("if (diff > relerror) relerror = diff;")
			cw.close("")
			cw.close("")
		})
	}
	cw.close("")
	cw.blank()
}
