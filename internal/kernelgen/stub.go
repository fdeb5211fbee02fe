package kernelgen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sivogel/hydpy-sub000/internal/model"
)

// Stub renders the diagnostic listing of a descriptor: every group and
// field with its resolved type, plus the method table signatures.
func Stub(d *model.Descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s\n", d.Name)
	for _, g := range d.Parameters {
		fmt.Fprintf(&b, "\nparameters.%s:\n", g.Kind)
		for _, p := range g.Params {
			fmt.Fprintf(&b, "    %s: %s, ndim %d\n", p.Name, p.Type, p.NDim)
		}
	}
	for _, g := range d.Sequences {
		fmt.Fprintf(&b, "\nsequences.%s:\n", g.Kind)
		for _, s := range g.Seqs {
			numeric := ""
			if s.Numeric {
				numeric = ", numeric"
			}
			fmt.Fprintf(&b, "    %s: float, ndim %d%s\n", s.Name, s.NDim, numeric)
		}
	}
	if len(d.Methods) > 0 {
		fmt.Fprintf(&b, "\nmethods:\n")
		for _, m := range d.Methods {
			args := make([]string, len(m.Args))
			for i, a := range m.Args {
				args[i] = fmt.Sprintf("%s %s", a.Name, a.Type)
			}
			fmt.Fprintf(&b, "    %s(%s) %s -> %s\n", m.Name, strings.Join(args, ", "), m.Result, m.Target)
		}
	}
	for _, s := range d.Submodels {
		fmt.Fprintf(&b, "\nsubmodel %s: %s\n", s.Name, s.Interface)
	}
	return b.String()
}

// WriteStub writes the listing next to the source unit. Failures are
// reported but callers treat them as non-fatal.
func WriteStub(d *model.Descriptor, dir string) (string, error) {
	path := filepath.Join(dir, d.Name+".stub.txt")
	if err := os.WriteFile(path, []byte(Stub(d)), 0644); err != nil {
		return "", fmt.Errorf("model %s: write stub: %w", d.Name, err)
	}
	return path, nil
}
