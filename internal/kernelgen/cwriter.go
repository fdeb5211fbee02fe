package kernelgen

import (
	"bytes"
	"fmt"
	"strings"
)

// cwriter accumulates C source with indentation tracking.
type cwriter struct {
	buf    bytes.Buffer
	indent int
}

func (w *cwriter) line(format string, args ...any) {
	w.buf.WriteString(strings.Repeat("    ", w.indent))
	fmt.Fprintf(&w.buf, format, args...)
	w.buf.WriteByte('\n')
}

func (w *cwriter) blank() {
	w.buf.WriteByte('\n')
}

func (w *cwriter) raw(s string) {
	w.buf.WriteString(s)
}

func (w *cwriter) in()  { w.indent++ }
func (w *cwriter) out() { w.indent-- }

// open emits "head {" and indents.
func (w *cwriter) open(format string, args ...any) {
	w.line(format+" {", args...)
	w.in()
}

// close dedents and emits "}" with an optional suffix.
func (w *cwriter) close(suffix string) {
	w.out()
	w.line("}%s", suffix)
}

func (w *cwriter) String() string { return w.buf.String() }
