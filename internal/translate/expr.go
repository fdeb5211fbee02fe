package translate

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"github.com/sivogel/hydpy-sub000/internal/model"
)

// mathFuncs maps the supported math package calls onto libm.
var mathFuncs = map[string]string{
	"Exp":   "exp",
	"Log":   "log",
	"Log10": "log10",
	"Sin":   "sin",
	"Cos":   "cos",
	"Tan":   "tan",
	"Sqrt":  "sqrt",
	"Pow":   "pow",
	"Abs":   "fabs",
	"Min":   "fmin",
	"Max":   "fmax",
	"Floor": "floor",
	"Ceil":  "ceil",
	"Mod":   "fmod",
}

var mathConsts = map[string]string{
	"Pi": "M_PI",
	"E":  "M_E",
}

// expr lowers one expression to C.
func (t *Translator) expr(e ast.Expr) (string, error) {
	switch node := e.(type) {
	case *ast.Ident:
		return t.ident(node.Name, true)
	case *ast.BasicLit:
		if node.Kind != token.INT && node.Kind != token.FLOAT {
			return "", t.failExpr(e, "literal kind")
		}
		return node.Value, nil
	case *ast.ParenExpr:
		inner, err := t.expr(node.X)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	case *ast.UnaryExpr:
		inner, err := t.expr(node.X)
		if err != nil {
			return "", err
		}
		switch node.Op {
		case token.SUB:
			return "-" + inner, nil
		case token.NOT:
			return "!" + inner, nil
		}
		return "", t.failExpr(e, node.Op.String())
	case *ast.BinaryExpr:
		return t.binary(node)
	case *ast.CallExpr:
		return t.call(node)
	case *ast.IndexExpr:
		return t.index(node)
	case *ast.SelectorExpr:
		if pkg, ok := node.X.(*ast.Ident); ok && pkg.Name == "math" {
			if c, ok := mathConsts[node.Sel.Name]; ok {
				return c, nil
			}
		}
		return "", t.failExpr(e, "selector")
	case *ast.TypeAssertExpr:
		return t.assert(node)
	default:
		return "", t.failExpr(e, fmt.Sprintf("%T", e))
	}
}

// ident resolves a bare name: subgroup shortcut, submodel slot, typed
// argument or classified local. Subgroup members of rank above zero are
// addressed with the surrounding loop indices when autoIndex is set.
func (t *Translator) ident(name string, autoIndex bool) (string, error) {
	// The step-start value of a numeric state is reachable under the
	// _old suffix; stage-completing methods build on it.
	if base, found := strings.CutSuffix(name, "_old"); found {
		if seq, kind, ok := t.desc.FindSequence(base); ok && seq.Numeric && kind == model.States {
			ref := fmt.Sprintf("model.%s.%s_old", kind, base)
			if seq.NDim == 0 || !autoIndex {
				return ref, nil
			}
			return t.autoIndexed(ref, base, seq.NDim)
		}
	}
	if seq, kind, ok := t.desc.FindSequence(name); ok {
		base := fmt.Sprintf("model.%s.%s", kind, name)
		if seq.NDim == 0 || !autoIndex {
			return base, nil
		}
		return t.autoIndexed(base, name, seq.NDim)
	}
	if par, kind, ok := t.desc.FindParameter(name); ok {
		base := fmt.Sprintf("model.%s.%s", kind, name)
		if par.NDim == 0 || !autoIndex {
			return base, nil
		}
		return t.autoIndexed(base, name, par.NDim)
	}
	if _, ok := t.desc.FindSubmodel(name); ok {
		return "model." + name, nil
	}
	if _, ok := t.args[name]; ok {
		return name, nil
	}
	if _, ok := t.locals[name]; ok {
		return name, nil
	}
	// Bodies may read the surrounding loop indices, e.g. for addressing
	// an upstream element with q[idx0 - 1].
	for i := 0; i < t.rank; i++ {
		if name == fmt.Sprintf("idx%d", i) {
			return name, nil
		}
	}
	return "", &model.GenerationError{
		Model: t.desc.Name, Method: t.method.Name, Name: name,
		Wrapped: model.ErrUntypedConstruct,
	}
}

// autoIndexed addresses a rank>0 field with the loop indices, flattening
// trailing axes with the field's length fields.
func (t *Translator) autoIndexed(base, name string, ndim int) (string, error) {
	if ndim > t.rank {
		return "", &model.GenerationError{
			Model: t.desc.Name, Method: t.method.Name, Name: name,
			Wrapped: model.ErrUnsupportedShape,
			Detail:  fmt.Sprintf("rank %d field in rank %d method needs explicit indexing", ndim, t.rank),
		}
	}
	return base + t.flatIndex(name, loopIndices(ndim)), nil
}

func loopIndices(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("idx%d", i)
	}
	return out
}

// flatIndex renders a row-major flattened index expression.
func (t *Translator) flatIndex(name string, indices []string) string {
	if len(indices) == 1 {
		return "[" + indices[0] + "]"
	}
	terms := make([]string, len(indices))
	for i, idx := range indices {
		term := idx
		for axis := i + 1; axis < len(indices); axis++ {
			term += " * " + t.lenField(name, axis)
		}
		terms[i] = term
	}
	return "[" + strings.Join(terms, " + ") + "]"
}

func (t *Translator) binary(node *ast.BinaryExpr) (string, error) {
	lhs, err := t.expr(node.X)
	if err != nil {
		return "", err
	}
	rhs, err := t.expr(node.Y)
	if err != nil {
		return "", err
	}
	switch node.Op {
	case token.ADD, token.SUB, token.MUL, token.QUO, token.REM,
		token.LSS, token.GTR, token.LEQ, token.GEQ, token.EQL, token.NEQ,
		token.LAND, token.LOR:
		return fmt.Sprintf("%s %s %s", lhs, node.Op, rhs), nil
	}
	return "", t.failExpr(node, node.Op.String())
}

func (t *Translator) call(node *ast.CallExpr) (string, error) {
	switch fun := node.Fun.(type) {
	case *ast.Ident:
		// Type conversion to a declared type becomes a C cast.
		if typ, err := model.ParseType(fun.Name); err == nil {
			if len(node.Args) != 1 {
				return "", t.failExpr(node, "conversion arity")
			}
			arg, err := t.expr(node.Args[0])
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(%s)(%s)", typ.CType(), arg), nil
		}
		// Call of a sibling method (helper with typed arguments).
		for _, m := range t.desc.Methods {
			if m.Name == fun.Name {
				args, err := t.callArgs(node.Args)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%s(%s)", fun.Name, args), nil
			}
		}
		return "", &model.GenerationError{
			Model: t.desc.Name, Method: t.method.Name, Name: fun.Name,
			Wrapped: model.ErrUntypedConstruct, Detail: "unknown callee",
		}
	case *ast.SelectorExpr:
		if pkg, ok := fun.X.(*ast.Ident); ok && pkg.Name == "math" {
			cname, ok := mathFuncs[fun.Sel.Name]
			if !ok {
				return "", t.failExpr(node, "math."+fun.Sel.Name)
			}
			args, err := t.callArgs(node.Args)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s(%s)", cname, args), nil
		}
		// Submodel call through an interface view: slot.(Iface).method(...).
		if ta, ok := fun.X.(*ast.TypeAssertExpr); ok {
			recv, err := t.assert(ta)
			if err != nil {
				return "", err
			}
			args, err := t.callArgs(node.Args)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s->%s(%s)", recv, fun.Sel.Name, args), nil
		}
		return "", t.failExpr(node, "selector call")
	default:
		return "", t.failExpr(node, "call shape")
	}
}

func (t *Translator) callArgs(args []ast.Expr) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := t.expr(a)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

// index lowers explicit indexing of a rank>0 field. Nested index
// expressions address one axis each; the flattened offset uses the field's
// length fields.
func (t *Translator) index(node *ast.IndexExpr) (string, error) {
	base := node.X
	indices := []ast.Expr{node.Index}
	for {
		inner, ok := base.(*ast.IndexExpr)
		if !ok {
			break
		}
		indices = append([]ast.Expr{inner.Index}, indices...)
		base = inner.X
	}
	id, ok := base.(*ast.Ident)
	if !ok {
		return "", t.failExpr(node, "index base")
	}
	rendered := make([]string, len(indices))
	for i, idx := range indices {
		s, err := t.expr(idx)
		if err != nil {
			return "", err
		}
		rendered[i] = "(" + s + ")"
	}
	resolved, err := t.ident(id.Name, false)
	if err != nil {
		return "", err
	}
	return resolved + t.flatIndex(id.Name, rendered), nil
}

// assert lowers a narrowing view of a submodel slot to a native
// reinterpretation of the slot pointer.
func (t *Translator) assert(node *ast.TypeAssertExpr) (string, error) {
	slot, ok := node.X.(*ast.Ident)
	if !ok {
		return "", t.failExpr(node, "assert base")
	}
	_, ok = t.desc.FindSubmodel(slot.Name)
	if !ok {
		return "", &model.GenerationError{
			Model: t.desc.Name, Method: t.method.Name, Name: slot.Name,
			Wrapped: model.ErrUntypedConstruct, Detail: "not a submodel slot",
		}
	}
	iface, ok := node.Type.(*ast.Ident)
	if !ok {
		return "", t.failExpr(node, "assert type")
	}
	if _, known := t.desc.FindInterface(iface.Name); !known {
		return "", &model.GenerationError{
			Model: t.desc.Name, Method: t.method.Name, Name: iface.Name,
			Wrapped: model.ErrUnknownType, Detail: "undeclared interface",
		}
	}
	return fmt.Sprintf("((%s *)model.%s)", iface.Name, slot.Name), nil
}

func (t *Translator) failExpr(e ast.Expr, detail string) error {
	return &model.GenerationError{
		Model:   t.desc.Name,
		Method:  t.method.Name,
		Wrapped: model.ErrUnsupportedStatement,
		Detail:  detail,
	}
}
