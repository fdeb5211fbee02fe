// Package translate lowers one update method of a model descriptor into a
// typed, rank-specialized C routine.
//
// Method bodies are restricted Go statements. The translator resolves every
// name against the descriptor (subgroup shortcuts become fully qualified
// accesses, typed arguments stay local, untyped locals get the default
// integer type unless float-marked), derives the loop nesting from the
// target sequence's declared rank, and rewrites compound assignment into
// plain assignment of a parenthesized expression, since the generated
// per-step code runs in a lock-free region.
package translate

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"sort"
	"strings"

	"github.com/sivogel/hydpy-sub000/internal/model"
)

// FloatPrefix is the naming convention marking an untyped local as float.
const FloatPrefix = "d_"

// maxLoopRank bounds the loop nesting the translator unrolls.
const maxLoopRank = 2

// Routine is one lowered method: a complete static C function definition
// plus the resolved types of its untyped locals.
type Routine struct {
	Name   string
	Rank   int
	Source string
	Locals map[string]model.Type
}

// Translator lowers methods of one descriptor. Not safe for concurrent
// use; one instance per generation run.
type Translator struct {
	desc *model.Descriptor

	method  model.Method
	rank    int
	args    map[string]model.Type
	locals  map[string]model.Type
	floated map[string]bool

	buf    bytes.Buffer
	indent int
}

// New builds a translator over d.
func New(d *model.Descriptor) *Translator {
	return &Translator{desc: d}
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Translate lowers one method. Unknown types and unsupported statement
// shapes are generation-time errors naming the method and construct.
func (t *Translator) Translate(m model.Method) (*Routine, error) {
	if !identPattern.MatchString(m.Name) {
		return nil, t.fail(m.Name, "", fmt.Errorf("method name must be a lower-case C identifier"))
	}
	seq, _, ok := t.desc.FindSequence(m.Target)
	if !ok {
		return nil, t.fail(m.Name, m.Target, fmt.Errorf("unknown target sequence"))
	}
	if seq.NDim > maxLoopRank {
		return nil, &model.GenerationError{
			Model:   t.desc.Name,
			Method:  m.Name,
			Name:    m.Target,
			Wrapped: model.ErrUnsupportedShape,
			Detail:  fmt.Sprintf("rank %d exceeds %d", seq.NDim, maxLoopRank),
		}
	}

	body, err := parseBody(m.Body)
	if err != nil {
		return nil, t.fail(m.Name, "", err)
	}

	t.method = m
	t.rank = seq.NDim
	t.args = make(map[string]model.Type, len(m.Args))
	for _, a := range m.Args {
		if a.Type == model.Unknown {
			return nil, &model.GenerationError{
				Model: t.desc.Name, Method: m.Name, Name: a.Name,
				Wrapped: model.ErrUnknownType,
			}
		}
		t.args[a.Name] = a.Type
	}
	t.locals = make(map[string]model.Type)
	t.floated = make(map[string]bool)
	t.buf.Reset()
	t.indent = 0

	if err := t.collectLocals(body); err != nil {
		return nil, err
	}

	t.printf("static void %s(void)", m.Name)
	if len(m.Args) > 0 {
		// Methods with arguments are helpers called from other bodies.
		t.buf.Reset()
		t.printf("static %s %s(", m.Result.CType(), m.Name)
		for i, a := range m.Args {
			if i > 0 {
				t.raw(", ")
			}
			t.printf("%s %s", a.Type.CType(), a.Name)
		}
		t.raw(")")
	}
	t.raw(" {\n")
	t.indent++
	t.declareLocals()
	if err := t.emitRanked(body); err != nil {
		return nil, err
	}
	t.indent--
	t.raw("}\n")

	return &Routine{
		Name:   m.Name,
		Rank:   t.rank,
		Source: t.buf.String(),
		Locals: t.locals,
	}, nil
}

// parseBody wraps the method body into a synthetic function so the Go
// parser accepts it. Comments are not requested, which strips them, and all
// expressions are re-emitted on single lines.
func parseBody(body string) ([]ast.Stmt, error) {
	src := "package body\nfunc update() {\n" + body + "\n}\n"
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "method.go", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}
	fn := file.Decls[len(file.Decls)-1].(*ast.FuncDecl)
	return fn.Body.List, nil
}

// collectLocals classifies every name the body binds or reads. Assigned
// names that resolve to no subgroup and carry no argument type become
// untyped locals: integer by default, float when the name carries the
// float-marking prefix or a var declaration annotates it float.
func (t *Translator) collectLocals(stmts []ast.Stmt) error {
	var walkErr error
	for _, st := range stmts {
		ast.Inspect(st, func(n ast.Node) bool {
			if walkErr != nil {
				return false
			}
			switch node := n.(type) {
			case *ast.DeclStmt:
				gd, ok := node.Decl.(*ast.GenDecl)
				if !ok || gd.Tok != token.VAR {
					walkErr = t.fail(t.method.Name, "", model.ErrUnsupportedStatement)
					return false
				}
				for _, sp := range gd.Specs {
					vs := sp.(*ast.ValueSpec)
					typ := model.Unknown
					if id, ok := vs.Type.(*ast.Ident); ok {
						typ, _ = model.ParseType(id.Name)
					}
					if typ == model.Unknown {
						walkErr = &model.GenerationError{
							Model: t.desc.Name, Method: t.method.Name,
							Name: vs.Names[0].Name, Wrapped: model.ErrUnknownType,
						}
						return false
					}
					for _, name := range vs.Names {
						t.bindLocal(name.Name)
						if typ == model.Float {
							t.floated[name.Name] = true
						}
					}
				}
			case *ast.AssignStmt:
				for _, lhs := range node.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						t.bindLocal(id.Name)
					}
				}
			case *ast.IncDecStmt:
				if id, ok := node.X.(*ast.Ident); ok {
					t.bindLocal(id.Name)
				}
			}
			return true
		})
		if walkErr != nil {
			return walkErr
		}
	}
	for name := range t.locals {
		if t.floated[name] || strings.HasPrefix(name, FloatPrefix) {
			t.locals[name] = model.Float
		}
	}
	return nil
}

// bindLocal records an untyped local unless the name already resolves to a
// subgroup member or typed argument.
func (t *Translator) bindLocal(name string) {
	if name == "_" {
		return
	}
	if _, ok := t.args[name]; ok {
		return
	}
	if _, _, ok := t.desc.FindSequence(name); ok {
		return
	}
	if _, _, ok := t.desc.FindParameter(name); ok {
		return
	}
	if _, ok := t.desc.FindSubmodel(name); ok {
		return
	}
	if _, ok := t.locals[name]; !ok {
		t.locals[name] = model.Int
	}
}

func (t *Translator) declareLocals() {
	names := make([]string, 0, len(t.locals))
	for name := range t.locals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.line("%s %s;", t.locals[name].CType(), name)
	}
	for i := 0; i < t.rank; i++ {
		t.line("long idx%d;", i)
	}
}

// emitRanked wraps the lowered statements into the loop nest the target
// sequence's rank demands: rank r yields exactly r nested loops over the
// target's axis length fields.
func (t *Translator) emitRanked(stmts []ast.Stmt) error {
	for i := 0; i < t.rank; i++ {
		bound := t.lenField(t.method.Target, i)
		t.line("for (idx%d = 0; idx%d < %s; idx%d++) {", i, i, bound, i)
		t.indent++
	}
	for _, st := range stmts {
		if err := t.emitStmt(st); err != nil {
			return err
		}
	}
	for i := t.rank - 1; i >= 0; i-- {
		t.indent--
		t.line("}")
	}
	return nil
}

func (t *Translator) emitStmt(st ast.Stmt) error {
	switch node := st.(type) {
	case *ast.AssignStmt:
		return t.emitAssign(node)
	case *ast.IncDecStmt:
		lhs, err := t.expr(node.X)
		if err != nil {
			return err
		}
		op := "+"
		if node.Tok == token.DEC {
			op = "-"
		}
		t.line("%s = (%s %s 1);", lhs, lhs, op)
		return nil
	case *ast.DeclStmt:
		// Declarations were hoisted by collectLocals; initializers remain.
		gd := node.Decl.(*ast.GenDecl)
		for _, sp := range gd.Specs {
			vs := sp.(*ast.ValueSpec)
			for i, name := range vs.Names {
				if i < len(vs.Values) {
					rhs, err := t.expr(vs.Values[i])
					if err != nil {
						return err
					}
					t.line("%s = %s;", name.Name, rhs)
				}
			}
		}
		return nil
	case *ast.IfStmt:
		return t.emitIf(node)
	case *ast.ReturnStmt:
		if len(node.Results) == 1 {
			rhs, err := t.expr(node.Results[0])
			if err != nil {
				return err
			}
			if len(t.method.Args) > 0 {
				t.line("return %s;", rhs)
			} else {
				lhs, err := t.expr(ast.NewIdent(t.method.Target))
				if err != nil {
					return err
				}
				t.line("%s = %s;", lhs, rhs)
				t.line("return;")
			}
			return nil
		}
		t.line("return;")
		return nil
	case *ast.ExprStmt:
		expr, err := t.expr(node.X)
		if err != nil {
			return err
		}
		t.line("%s;", expr)
		return nil
	case *ast.BlockStmt:
		for _, inner := range node.List {
			if err := t.emitStmt(inner); err != nil {
				return err
			}
		}
		return nil
	default:
		return t.failStmt(st)
	}
}

// emitAssign lowers plain, short-declaration and compound assignment. The
// compound forms become plain assignment of a parenthesized expression;
// the target execution mode forbids non-atomic read-modify-write.
func (t *Translator) emitAssign(node *ast.AssignStmt) error {
	if len(node.Lhs) != 1 || len(node.Rhs) != 1 {
		return t.failStmt(node)
	}
	lhs, err := t.expr(node.Lhs[0])
	if err != nil {
		return err
	}
	rhs, err := t.expr(node.Rhs[0])
	if err != nil {
		return err
	}
	switch node.Tok {
	case token.ASSIGN, token.DEFINE:
		t.line("%s = %s;", lhs, rhs)
	case token.ADD_ASSIGN, token.SUB_ASSIGN, token.MUL_ASSIGN, token.QUO_ASSIGN, token.REM_ASSIGN:
		op := strings.TrimSuffix(node.Tok.String(), "=")
		t.line("%s = (%s %s %s);", lhs, lhs, op, rhs)
	default:
		return t.failStmt(node)
	}
	return nil
}

func (t *Translator) emitIf(node *ast.IfStmt) error {
	if node.Init != nil {
		return t.failStmt(node)
	}
	cond, err := t.expr(node.Cond)
	if err != nil {
		return err
	}
	t.line("if (%s) {", cond)
	t.indent++
	for _, st := range node.Body.List {
		if err := t.emitStmt(st); err != nil {
			return err
		}
	}
	t.indent--
	switch alt := node.Else.(type) {
	case nil:
		t.line("}")
	case *ast.BlockStmt:
		t.line("} else {")
		t.indent++
		for _, st := range alt.List {
			if err := t.emitStmt(st); err != nil {
				return err
			}
		}
		t.indent--
		t.line("}")
	case *ast.IfStmt:
		t.line("} else {")
		t.indent++
		if err := t.emitIf(alt); err != nil {
			return err
		}
		t.indent--
		t.line("}")
	default:
		return t.failStmt(node)
	}
	return nil
}

func (t *Translator) fail(method, name string, err error) error {
	return &model.GenerationError{Model: t.desc.Name, Method: method, Name: name, Wrapped: err}
}

func (t *Translator) failStmt(st ast.Stmt) error {
	return &model.GenerationError{
		Model:   t.desc.Name,
		Method:  t.method.Name,
		Wrapped: model.ErrUnsupportedStatement,
		Detail:  fmt.Sprintf("%T", st),
	}
}

func (t *Translator) lenField(name string, axis int) string {
	if _, kind, ok := t.desc.FindSequence(name); ok {
		return fmt.Sprintf("model.%s.len_%s_%d", kind, name, axis)
	}
	if _, kind, ok := t.desc.FindParameter(name); ok {
		return fmt.Sprintf("model.%s.len_%s_%d", kind, name, axis)
	}
	return fmt.Sprintf("len_%s_%d", name, axis)
}

func (t *Translator) printf(format string, args ...any) {
	fmt.Fprintf(&t.buf, format, args...)
}

func (t *Translator) raw(s string) {
	t.buf.WriteString(s)
}

func (t *Translator) line(format string, args ...any) {
	t.buf.WriteString(strings.Repeat("    ", t.indent))
	fmt.Fprintf(&t.buf, format, args...)
	t.buf.WriteByte('\n')
}
