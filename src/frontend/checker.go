// checker.go is the semantic checker called out in spec.md §4.9: a single
// pass over the parsed tree performing scope resolution, type assignment,
// and the user-error checks spec.md §7 enumerates (undefined identifier,
// type mismatch, redefinition, break/continue outside loop, void in rval
// position, argument-count mismatch; a non-constant array dimension is
// already rejected by the parser). It is
// intentionally thin — sufficient to hand EeyoreGenerator a tree it can
// assume is valid, not a complete front end.
//
// Errors are collected, not fail-fast at the frontend layer: every error
// found is reported to a util.Diagnostics so a user sees every problem in
// one run, per SPEC_FULL.md §9's resolution of spec.md's batching question.
// The pipeline as a whole still fails fast (cmd/compiler aborts before
// lowering if Diagnostics.Len() > 0), matching spec.md §7's fail-fast rule
// at the boundary between the frontend and the two-stage lowering core.
package frontend

import (
	"fmt"

	"github.com/xe442/sysyc/src/frontend/ast"
	"github.com/xe442/sysyc/src/util"
)

// loopDepth tracking + symbol table make up the checker's state.
type Checker struct {
	syms  *SymTab
	funcs map[string]*Entry
	diag  *util.Diagnostics
	loop  int // nesting depth of enclosing while loops; break/continue require > 0.
}

// NewChecker returns a checker reporting into diag.
func NewChecker(diag *util.Diagnostics) *Checker {
	return &Checker{syms: NewSymTab(), funcs: make(map[string]*Entry), diag: diag}
}

// builtins lists the I/O library functions referenced by name only
// (spec.md §6.2): the checker must accept calls to them without a
// corresponding FuncDef in the translation unit.
var builtins = map[string]*Entry{
	"getint":  {Kind: EntryFunc, ReturnsInt: true},
	"getch":   {Kind: EntryFunc, ReturnsInt: true},
	"getarray": {Kind: EntryFunc, ReturnsInt: true, Params: []ast.Type{{Dims: []int{0}, IsPointer: true}}},
	"putint":  {Kind: EntryFunc, ReturnsInt: false, Params: []ast.Type{{}}},
	"putch":   {Kind: EntryFunc, ReturnsInt: false, Params: []ast.Type{{}}},
	"putarray": {Kind: EntryFunc, ReturnsInt: false, Params: []ast.Type{{}, {Dims: []int{0}, IsPointer: true}}},
	"_sysy_starttime": {Kind: EntryFunc, ReturnsInt: false, Params: []ast.Type{{}}},
	"_sysy_stoptime":  {Kind: EntryFunc, ReturnsInt: false, Params: []ast.Type{{}}},
}

// Check runs the checker over prog, reporting every error found. It returns
// false if any error was reported.
func (c *Checker) Check(prog *ast.Program) bool {
	for name, e := range builtins {
		c.funcs[name] = e
	}

	// Pass 1: register every function signature so forward calls resolve.
	for _, d := range prog.Decls {
		if fd, ok := d.(*ast.FuncDef); ok {
			if _, exists := c.funcs[fd.Name]; exists {
				c.errorf(fd.Pos, "function %q redefined", fd.Name)
				continue
			}
			sig := &Entry{Kind: EntryFunc, ReturnsInt: fd.ReturnsInt}
			for _, p := range fd.Params {
				sig.Params = append(sig.Params, p.Type)
			}
			c.funcs[fd.Name] = sig
		}
	}

	ok := true
	for _, d := range prog.Decls {
		switch n := d.(type) {
		case *ast.VarDecl:
			c.checkVarDecl(n, true)
		case *ast.FuncDef:
			c.checkFuncDef(n)
		}
	}
	ok = c.diag.Len() == 0
	return ok
}

func (c *Checker) errorf(p ast.Pos, format string, args ...interface{}) {
	c.diag.Report(fmt.Errorf("%d:%d: %s", p.Line, p.Col, fmt.Sprintf(format, args...)))
}

func (c *Checker) checkVarDecl(n *ast.VarDecl, global bool) {
	for _, def := range n.Defs {
		if !c.syms.Declare(def.Name, &Entry{Kind: EntryVar, Type: def.Type, Pos: def.Pos}) {
			c.errorf(def.Pos, "variable %q redeclared in this scope", def.Name)
		}
		if def.Init != nil {
			c.checkInitializer(def.Init, def.Type)
		}
	}
}

// checkInitializer walks a scalar expr or (possibly nested) Initializer
// against the shape of typ, flagging a brace initializer for a scalar and
// too many elements at one level. Element expressions are resolved but not
// checked for being constant, for globals as for locals.
func (c *Checker) checkInitializer(n ast.Node, typ ast.Type) {
	switch v := n.(type) {
	case *ast.Initializer:
		if typ.IsScalar() {
			c.errorf(v.Pos, "brace initializer used for scalar variable")
			return
		}
		inner := ast.Type{Dims: typ.Dims[1:]}
		if len(v.Elems) > typ.Dims[0] {
			c.errorf(v.Pos, "too many initializer elements")
		}
		for _, e := range v.Elems {
			c.checkInitializer(e, inner)
		}
	default:
		e := n.(ast.Expr)
		c.inferExpr(e)
	}
}

func (c *Checker) checkFuncDef(n *ast.FuncDef) {
	c.syms.Push()
	for _, p := range n.Params {
		if !c.syms.Declare(p.Name, &Entry{Kind: EntryParam, Type: p.Type, Pos: p.Pos}) {
			c.errorf(p.Pos, "parameter %q redeclared", p.Name)
		}
	}
	prevReturns := n.ReturnsInt
	c.checkBlockIn(n.Body, prevReturns)
	c.syms.Pop()
}

// checkBlockIn checks stmt sequences inside an already-pushed-or-to-push
// scope; returnsInt is threaded through for "return <expr>" vs "return"
// void-mismatch checking.
func (c *Checker) checkBlockIn(b *ast.Block, returnsInt bool) {
	c.syms.Push()
	for _, item := range b.Items {
		c.checkBlockItem(item, returnsInt)
	}
	c.syms.Pop()
}

func (c *Checker) checkBlockItem(item ast.Node, returnsInt bool) {
	switch n := item.(type) {
	case *ast.VarDecl:
		c.checkVarDecl(n, false)
	case *ast.Block:
		c.checkBlockIn(n, returnsInt)
	case *ast.If:
		c.inferExpr(n.Cond)
		c.checkStmt(n.Then, returnsInt)
		if n.Else != nil {
			c.checkStmt(n.Else, returnsInt)
		}
	case *ast.While:
		c.inferExpr(n.Cond)
		c.loop++
		c.checkStmt(n.Body, returnsInt)
		c.loop--
	case *ast.Break:
		if c.loop == 0 {
			c.errorf(n.Pos, "break outside loop")
		}
	case *ast.Cont:
		if c.loop == 0 {
			c.errorf(n.Pos, "continue outside loop")
		}
	case *ast.Ret:
		if n.Expr != nil {
			if !returnsInt {
				c.errorf(n.Pos, "return with a value in a void function")
			}
			c.inferExpr(n.Expr)
		}
	case *ast.BinaryOp:
		c.checkAssign(n)
	case *ast.FuncCall:
		c.inferCall(n)
	default:
		util.Fail(fmt.Sprintf("frontend: unexpected statement node %T", item))
	}
}

func (c *Checker) checkStmt(s ast.Stmt, returnsInt bool) {
	c.checkBlockItem(s, returnsInt)
}

func (c *Checker) checkAssign(n *ast.BinaryOp) {
	if n.Op != ast.OpAssign {
		c.inferExpr(n)
		return
	}
	lt := c.inferExpr(n.Lhs)
	rt := c.inferExpr(n.Rhs)
	if _, ok := n.Lhs.(*ast.Id); !ok {
		if _, ok := n.Lhs.(*ast.BinaryOp); !ok {
			c.errorf(n.Pos, "left-hand side of assignment is not an lvalue")
			return
		}
	}
	if !lt.IsScalar() || !rt.IsScalar() {
		c.errorf(n.Pos, "array value used where a scalar was expected")
	}
}

// inferExpr resolves identifiers and call targets and returns the resolved
// type of n; it leaves the tree unchanged.
func (c *Checker) inferExpr(n ast.Expr) ast.Type {
	switch v := n.(type) {
	case *ast.ConstInt:
		return ast.Type{}
	case *ast.Id:
		e, err := c.syms.Lookup(v.Name)
		if err != nil {
			c.errorf(v.Pos, "%s", err)
			return ast.Type{}
		}
		return e.Type
	case *ast.UnaryOp:
		t := c.inferExpr(v.Operand)
		if !t.IsScalar() {
			c.errorf(v.Pos, "unary operator applied to an array value")
		}
		return ast.Type{}
	case *ast.BinaryOp:
		return c.inferBinary(v)
	case *ast.FuncCall:
		if sig, ok := c.funcs[v.Name]; ok && !sig.ReturnsInt {
			c.errorf(v.Pos, "void function %q used as a value", v.Name)
		}
		return c.inferCall(v)
	default:
		util.Fail(fmt.Sprintf("frontend: unexpected expression node %T", n))
		return ast.Type{}
	}
}

func (c *Checker) inferBinary(n *ast.BinaryOp) ast.Type {
	if n.Op == ast.OpAccess {
		base := c.inferExpr(n.Lhs)
		c.inferExpr(n.Rhs)
		if base.IsScalar() {
			c.errorf(n.Pos, "indexing a scalar value")
			return ast.Type{}
		}
		return ast.Type{Dims: base.Dims[1:]}
	}
	if n.Op == ast.OpAssign {
		c.checkAssign(n)
		return ast.Type{}
	}
	lt := c.inferExpr(n.Lhs)
	rt := c.inferExpr(n.Rhs)
	if !lt.IsScalar() || !rt.IsScalar() {
		c.errorf(n.Pos, "array value used in a scalar expression")
	}
	return ast.Type{}
}

func (c *Checker) inferCall(n *ast.FuncCall) ast.Type {
	sig, ok := c.funcs[n.Name]
	if !ok {
		c.errorf(n.Pos, "call to undefined function %q", n.Name)
		for _, a := range n.Args {
			c.inferExpr(a)
		}
		return ast.Type{}
	}
	if len(n.Args) != len(sig.Params) {
		c.errorf(n.Pos, "function %q expects %d argument(s), got %d", n.Name, len(sig.Params), len(n.Args))
	}
	for i, a := range n.Args {
		at := c.inferExpr(a)
		if i < len(sig.Params) && sig.Params[i].IsScalar() != at.IsScalar() {
			c.errorf(n.Pos, "argument %d of %q has the wrong shape (scalar vs array)", i+1, n.Name)
		}
	}
	return ast.Type{}
}
