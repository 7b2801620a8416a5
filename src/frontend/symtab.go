// Scope chain used by the checker: an ordered sequence of scope frames
// (push on block entry, pop on block exit) from name to Entry. Lookup walks
// frames top (innermost) to bottom (outermost) and returns the first match,
// mirroring hhramberg-go-vslc/src/ir/validate.go's GetEntry-over-
// util.Stack-of-scopes pattern, generalized to the new generic util.Stack[T].
package frontend

import (
	"fmt"

	"github.com/xe442/sysyc/src/frontend/ast"
	"github.com/xe442/sysyc/src/util"
)

// EntryKind distinguishes the three things a name can resolve to.
type EntryKind int

const (
	EntryVar EntryKind = iota
	EntryParam
	EntryFunc
)

// Entry is one declared name: a variable, parameter or function.
type Entry struct {
	Kind EntryKind
	Type ast.Type // Zero value for EntryFunc; see Params/ReturnsInt instead.

	// Populated only for EntryFunc.
	Params     []ast.Type
	ReturnsInt bool

	Pos ast.Pos
}

// scope is one frame of the chain: block-local or file-global bindings.
type scope map[string]*Entry

// SymTab is the compiler's scope chain: a stack of scopes, innermost on
// top, searched in that order by Lookup.
type SymTab struct {
	scopes util.Stack[scope]
}

// NewSymTab returns an empty chain with a single (global) scope pushed.
func NewSymTab() *SymTab {
	st := &SymTab{}
	st.Push()
	return st
}

// Push opens a new, empty innermost scope.
func (st *SymTab) Push() { st.scopes.Push(make(scope)) }

// Pop discards the innermost scope. Popping an empty chain panics with an
// internal error; the global scope NewSymTab pushes can itself be popped.
func (st *SymTab) Pop() {
	if st.scopes.Size() == 0 {
		util.Fail("symtab: Pop on empty scope chain")
	}
	st.scopes.Pop()
}

// Declare adds name to the innermost scope. It returns false without
// modifying the chain if name already has a binding in that same scope
// (shadowing an outer scope's binding is allowed; redeclaring within one
// block is not).
func (st *SymTab) Declare(name string, e *Entry) bool {
	top, ok := st.scopes.Peek()
	if !ok {
		util.Fail("symtab: Declare with no open scope")
	}
	if _, exists := top[name]; exists {
		return false
	}
	top[name] = e
	return true
}

// Lookup searches scopes from innermost to outermost and returns the first
// binding found for name.
func (st *SymTab) Lookup(name string) (*Entry, error) {
	n := st.scopes.Size()
	for i := 1; i <= n; i++ {
		s, ok := st.scopes.Get(i)
		if !ok {
			return nil, fmt.Errorf("symtab: scope chain malformed")
		}
		if e, found := s[name]; found {
			return e, nil
		}
	}
	return nil, fmt.Errorf("identifier %q not declared", name)
}
