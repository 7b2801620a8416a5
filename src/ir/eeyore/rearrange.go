package eeyore

import "github.com/xe442/sysyc/src/util"

// Rearrange performs the single left-to-right sweep spec.md §4.2 describes:
// every local Decl is hoisted to the top of its enclosing function, every
// global Decl is hoisted to file start, and every global assignment (any
// non-Decl statement appearing outside a function) is buffered and spliced
// into f_main immediately after its own leading Decls.
//
// Grounded on original_source's rearrange pass; the teacher repo has no
// direct analogue (its IR never needed to separate declaration-hoisting
// from codegen), so this is transcribed straight from spec.md.
func Rearrange(code []Stmt) []Stmt {
	var globalDecls []Stmt
	var globalAssigns []Stmt
	var out []Stmt

	inFunc := false
	var funcDecls []Stmt
	var funcBody []Stmt

	flushFunc := func() {
		out = append(out, funcDecls...)
		out = append(out, funcBody...)
		funcDecls, funcBody = nil, nil
	}

	for _, s := range code {
		switch v := s.(type) {
		case FuncDef:
			inFunc = true
			out = append(out, v)
		case EndFuncDef:
			flushFunc()
			out = append(out, v)
			inFunc = false
		case Decl:
			if inFunc {
				funcDecls = append(funcDecls, v)
			} else {
				globalDecls = append(globalDecls, v)
			}
		default:
			if inFunc {
				funcBody = append(funcBody, v)
			} else {
				globalAssigns = append(globalAssigns, v)
			}
		}
	}

	final := append([]Stmt{}, globalDecls...)
	final = append(final, spliceMain(out, globalAssigns)...)
	return final
}

// spliceMain locates f_main's FuncDef, skips its leading Decls, and inserts
// assigns immediately after. Fatal (internal error) if f_main is missing,
// per spec.md §4.2's invariant.
func spliceMain(code []Stmt, assigns []Stmt) []Stmt {
	mainAt := -1
	for i, s := range code {
		if fd, ok := s.(FuncDef); ok && fd.Name == "main" {
			mainAt = i
			break
		}
	}
	util.Assert(mainAt >= 0, "rearranger: f_main is missing")

	insertAt := mainAt + 1
	for insertAt < len(code) {
		if _, ok := code[insertAt].(Decl); !ok {
			break
		}
		insertAt++
	}

	out := make([]Stmt, 0, len(code)+len(assigns))
	out = append(out, code[:insertAt]...)
	out = append(out, assigns...)
	out = append(out, code[insertAt:]...)
	return out
}
