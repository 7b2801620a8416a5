package cfg

import "github.com/xe442/sysyc/src/ir/eeyore"

// CollectOperands returns every OrigVar named by a Decl (block 0's globals
// and hoisted locals), every OrigVar/TempVar written by some statement in
// some function, and every function's Params. This is the module-wide
// operand universe Build needs to size its bitsets.
func CollectOperands(code []eeyore.Stmt) []eeyore.Operand {
	seen := make(map[eeyore.Operand]bool)
	var out []eeyore.Operand
	add := func(op eeyore.Operand) {
		if op == nil {
			return
		}
		if _, ok := op.(eeyore.Immediate); ok {
			return
		}
		if !seen[op] {
			seen[op] = true
			out = append(out, op)
		}
	}
	for _, s := range code {
		if d, ok := s.(eeyore.Decl); ok {
			add(d.Var)
		}
		for _, def := range eeyore.DefinedVars(s) {
			add(def)
		}
	}
	// Params are read-only at entry but never separately "defined" by a
	// Decl or DefinedVars; a function's every Param must still be in the
	// universe so the allocator can track it.
	for _, s := range code {
		if fd, ok := s.(eeyore.FuncDef); ok {
			for i := 0; i < fd.ArgCnt; i++ {
				add(eeyore.Param{Id: i})
			}
		}
	}
	return out
}
