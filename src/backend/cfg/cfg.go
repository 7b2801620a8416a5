// Package cfg builds the control-flow graph consumed by the linear-scan
// allocator: block partitioning, live-set dataflow and live-interval
// computation, spec.md §4.4-§4.6.
//
// Grounded on original_source's basic-block/dataflow pass (not present
// verbatim in the retrieval pack; transcribed from the spec's description)
// and structured like the teacher's own block/dataflow handling in
// src/backend/lir/regalloc.go, which walks a flat instruction list into
// blocks before allocating registers.
package cfg

import (
	"github.com/xe442/sysyc/src/ir/eeyore"
	"github.com/xe442/sysyc/src/util"
)

// Block is one maximal straight-line run of Eeyore statements.
type Block struct {
	Id    int
	Begin int // index of the first statement, inclusive.
	Last  int // index of the last statement, inclusive.
	Succ  []int

	Gen, Kill util.BitSet
	In, Out   util.BitSet
}

// Graph is a built CFG over one Eeyore module: the module-wide operand
// universe plus, per function, the id of its entry block.
type Graph struct {
	Code     []eeyore.Stmt
	Blocks   []*Block
	Operands []eeyore.Operand       // dense operand universe, index == bit position.
	Index    map[eeyore.Operand]int // operand -> bit position.

	// FuncStart maps each FuncDef statement's index to the id of its first
	// (entry) block.
	FuncStart map[int]int
	// BlockOf maps a statement index to the block that owns it.
	BlockOf []int
}

func (g *Graph) bit(op eeyore.Operand) (int, bool) {
	if _, ok := op.(eeyore.Immediate); ok {
		return 0, false
	}
	i, ok := g.Index[operandKey(op)]
	return i, ok
}

// operandKey normalizes an operand to a comparable value usable as a map
// key: OrigVar/TempVar/Param already are (struct of comparable fields),
// this just documents the assumption and gives a single seam if that ever
// changes.
func operandKey(op eeyore.Operand) eeyore.Operand { return op }

// Build partitions code into blocks and wires successors, per spec.md
// §4.4. allDefined is the module-wide list of every operand that receives
// a definition anywhere (block 0's globals plus every OrigVar/TempVar
// written in any function), as CollectOperands builds it; it also holds
// hoisted local Decls' variables and every function's Params.
func Build(code []eeyore.Stmt, allDefined []eeyore.Operand) *Graph {
	g := &Graph{
		Code:      code,
		Operands:  allDefined,
		Index:     make(map[eeyore.Operand]int, len(allDefined)),
		FuncStart: make(map[int]int),
		BlockOf:   make([]int, len(code)),
	}
	for i, op := range allDefined {
		g.Index[operandKey(op)] = i
	}

	labelBlock := make(map[int]int) // label id -> block id, filled as blocks are discovered.

	newBlock := func(begin int) *Block {
		b := &Block{Id: len(g.Blocks), Begin: begin}
		g.Blocks = append(g.Blocks, b)
		return b
	}

	// Block 0: the leading run of global Decls.
	cur := newBlock(0)
	i := 0
	for i < len(code) {
		if _, ok := code[i].(eeyore.Decl); !ok {
			break
		}
		g.BlockOf[i] = cur.Id
		i++
	}
	cur.Last = i - 1

	// cur is the block statements are currently falling into, or nil right
	// after a terminator (Goto/CondGoto/Ret) when no block has been opened
	// for whatever comes next yet. Label/FuncDef always close out whatever
	// cur was still open (a fall-through into the label) before opening
	// their own block; when cur is already nil (the label immediately
	// follows a terminator) there is nothing left to close, so no second,
	// empty block gets created at the terminator's own successor index.
	for i < len(code) {
		switch s := code[i].(type) {
		case eeyore.LabelStmt:
			if cur != nil {
				cur.Last = i - 1
			}
			cur = newBlock(i)
			labelBlock[s.Label.Id] = cur.Id
		case eeyore.FuncDef:
			if cur != nil {
				cur.Last = i - 1
			}
			cur = newBlock(i)
			g.FuncStart[i] = cur.Id
		default:
			if cur == nil {
				cur = newBlock(i)
			}
		}
		g.BlockOf[i] = cur.Id

		switch code[i].(type) {
		case eeyore.Goto, eeyore.CondGoto:
			cur.Last = i
			cur = nil
		case eeyore.Ret:
			end := i
			if end+1 < len(code) {
				if _, ok := code[end+1].(eeyore.EndFuncDef); ok {
					end++
					g.BlockOf[end] = cur.Id
				}
			}
			cur.Last = end
			cur = nil
			i = end
		}
		i++
	}
	if cur != nil {
		cur.Last = len(code) - 1
	}

	g.wireSuccessors(labelBlock)
	return g
}

func (g *Graph) wireSuccessors(labelBlock map[int]int) {
	for _, b := range g.Blocks {
		if b.Id == 0 {
			continue // block 0's successors are treated as empty.
		}
		if b.Last < b.Begin || b.Last >= len(g.Code) {
			continue
		}
		switch s := g.Code[b.Last].(type) {
		case eeyore.Goto:
			b.Succ = []int{labelBlock[s.Label.Id]}
		case eeyore.CondGoto:
			target := labelBlock[s.Label.Id]
			fall := b.Id + 1
			if fall < len(g.Blocks) {
				b.Succ = []int{target}
				if fall != target {
					b.Succ = append(b.Succ, fall)
				}
			} else {
				b.Succ = []int{target}
			}
		case eeyore.Ret, eeyore.EndFuncDef:
			// no successors.
		default:
			if b.Id+1 < len(g.Blocks) {
				b.Succ = []int{b.Id + 1}
			}
		}
	}
}
