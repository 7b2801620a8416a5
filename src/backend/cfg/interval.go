package cfg

import (
	"sort"

	"github.com/xe442/sysyc/src/ir/eeyore"
)

// Interval is one operand's live range within a single function: the
// inclusive statement-id range [Begin, Back], plus whether any FuncCall
// falls within it (the allocator must then prefer a callee-saved register
// for it, per spec.md §4.7).
type Interval struct {
	Op         eeyore.Operand
	Begin, Back int
	CrossCall  bool
}

// FuncIntervals is one function's computed intervals, sorted by ascending
// Begin (spec.md §4.6).
type FuncIntervals struct {
	FuncDefAt int // statement index of the function's FuncDef.
	Intervals []*Interval
}

// ComputeIntervals implements spec.md §4.6: per function, scanning from
// its last block backwards, extend/truncate each operand's interval.
func (g *Graph) ComputeIntervals() []FuncIntervals {
	starts := make([]int, 0, len(g.FuncStart))
	startBlock := make(map[int]int) // func start stmt index -> block id
	for stmtIdx, blockID := range g.FuncStart {
		starts = append(starts, stmtIdx)
		startBlock[stmtIdx] = blockID
	}
	sort.Ints(starts)

	var out []FuncIntervals
	for fi, stmtIdx := range starts {
		beginBlock := startBlock[stmtIdx]
		endBlock := len(g.Blocks)
		if fi+1 < len(starts) {
			endBlock = startBlock[starts[fi+1]]
		}
		out = append(out, g.computeOneFunc(stmtIdx, beginBlock, endBlock))
	}
	return out
}

func (g *Graph) computeOneFunc(funcDefAt, beginBlock, endBlock int) FuncIntervals {
	n := len(g.Operands)
	isGlobal := make([]bool, n)
	if len(g.Blocks) > 0 {
		b0 := g.Blocks[0]
		for i := b0.Begin; i <= b0.Last && i >= 0; i++ {
			if d, ok := g.Code[i].(eeyore.Decl); ok {
				if idx, ok := g.bit(d.Var); ok {
					isGlobal[idx] = true
				}
			}
		}
	}

	live := make(map[int]*Interval) // operand bit index -> interval
	var callIDs []int

	extend := func(idx int, op eeyore.Operand, lo, hi int) {
		iv, ok := live[idx]
		if !ok {
			live[idx] = &Interval{Op: op, Begin: lo, Back: hi}
			return
		}
		if lo < iv.Begin {
			iv.Begin = lo
		}
		if hi > iv.Back {
			iv.Back = hi
		}
	}
	define := func(idx int, sid int) {
		iv, ok := live[idx]
		if !ok {
			return
		}
		if sid > iv.Back {
			delete(live, idx)
			return
		}
		iv.Begin = sid
	}

	for bi := endBlock - 1; bi >= beginBlock; bi-- {
		b := g.Blocks[bi]
		for _, idx := range b.Out.Bits() {
			extend(idx, g.Operands[idx], b.Begin, b.Last)
		}
		for sid := b.Last; sid >= b.Begin && sid >= 0; sid-- {
			s := g.Code[sid]
			if _, ok := s.(eeyore.FuncCall); ok {
				callIDs = append(callIDs, sid)
				for idx, glob := range isGlobal {
					if glob {
						define(idx, sid)
					}
				}
				continue
			}
			for _, def := range eeyore.DefinedVars(s) {
				if idx, ok := g.bit(def); ok {
					define(idx, sid)
				}
			}
			for _, used := range eeyore.UsedVars(s) {
				if idx, ok := g.bit(used); ok {
					extend(idx, used, b.Begin, sid)
				}
			}
		}
	}

	var result []*Interval
	for _, iv := range live {
		for _, cid := range callIDs {
			if cid >= iv.Begin && cid <= iv.Back {
				iv.CrossCall = true
				break
			}
		}
		result = append(result, iv)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Begin < result[j].Begin })
	return FuncIntervals{FuncDefAt: funcDefAt, Intervals: result}
}
