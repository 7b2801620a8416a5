package cfg

import (
	"github.com/xe442/sysyc/src/ir/eeyore"
	"github.com/xe442/sysyc/src/util"
)

// ComputeLiveSets fills in Gen/Kill/In/Out for every block, per spec.md
// §4.5: per-block gen/kill from a forward scan (a FuncCall kills every
// global), then a classical backward fixpoint for in/out over the whole
// module, with block 0 treated as having no successors.
func (g *Graph) ComputeLiveSets() {
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

	for _, b := range g.Blocks {
		b.Gen = util.NewBitSet(n)
		b.Kill = util.NewBitSet(n)
		for i := b.Begin; i <= b.Last && i >= 0 && i < len(g.Code); i++ {
			s := g.Code[i]
			if _, ok := s.(eeyore.FuncCall); ok {
				for idx, glob := range isGlobal {
					if glob {
						b.Kill.Set(idx)
					}
				}
				continue
			}
			for _, used := range eeyore.UsedVars(s) {
				if idx, ok := g.bit(used); ok && !b.Kill.Has(idx) {
					b.Gen.Set(idx)
				}
			}
			for _, def := range eeyore.DefinedVars(s) {
				if idx, ok := g.bit(def); ok {
					b.Kill.Set(idx)
				}
			}
		}
		b.In = util.NewBitSet(n)
		b.Out = util.NewBitSet(n)
	}

	changed := true
	for changed {
		changed = false
		for i := len(g.Blocks) - 1; i >= 0; i-- {
			b := g.Blocks[i]
			if b.Id == 0 {
				continue
			}
			newOut := util.NewBitSet(n)
			for _, s := range b.Succ {
				newOut.UnionInto(g.Blocks[s].In)
			}
			newIn := b.Gen.Clone()
			newIn.UnionInto(newOut.Minus(b.Kill))
			if !bitsetEqual(newOut, b.Out) || !bitsetEqual(newIn, b.In) {
				changed = true
			}
			b.Out = newOut
			b.In = newIn
		}
	}
}

func bitsetEqual(a, b util.BitSet) bool {
	ab, bb := a.Bits(), b.Bits()
	if len(ab) != len(bb) {
		return false
	}
	for i := range ab {
		if ab[i] != bb[i] {
			return false
		}
	}
	return true
}
