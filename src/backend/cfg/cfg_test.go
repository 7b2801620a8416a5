package cfg_test

import (
	"testing"

	"github.com/xe442/sysyc/src/backend/cfg"
	"github.com/xe442/sysyc/src/frontend"
	"github.com/xe442/sysyc/src/ir/eeyore"
	"github.com/xe442/sysyc/src/util"
)

// lower runs src through the frontend and eeyore lowering, mirroring what
// cmd/compiler's run() does before handing code to cfg.Build.
func lower(t *testing.T, src string) []eeyore.Stmt {
	t.Helper()
	prog, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	diag := util.NewDiagnostics(4)
	if !frontend.NewChecker(diag).Check(prog) {
		diag.Stop()
		t.Fatalf("semantic errors: %v", diag.All())
	}
	diag.Stop()
	code := eeyore.Generate(prog)
	code = eeyore.Rearrange(code)
	return eeyore.CleanJumpsAndLabels(code)
}

// TestBlockRangesCoverEveryStatement builds the CFG for a function with
// both an if (falling through into its end label) and a while (falling
// through into its condition label), and checks every non-Decl statement
// is claimed by some block's [Begin,Last] range. A block that falls
// through into a label without being closed keeps Last stuck at its
// zero value, leaving a gap here.
func TestBlockRangesCoverEveryStatement(t *testing.T) {
	src := `
int main() {
	int a; int b; int s;
	a = 1; b = 0; s = 0;
	if (a) {
		b = 2;
	}
	while (a < 5) {
		s = s + b;
		a = a + 1;
	}
	return s;
}`
	code := lower(t, src)
	g := cfg.Build(code, cfg.CollectOperands(code))

	covered := make([]bool, len(code))
	for _, b := range g.Blocks {
		for i := b.Begin; i <= b.Last; i++ {
			if i < 0 || i >= len(code) {
				t.Fatalf("block %d has out-of-bounds range [%d,%d]", b.Id, b.Begin, b.Last)
			}
			covered[i] = true
		}
	}
	for i, s := range code {
		if _, ok := s.(eeyore.Decl); ok {
			continue // block 0 may legitimately be empty when code[0] is a FuncDef.
		}
		if !covered[i] {
			t.Fatalf("statement %d (%T) is not covered by any block's [Begin,Last] range", i, s)
		}
	}
}

// TestThenBodyLivenessReachesLaterUse checks that a variable assigned only
// inside an if's then-body (a block that falls through into the if's end
// label) still gets a live interval reaching its later use, and that the
// then-body's own block was actually closed.
func TestThenBodyLivenessReachesLaterUse(t *testing.T) {
	src := `
int main() {
	int a; int b;
	a = 1; b = 0;
	if (a) {
		b = 2;
	}
	return b;
}`
	code := lower(t, src)

	defAt, retAt := -1, -1
	var definedOp eeyore.Operand
	for i, s := range code {
		switch v := s.(type) {
		case eeyore.Move:
			if imm, ok := v.Src.(eeyore.Immediate); ok && int(imm) == 2 {
				defAt = i
				definedOp = v.Dst
			}
		case eeyore.Ret:
			retAt = i
		}
	}
	if defAt < 0 {
		t.Fatalf("could not locate the then-body's assignment of b = 2 in lowered code")
	}
	if retAt < 0 {
		t.Fatalf("could not locate the function's return statement")
	}

	g := cfg.Build(code, cfg.CollectOperands(code))

	blk := g.Blocks[g.BlockOf[defAt]]
	if blk.Begin > blk.Last {
		t.Fatalf("then-body block %d (containing statement %d) has empty range [%d,%d]: it fell through into a label without being closed",
			blk.Id, defAt, blk.Begin, blk.Last)
	}

	g.ComputeLiveSets()
	intervals := g.ComputeIntervals()

	var iv *cfg.Interval
	for _, fi := range intervals {
		for _, cand := range fi.Intervals {
			if cand.Op == definedOp {
				iv = cand
			}
		}
	}
	if iv == nil {
		t.Fatalf("no live interval computed for %v (defined at statement %d)", definedOp, defAt)
	}
	if iv.Begin > defAt {
		t.Fatalf("interval Begin %d must be at or before the defining statement %d", iv.Begin, defAt)
	}
	if iv.Back < retAt {
		t.Fatalf("interval Back %d does not reach the use in return (statement %d): "+
			"the then-body's contribution to liveness was dropped", iv.Back, retAt)
	}
}
