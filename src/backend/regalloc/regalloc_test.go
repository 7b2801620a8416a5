package regalloc

import (
	"testing"

	"github.com/xe442/sysyc/src/backend/cfg"
	"github.com/xe442/sysyc/src/frontend"
	"github.com/xe442/sysyc/src/ir/eeyore"
	"github.com/xe442/sysyc/src/util"
)

// lower runs a source string through the frontend and eeyore lowering,
// mirroring what cmd/compiler's run() does before handing code to cfg/regalloc.
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

func TestSpillsWhenLiveSetExceedsRegisters(t *testing.T) {
	// 20 simultaneously-live locals forces the allocator past every
	// callee-saved register and into the spill area.
	src := `int main() {
	int a0; int a1; int a2; int a3; int a4; int a5; int a6; int a7;
	int a8; int a9; int a10; int a11; int a12; int a13; int a14;
	int a15; int a16; int a17; int a18; int a19;
	a0=1; a1=2; a2=3; a3=4; a4=5; a5=6; a6=7; a7=8; a8=9; a9=10;
	a10=11; a11=12; a12=13; a13=14; a14=15;
	a15=16; a16=17; a17=18; a18=19; a19=20;
	return a0+a1+a2+a3+a4+a5+a6+a7+a8+a9+a10+a11+a12+a13+a14+a15+a16+a17+a18+a19;
}`
	code := lower(t, src)
	g := cfg.Build(code, cfg.CollectOperands(code))
	g.ComputeLiveSets()
	intervals := g.ComputeIntervals()
	alloc := Run(g, intervals)

	var funcDefAt int
	for i, s := range code {
		if _, ok := s.(eeyore.FuncDef); ok {
			funcDefAt = i
			break
		}
	}
	info := alloc.StackInfo(funcDefAt)
	if info.SpillSlots == 0 {
		t.Fatalf("expected at least one spill slot with 20 simultaneously live locals, got stack info %+v", info)
	}
}

func TestCrossCallIntervalSurvivesCall(t *testing.T) {
	src := `int g(int x) { return x; }
int main() {
	int a;
	a = 5;
	return g(1) + a;
}`
	code := lower(t, src)
	g := cfg.Build(code, cfg.CollectOperands(code))
	g.ComputeLiveSets()
	intervals := g.ComputeIntervals()
	alloc := Run(g, intervals)

	var sawCrossCall bool
	for _, fi := range intervals {
		for _, iv := range fi.Intervals {
			if iv.CrossCall {
				sawCrossCall = true
				if _, ok := alloc.ActualPosOf(iv.Op, iv.Begin); !ok {
					t.Fatalf("cross-call interval for %v has no recorded position at its start", iv.Op)
				}
			}
		}
	}
	if !sawCrossCall {
		t.Fatalf("expected a live interval to cross the call to g in: %s", src)
	}
}
