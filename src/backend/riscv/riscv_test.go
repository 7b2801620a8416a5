package riscv

import (
	"strings"
	"testing"

	"github.com/xe442/sysyc/src/backend/cfg"
	"github.com/xe442/sysyc/src/backend/regalloc"
	"github.com/xe442/sysyc/src/backend/tiggergen"
	"github.com/xe442/sysyc/src/frontend"
	"github.com/xe442/sysyc/src/ir/eeyore"
	"github.com/xe442/sysyc/src/util"
)

func compileToRiscv(t *testing.T, src string) string {
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
	code = eeyore.CleanJumpsAndLabels(code)

	g := cfg.Build(code, cfg.CollectOperands(code))
	g.ComputeLiveSets()
	intervals := g.ComputeIntervals()
	alloc := regalloc.Run(g, intervals)
	tcode := tiggergen.Generate(code, alloc)
	return Print(tcode)
}

func TestSmallFrameUsesAddi(t *testing.T) {
	out := compileToRiscv(t, "int main() { int a; a = 1; return a; }")
	if !strings.Contains(out, "addi\tsp, sp") {
		t.Fatalf("expected a small stack frame to use addi, got:\n%s", out)
	}
}

func TestLargeFrameFallsBackToScratchRegister(t *testing.T) {
	// A 1024-int local array pushes the frame well past the 12-bit
	// signed-immediate range (2047 bytes), requiring the li-t0 fallback.
	out := compileToRiscv(t, "int main() { int a[1024]; a[0] = 1; return a[0]; }")
	if !strings.Contains(out, "li\tt0") {
		t.Fatalf("expected out-of-range sp adjustment to fall back to li t0, got:\n%s", out)
	}
}

func TestRelationalOpsSynthesized(t *testing.T) {
	out := compileToRiscv(t, "int main() { int a; int b; a = 1; b = 2; if (a <= b) return 1; return 0; }")
	if !strings.Contains(out, "slt") {
		t.Fatalf("expected slt-based relational synthesis, got:\n%s", out)
	}
}
