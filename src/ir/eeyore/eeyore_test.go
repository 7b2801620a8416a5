package eeyore

import (
	"strings"
	"testing"

	"github.com/xe442/sysyc/src/frontend"
	"github.com/xe442/sysyc/src/util"
)

// lower parses, checks, and lowers src down through rearrange + cleanup,
// failing the test on any parse or semantic error.
func lower(t *testing.T, src string) []Stmt {
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
	code := Generate(prog)
	code = Rearrange(code)
	return CleanJumpsAndLabels(code)
}

func TestImplicitReturn(t *testing.T) {
	code := lower(t, "int f() { int x; x = 1; } int main() { f(); return 0; }")
	var lastBeforeEnd Stmt
	for i, s := range code {
		if _, ok := s.(EndFuncDef); ok && i > 0 {
			lastBeforeEnd = code[i-1]
			break
		}
	}
	if _, ok := lastBeforeEnd.(Ret); !ok {
		t.Fatalf("function falling off the end must gain an implicit return, got %T", lastBeforeEnd)
	}
}

func TestShortCircuitAnd(t *testing.T) {
	code := lower(t, "int main() { int a; int b; a = 1; b = 0; if (a && b) return 1; return 0; }")
	out := Print(code)
	if !strings.Contains(out, "goto") {
		t.Fatalf("short-circuit && must lower to conditional branches, got:\n%s", out)
	}
	// b's test must be guarded by a branch on a, not evaluated unconditionally
	// before a is known true: exactly one CondGoto should appear per operand.
	var condGotos int
	for _, s := range code {
		if _, ok := s.(CondGoto); ok {
			condGotos++
		}
	}
	if condGotos != 2 {
		t.Fatalf("expected exactly 2 CondGoto (one per operand) for short-circuit evaluation of a && b, got %d", condGotos)
	}
}

func TestNestedArrayIndexing(t *testing.T) {
	code := lower(t, "int main() { int a[2][3]; a[1][2] = 5; return a[1][2]; }")
	var sawWrite, sawRead bool
	for _, s := range code {
		switch v := s.(type) {
		case WriteArr:
			sawWrite = true
			if _, ok := v.Idx.(Immediate); !ok {
				t.Fatalf("constant nested index should fold to an Immediate offset, got %T", v.Idx)
			}
		case ReadArr:
			sawRead = true
		}
	}
	if !sawWrite || !sawRead {
		t.Fatalf("expected both a WriteArr and a ReadArr for a[1][2], got write=%v read=%v", sawWrite, sawRead)
	}
}

func TestJumpToNextCleanup(t *testing.T) {
	code := lower(t, "int main() { int a; a = 1; if (a) a = 2; return 0; }")
	for i, s := range code {
		if g, ok := s.(Goto); ok {
			if i+1 < len(code) {
				if ls, ok := code[i+1].(LabelStmt); ok && ls.Label == g.Label {
					t.Fatalf("a goto to the immediately following label must be removed, found at %d", i)
				}
			}
		}
	}
}

func TestCrossFuncCallOperand(t *testing.T) {
	code := lower(t, "int g(int x) { return x + 1; } int main() { int a; a = g(1) + g(2); return a; }")
	var calls int
	for _, s := range code {
		if _, ok := s.(FuncCall); ok {
			calls++
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls to g, got %d", calls)
	}
}
