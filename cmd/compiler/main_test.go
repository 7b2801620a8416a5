package main

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/xe442/sysyc/src/util"
)

// compile drives run() through a real temp-file source and output, the
// same way the CLI wires util.ListenWrite/util.Close around it.
func compile(t *testing.T, src string, mode util.Mode) string {
	t.Helper()
	srcFile, err := os.CreateTemp("", "in-*.c")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(srcFile.Name())
	if _, err := srcFile.WriteString(src); err != nil {
		t.Fatal(err)
	}
	srcFile.Close()

	outFile, err := os.CreateTemp("", "out-*.s")
	if err != nil {
		t.Fatal(err)
	}
	outPath := outFile.Name()
	outFile.Close()
	defer os.Remove(outPath)

	f, err := os.OpenFile(outPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}

	wg := sync.WaitGroup{}
	util.ListenWrite(f, &wg)

	opt := util.Options{Src: srcFile.Name(), Out: outPath, Mode: mode}
	if err := run(opt); err != nil {
		t.Fatalf("run: %v", err)
	}
	wg.Wait()
	util.Close()
	f.Close()

	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestEndToEndRiscv(t *testing.T) {
	out := compile(t, "int main() { int a; a = 1 + 2; return a; }", util.ModeRiscv)
	if !strings.Contains(out, "f_main:") {
		t.Fatalf("expected f_main label in riscv output, got:\n%s", out)
	}
	if !strings.Contains(out, "ret") {
		t.Fatalf("expected a ret instruction, got:\n%s", out)
	}
}

func TestEndToEndRiscvArrayAndCall(t *testing.T) {
	src := `
int g(int x) { return x * 2; }
int main() {
	int a[4];
	int i;
	i = 0;
	while (i < 4) {
		a[i] = g(i);
		i = i + 1;
	}
	return a[3];
}`
	out := compile(t, src, util.ModeRiscv)
	if !strings.Contains(out, "f_g:") || !strings.Contains(out, "f_main:") {
		t.Fatalf("expected both f_g and f_main labels, got:\n%s", out)
	}
	if !strings.Contains(out, "call\tf_g") {
		t.Fatalf("expected a call to f_g, got:\n%s", out)
	}
}

func TestEndToEndEeyoreMode(t *testing.T) {
	out := compile(t, "int main() { return 0; }", util.ModeEeyore)
	if !strings.Contains(out, "f_main") {
		t.Fatalf("expected f_main in eeyore output, got:\n%s", out)
	}
	if strings.Contains(out, "addi") {
		t.Fatalf("eeyore mode must not emit RISC-V mnemonics, got:\n%s", out)
	}
}

func TestEndToEndTiggerMode(t *testing.T) {
	out := compile(t, "int main() { int a[4]; a[0] = 1; return a[0]; }", util.ModeTigger)
	if !strings.Contains(out, "f_main") {
		t.Fatalf("expected f_main in tigger output, got:\n%s", out)
	}
}

func TestSemanticErrorExitsNonzero(t *testing.T) {
	srcFile, err := os.CreateTemp("", "in-*.c")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(srcFile.Name())
	if _, err := srcFile.WriteString("int main() { return undeclared_name; }"); err != nil {
		t.Fatal(err)
	}
	srcFile.Close()

	wg := sync.WaitGroup{}
	util.ListenWrite(nil, &wg)
	opt := util.Options{Src: srcFile.Name(), Mode: util.ModeRiscv}
	err = run(opt)
	wg.Wait()
	util.Close()
	if err == nil {
		t.Fatal("expected an error compiling a program referencing an undeclared identifier")
	}
}
