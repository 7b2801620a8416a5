// Command compiler lowers a SysY-like source file to Eeyore, Tigger, or
// RISC-V 32-bit assembly, per the requested mode. It follows the teacher's
// own main.go structure: parse args, start the output listener goroutine,
// run the pipeline, flush, close.
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	units "github.com/docker/go-units"
	"github.com/google/uuid"

	"github.com/xe442/sysyc/src/backend/cfg"
	"github.com/xe442/sysyc/src/backend/regalloc"
	"github.com/xe442/sysyc/src/backend/riscv"
	"github.com/xe442/sysyc/src/backend/tiggergen"
	"github.com/xe442/sysyc/src/frontend"
	"github.com/xe442/sysyc/src/ir/eeyore"
	"github.com/xe442/sysyc/src/ir/tigger"
	"github.com/xe442/sysyc/src/util"
)

// verboseLog prints -vb stage timings and statistics to stderr, each line
// tagged with a run id so that multiple invocations piped into one log can
// be told apart.
type verboseLog struct {
	runID string
	since time.Time
}

func newVerboseLog() *verboseLog {
	return &verboseLog{runID: uuid.NewString(), since: time.Now()}
}

func (v *verboseLog) mark(stage string) {
	fmt.Fprintf(os.Stderr, "[%s] %-16s %s\n", v.runID, stage, time.Since(v.since))
	v.since = time.Now()
}

func (v *verboseLog) stats(code []tigger.Stmt) {
	insns, maxFrame := 0, 0
	for _, s := range code {
		if fh, ok := s.(tigger.FuncHeader); ok {
			if words := fh.StackSize; words > maxFrame {
				maxFrame = words
			}
			continue
		}
		insns++
	}
	fmt.Fprintf(os.Stderr, "[%s] %d tigger instructions emitted, largest frame %s\n",
		v.runID, insns, units.BytesSize(float64(maxFrame*eeyore.WordSize)))
}

// run executes the pipeline per opt and writes the selected stage's
// rendering through a fresh util.Writer.
func run(opt util.Options) error {
	var vb *verboseLog
	if opt.Verbose {
		vb = newVerboseLog()
	}

	src, err := util.ReadSource(opt.Src)
	if err != nil {
		return fmt.Errorf("could not read source code: %w", err)
	}

	prog, err := frontend.Parse(src)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	if vb != nil {
		vb.mark("parse")
	}

	diag := util.NewDiagnostics(8)
	ok := frontend.NewChecker(diag).Check(prog)
	diag.Stop()
	if !ok {
		for _, e := range diag.All() {
			fmt.Fprintln(os.Stderr, e)
		}
		return fmt.Errorf("semantic errors found")
	}
	if vb != nil {
		vb.mark("check")
	}

	code := eeyore.Generate(prog)
	code = eeyore.Rearrange(code)
	code = eeyore.CleanJumpsAndLabels(code)
	if vb != nil {
		vb.mark("eeyore lowering")
	}

	w := util.NewWriter()
	defer w.Close()

	if opt.Mode == util.ModeEeyore {
		w.WriteString(eeyore.Print(code))
		return nil
	}

	g := cfg.Build(code, cfg.CollectOperands(code))
	g.ComputeLiveSets()
	intervals := g.ComputeIntervals()
	alloc := regalloc.Run(g, intervals)
	if vb != nil {
		vb.mark("cfg + register allocation")
	}

	tcode := tiggergen.Generate(code, alloc)
	if vb != nil {
		vb.mark("tigger emission")
		vb.stats(tcode)
	}

	if opt.Mode == util.ModeTigger {
		w.WriteString(tigger.Print(tcode))
		return nil
	}

	asm := riscv.Print(tcode)
	if vb != nil {
		vb.mark("riscv printing")
	}
	w.WriteString(asm)
	return nil
}

func main() {
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "argument error: %s\n", err)
		os.Exit(1)
	}

	wg := sync.WaitGroup{}
	if len(opt.Out) > 0 {
		f, ferr := os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if ferr != nil {
			fmt.Fprintln(os.Stderr, ferr)
			os.Exit(1)
		}
		defer f.Close()
		util.ListenWrite(f, &wg)
	} else {
		util.ListenWrite(nil, &wg)
	}
	defer util.Close()

	var runErr error
	func() {
		defer util.Recover(&runErr)
		runErr = run(opt)
	}()

	wg.Wait()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", runErr)
		os.Exit(1)
	}
}
