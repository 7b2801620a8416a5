package util

import (
	"fmt"
	"os"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Mode selects which stage of the pipeline's output is printed.
type Mode int

const (
	ModeRiscv Mode = iota // Default: emit RISC-V 32-bit assembly.
	ModeEeyore            // -e: emit Eeyore textual IR.
	ModeTigger            // -t: emit Tigger textual IR.
)

// Options holds parsed command line arguments.
type Options struct {
	Src     string // Path to source file; empty means read stdin.
	Out     string // Path to output file; empty means stdout.
	Mode    Mode   // Output mode.
	Verbose bool   // -vb: print pipeline statistics to stderr.
}

// ---------------------
// ----- Constants -----
// ---------------------

const appVersion = "sysyc 1.0"

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses command line arguments per the compiler's usage:
//
//	compiler [mode] [-o OUTFILE] INPUTFILE
//
// Mode flags are -e (Eeyore) and -t (Tigger); the last mode flag given wins
// and the default is RISC-V assembly.
func ParseArgs() (Options, error) {
	opt := Options{}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-vb":
			opt.Verbose = true
		case "-e":
			opt.Mode = ModeEeyore
		case "-t":
			opt.Mode = ModeTigger
		case "-o":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			opt.Out = args[i1+1]
			i1++
		default:
			if len(args[i1]) > 0 && args[i1][0] == '-' {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			opt.Src = args[i1]
		}
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "usage: compiler [mode] [-o OUTFILE] INPUTFILE")
	_, _ = fmt.Fprintln(w, "-e\tEmit Eeyore three-address IR.")
	_, _ = fmt.Fprintln(w, "-t\tEmit Tigger register-machine IR.")
	_, _ = fmt.Fprintln(w, "-o\tPath to the output file. Defaults to standard output.")
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits.")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print compiler statistics to stderr.")
	_ = w.Flush()
}
