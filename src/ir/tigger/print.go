package tigger

import (
	"fmt"
	"strings"
)

// Print renders code as Tigger's line-based textual format, grounded on
// original_source/tigger_printer.cc's column conventions: two leading
// spaces for non-label, non-header lines.
func Print(code []Stmt) string {
	var sb strings.Builder
	for _, stmt := range code {
		writeStmt(&sb, stmt)
	}
	return sb.String()
}

func writeStmt(sb *strings.Builder, stmt Stmt) {
	switch s := stmt.(type) {
	case GlobalVarDecl:
		fmt.Fprintf(sb, "%s = %d\n", s.Var, s.Initial)
	case GlobalArrDecl:
		fmt.Fprintf(sb, "%s = malloc %d\n", s.Var, s.Bytes)
	case FuncHeader:
		fmt.Fprintf(sb, "%s [%d] [%d]\n", FuncName(s.Name), s.ArgCnt, s.StackSize)
	case FuncEnd:
		sb.WriteString("end\n")
	case Ret:
		if s.HasValue {
			fmt.Fprintf(sb, "  return %s\n", s.Value)
		} else {
			sb.WriteString("  return\n")
		}
	case Goto:
		fmt.Fprintf(sb, "  goto %s\n", s.Label)
	case CondGoto:
		fmt.Fprintf(sb, "  if %s %s %s goto %s\n", s.Lhs, s.Op, s.Rhs, s.Label)
	case UnaryOp:
		fmt.Fprintf(sb, "  %s = %s%s\n", s.Dst, s.Op, s.Src)
	case BinaryOp:
		fmt.Fprintf(sb, "  %s = %s %s %s\n", s.Dst, s.Lhs, s.Op, s.Rhs)
	case Move:
		fmt.Fprintf(sb, "  %s = %s\n", s.Dst, s.Src)
	case ReadArr:
		fmt.Fprintf(sb, "  %s = %s[%s]\n", s.Dst, s.Arr, s.Idx)
	case WriteArr:
		fmt.Fprintf(sb, "  %s[%s] = %s\n", s.Arr, s.Idx, s.Src)
	case LabelStmt:
		fmt.Fprintf(sb, "%s:\n", s.Label)
	case FuncCall:
		fmt.Fprintf(sb, "  call %s\n", FuncName(s.Name))
	case Store:
		fmt.Fprintf(sb, "  store %s %d\n", s.Reg, int(s.Slot))
	case Load:
		if s.FromGlobal {
			fmt.Fprintf(sb, "  load %s %s\n", s.Global, s.Reg)
		} else {
			fmt.Fprintf(sb, "  load %d %s\n", int(s.Slot), s.Reg)
		}
	case LoadAddr:
		if s.FromGlobal {
			fmt.Fprintf(sb, "  loadaddr %s %s\n", s.Global, s.Reg)
		} else {
			fmt.Fprintf(sb, "  loadaddr %d %s\n", int(s.Slot), s.Reg)
		}
	default:
		panic(fmt.Sprintf("tigger: unhandled statement type %T", stmt))
	}
}
