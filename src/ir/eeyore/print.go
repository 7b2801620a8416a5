package eeyore

import (
	"fmt"
	"strings"
)

// Print renders code as Eeyore's line-based textual format, one statement
// per line, statement lines indented by two spaces and declarations,
// function headers/ends and labels starting at column 0 (matching
// original_source/eeyore_printer.cc's column conventions: "var T0",
// "f_main [0]", "  T0 = 1", "l3:").
func Print(code []Stmt) string {
	var sb strings.Builder
	for _, stmt := range code {
		writeStmt(&sb, stmt)
	}
	return sb.String()
}

func writeStmt(sb *strings.Builder, stmt Stmt) {
	switch s := stmt.(type) {
	case Decl:
		if ov, ok := s.Var.(OrigVar); ok && ov.IsArray() {
			fmt.Fprintf(sb, "var %d %s\n", ov.Size, ov)
			return
		}
		fmt.Fprintf(sb, "var %s\n", s.Var)
	case FuncDef:
		fmt.Fprintf(sb, "%s [%d]\n", FuncName(s.Name), s.ArgCnt)
	case EndFuncDef:
		fmt.Fprintf(sb, "end %s\n", FuncName(s.Name))
	case ParamStmt:
		fmt.Fprintf(sb, "  param %s\n", s.Value)
	case FuncCall:
		if s.Receiver != nil {
			fmt.Fprintf(sb, "  %s = call %s\n", s.Receiver, FuncName(s.Name))
		} else {
			fmt.Fprintf(sb, "  call %s\n", FuncName(s.Name))
		}
	case Ret:
		if s.Value != nil {
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
	default:
		panic(fmt.Sprintf("eeyore: unhandled statement type %T", stmt))
	}
}
