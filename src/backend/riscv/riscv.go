// Package riscv lowers a Tigger module into RISC-V 32-bit assembly text,
// per spec.md §6.5: GNU-toolchain directive conventions, a fixed sp-frame
// per function with ra spilled at its last word, 12-bit immediate range
// checking with a t0 scratch fallback, and synthetic seqz/snez/neg for
// the operations RISC-V has no single instruction for.
//
// Grounded on the teacher's own src/backend/riscv/*.go (RISC-V-32
// downward-growing, 16-byte-aligned stack; register aliases sp/ra/fp/aN/
// tN/sN; a0/f0 return-value convention) and the teacher's print-via-
// strings.Builder style already used by package eeyore and package
// tigger's own Print functions, since the teacher's original Writer/
// registerFile machinery targeted a different, now-superseded IR and
// never reached a working state (its genPrint/genFunctionCall call
// Writer methods — Ins1/Ins2/Ins2imm/Label — that package never defines).
package riscv

import (
	"fmt"
	"strings"

	"github.com/xe442/sysyc/src/ir/tigger"
	"github.com/xe442/sysyc/src/util"
)

const wordSize = 4
const stackAlign = 16

// printer accumulates output text and tracks the current function's frame
// layout while walking a Tigger statement list.
type printer struct {
	sb        strings.Builder
	frameSize int // total bytes of the current function's frame, ra included.
}

// Print renders code as RISC-V 32-bit assembly text.
func Print(code []tigger.Stmt) string {
	p := &printer{}
	p.sb.WriteString(".section .sdata\n")
	for _, s := range code {
		switch v := s.(type) {
		case tigger.GlobalVarDecl:
			p.globalVar(v)
		case tigger.GlobalArrDecl:
			p.globalArr(v)
		}
	}
	p.sb.WriteString("\n.text\n")
	for _, s := range code {
		p.stmt(s)
	}
	return p.sb.String()
}

func (p *printer) line(format string, args ...interface{}) {
	p.sb.WriteString(fmt.Sprintf(format, args...))
	p.sb.WriteByte('\n')
}

func (p *printer) globalVar(v tigger.GlobalVarDecl) {
	name := v.Var.String()
	p.line(".global %s", name)
	p.line(".align 2")
	p.line(".type %s, @object", name)
	p.line(".size %s, %d", name, wordSize)
	p.line("%s:", name)
	p.line("\t.word %d", v.Initial)
}

func (p *printer) globalArr(v tigger.GlobalArrDecl) {
	name := v.Var.String()
	p.line(".comm %s, %d, %d", name, v.Bytes, wordSize)
}

// frameBytes converts the allocator's word count (callee-saved stores
// plus spill high-water mark) into a 16-byte-aligned frame size with one
// extra word reserved for ra.
func frameBytes(stackSizeWords int) int {
	n := (stackSizeWords + 1) * wordSize
	if r := n % stackAlign; r != 0 {
		n += stackAlign - r
	}
	return n
}

func (p *printer) stmt(s tigger.Stmt) {
	switch v := s.(type) {
	case tigger.GlobalVarDecl, tigger.GlobalArrDecl:
		// already emitted into .sdata.
	case tigger.FuncHeader:
		p.frameSize = frameBytes(v.StackSize)
		name := tigger.FuncName(v.Name)
		p.line(".global %s", name)
		p.line(".align 2")
		p.line("%s:", name)
		p.adjustSP(-p.frameSize)
		p.storeRaw("ra", p.frameSize-wordSize)
	case tigger.FuncEnd:
		p.sb.WriteByte('\n')
	case tigger.Ret:
		if v.HasValue && v.Value != (tigger.Reg{Kind: tigger.ArgReg, Id: 0}) {
			p.line("\tmv\ta0, %s", v.Value)
		}
		p.loadRaw("ra", p.frameSize-wordSize)
		p.adjustSP(p.frameSize)
		p.line("\tret")
	case tigger.Goto:
		p.line("\tj\t%s", label(v.Label))
	case tigger.CondGoto:
		p.condGoto(v)
	case tigger.UnaryOp:
		p.unary(v)
	case tigger.BinaryOp:
		p.binary(v)
	case tigger.Move:
		p.move(v.Dst, v.Src)
	case tigger.ReadArr:
		p.readArr(v)
	case tigger.WriteArr:
		p.writeArr(v)
	case tigger.LabelStmt:
		p.line("%s:", label(v.Label))
	case tigger.FuncCall:
		p.line("\tcall\t%s", tigger.FuncName(v.Name))
	case tigger.Store:
		p.storeSlot(v.Reg, v.Slot)
	case tigger.Load:
		if v.FromGlobal {
			p.line("\tla\tt0, %s", v.Global)
			p.line("\tlw\t%s, 0(t0)", v.Reg)
		} else {
			p.loadSlot(v.Reg, v.Slot)
		}
	case tigger.LoadAddr:
		if v.FromGlobal {
			p.line("\tla\t%s, %s", v.Reg, v.Global)
		} else {
			p.addConst(v.Reg, "sp", int(v.Slot)*wordSize)
		}
	default:
		util.Fail(fmt.Sprintf("riscv: unexpected tigger statement %T", s))
	}
}

func label(l tigger.Label) string { return fmt.Sprintf("L%d", l.Id) }

// inRange12 reports whether v fits a 12-bit signed I-type immediate.
func inRange12(v int) bool { return v >= -2048 && v <= 2047 }

// adjustSP emits sp += delta, spilling through t0 when delta's magnitude
// exceeds the 12-bit immediate range.
func (p *printer) adjustSP(delta int) {
	if inRange12(delta) {
		p.line("\taddi\tsp, sp, %d", delta)
		return
	}
	p.line("\tli\tt0, %d", delta)
	p.line("\tadd\tsp, sp, t0")
}

// addConst emits dst = base + k, range-checked.
func (p *printer) addConst(dst tigger.Reg, base string, k int) {
	if inRange12(k) {
		p.line("\taddi\t%s, %s, %d", dst, base, k)
		return
	}
	p.line("\tli\tt0, %d", k)
	p.line("\tadd\t%s, %s, t0", dst, base)
}

func (p *printer) storeRaw(reg string, off int) {
	if inRange12(off) {
		p.line("\tsw\t%s, %d(sp)", reg, off)
		return
	}
	p.line("\tli\tt0, %d", off)
	p.line("\tadd\tt0, sp, t0")
	p.line("\tsw\t%s, 0(t0)", reg)
}

func (p *printer) loadRaw(reg string, off int) {
	if inRange12(off) {
		p.line("\tlw\t%s, %d(sp)", reg, off)
		return
	}
	p.line("\tli\tt0, %d", off)
	p.line("\tadd\tt0, sp, t0")
	p.line("\tlw\t%s, 0(t0)", reg)
}

func (p *printer) storeSlot(reg tigger.Reg, slot tigger.Slot) {
	off := int(slot) * wordSize
	if inRange12(off) {
		p.line("\tsw\t%s, %d(sp)", reg, off)
		return
	}
	p.line("\tli\tt0, %d", off)
	p.line("\tadd\tt0, sp, t0")
	p.line("\tsw\t%s, 0(t0)", reg)
}

func (p *printer) loadSlot(reg tigger.Reg, slot tigger.Slot) {
	off := int(slot) * wordSize
	if inRange12(off) {
		p.line("\tlw\t%s, %d(sp)", reg, off)
		return
	}
	p.line("\tli\tt0, %d", off)
	p.line("\tadd\tt0, sp, t0")
	p.line("\tlw\t%s, 0(t0)", reg)
}

func (p *printer) move(dst tigger.Reg, src tigger.RegOrImm) {
	if imm, ok := src.(tigger.Imm); ok {
		p.line("\tli\t%s, %d", dst, int(imm))
		return
	}
	p.line("\tmv\t%s, %s", dst, src)
}

func (p *printer) unary(v tigger.UnaryOp) {
	switch v.Op {
	case tigger.NEG:
		p.line("\tneg\t%s, %s", v.Dst, v.Src)
	case tigger.NOT:
		p.line("\tseqz\t%s, %s", v.Dst, v.Src)
	}
}

func (p *printer) binary(v tigger.BinaryOp) {
	rhsReg, rhsIsReg := v.Rhs.(tigger.Reg)
	switch v.Op {
	case tigger.ADD, tigger.SUB, tigger.MUL, tigger.DIV, tigger.MOD:
		mnemonic := map[tigger.BinOp]string{tigger.ADD: "add", tigger.SUB: "sub", tigger.MUL: "mul", tigger.DIV: "div", tigger.MOD: "rem"}[v.Op]
		if rhsIsReg {
			p.line("\t%s\t%s, %s, %s", mnemonic, v.Dst, v.Lhs, rhsReg)
		} else if imm, ok := v.Rhs.(tigger.Imm); ok && inRange12(int(imm)) && (v.Op == tigger.ADD || v.Op == tigger.SUB) {
			if v.Op == tigger.SUB {
				p.line("\taddi\t%s, %s, %d", v.Dst, v.Lhs, -int(imm))
			} else {
				p.line("\taddi\t%s, %s, %d", v.Dst, v.Lhs, int(imm))
			}
		} else {
			p.line("\tli\tt0, %d", int(v.Rhs.(tigger.Imm)))
			p.line("\t%s\t%s, %s, t0", mnemonic, v.Dst, v.Lhs)
		}
	case tigger.LT, tigger.GT, tigger.LE, tigger.GE, tigger.EQ, tigger.NE:
		rhs := p.regOrScratch(v.Rhs, "t0")
		switch v.Op {
		case tigger.LT:
			p.line("\tslt\t%s, %s, %s", v.Dst, v.Lhs, rhs)
		case tigger.GT:
			p.line("\tslt\t%s, %s, %s", v.Dst, rhs, v.Lhs)
		case tigger.LE:
			p.line("\tslt\t%s, %s, %s", v.Dst, rhs, v.Lhs)
			p.line("\txori\t%s, %s, 1", v.Dst, v.Dst)
		case tigger.GE:
			p.line("\tslt\t%s, %s, %s", v.Dst, v.Lhs, rhs)
			p.line("\txori\t%s, %s, 1", v.Dst, v.Dst)
		case tigger.EQ:
			p.line("\tsub\t%s, %s, %s", v.Dst, v.Lhs, rhs)
			p.line("\tseqz\t%s, %s", v.Dst, v.Dst)
		case tigger.NE:
			p.line("\tsub\t%s, %s, %s", v.Dst, v.Lhs, rhs)
			p.line("\tsnez\t%s, %s", v.Dst, v.Dst)
		}
	}
}

// regOrScratch materializes a RegOrImm into a register, using scratch as
// an immediate-load target if necessary.
func (p *printer) regOrScratch(v tigger.RegOrImm, scratch string) string {
	if imm, ok := v.(tigger.Imm); ok {
		p.line("\tli\t%s, %d", scratch, int(imm))
		return scratch
	}
	return v.(tigger.Reg).String()
}

func (p *printer) condGoto(v tigger.CondGoto) {
	l := label(v.Label)
	switch v.Op {
	case tigger.LT:
		p.line("\tblt\t%s, %s, %s", v.Lhs, v.Rhs, l)
	case tigger.GT:
		p.line("\tblt\t%s, %s, %s", v.Rhs, v.Lhs, l)
	case tigger.LE:
		p.line("\tbge\t%s, %s, %s", v.Rhs, v.Lhs, l)
	case tigger.GE:
		p.line("\tbge\t%s, %s, %s", v.Lhs, v.Rhs, l)
	case tigger.EQ:
		p.line("\tbeq\t%s, %s, %s", v.Lhs, v.Rhs, l)
	case tigger.NE:
		p.line("\tbne\t%s, %s, %s", v.Lhs, v.Rhs, l)
	default:
		util.Fail(fmt.Sprintf("riscv: CondGoto with non-relational op %v", v.Op))
	}
}

func (p *printer) readArr(v tigger.ReadArr) {
	if imm, ok := v.Idx.(tigger.Imm); ok && inRange12(int(imm)) {
		p.line("\tlw\t%s, %d(%s)", v.Dst, int(imm), v.Arr)
		return
	}
	idx := p.regOrScratch(v.Idx, "t0")
	p.line("\tadd\tt0, %s, %s", v.Arr, idx)
	p.line("\tlw\t%s, 0(t0)", v.Dst)
}

func (p *printer) writeArr(v tigger.WriteArr) {
	if imm, ok := v.Idx.(tigger.Imm); ok && inRange12(int(imm)) {
		p.line("\tsw\t%s, %d(%s)", v.Src, int(imm), v.Arr)
		return
	}
	idx := p.regOrScratch(v.Idx, "t0")
	p.line("\tadd\tt0, %s, %s", v.Arr, idx)
	p.line("\tsw\t%s, 0(t0)", v.Src)
}
