// Package regalloc implements the linear-scan register allocator of
// spec.md §4.7: a single forward pass over an Eeyore module, synchronized
// to the current statement id, assigning each live interval a register or
// a spill slot and recording every change of position so the emitter can
// insert the corresponding Move/Store.
//
// Grounded on original_source's linear-scan allocator (transcribed from
// spec.md's description; not present verbatim in the retrieval pack) and
// styled after the teacher's own forward-pass allocator in
// src/backend/lir/regalloc.go (per-function state, active list, free
// register lists, one pass over instructions).
package regalloc

import (
	"github.com/google/btree"

	"github.com/xe442/sysyc/src/backend/cfg"
	"github.com/xe442/sysyc/src/ir/eeyore"
	"github.com/xe442/sysyc/src/ir/tigger"
)

// Reserved caller-saved ids: 0 is the RISC-V printer's own scratch, 1 and
// 2 are the TiggerEmitter's tmp_reg/tmp_reg2 (spec.md §4.8). Only the
// remainder is available to the allocator.
var availableCallerIDs = []int{3, 4, 5, 6}

func availableCalleeIDs() []int {
	ids := make([]int, tigger.NumCalleeSaved)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// Position is where an operand's value currently lives.
type Position struct {
	InReg bool
	Reg   tigger.Reg
	Slot  int // valid when !InReg; word index into the function's spill area.
}

func regPos(r tigger.Reg) Position { return Position{InReg: true, Reg: r} }
func slotPos(slot int) Position    { return Position{InReg: false, Slot: slot} }

// AllocationChange records an operand moving from one position to
// another at a given statement id; the emitter inserts a Move/Store to
// realize it.
type AllocationChange struct {
	Sid  int
	Op   eeyore.Operand
	From Position
	To   Position
}

// FuncStackInfo is a function's allocation summary: the callee-saved
// registers actually used (prologue/epilogue store count) and the spill
// high-water mark, together spec.md §4.7 I5's FuncHeader.stack_size.
type FuncStackInfo struct {
	CalleeUsed []int // ids of callee-saved registers used, in first-use order.
	SpillSlots int
}

type segment struct {
	from int
	pos  Position
}

type opTrack struct{ segs []segment }

func (t *opTrack) record(sid int, pos Position) {
	t.segs = append(t.segs, segment{from: sid, pos: pos})
}

func (t *opTrack) at(sid int) (Position, bool) {
	if len(t.segs) == 0 {
		return Position{}, false
	}
	best := t.segs[0]
	for _, s := range t.segs {
		if s.from <= sid && s.from >= best.from {
			best = s
		}
	}
	if best.from > sid {
		return Position{}, false
	}
	return best.pos, true
}

// Allocator holds the result of a completed allocation pass: enough to
// answer reg_of/stack_pos_of/actual_pos_of and to hand the emitter the
// AllocationChanges due at each statement.
type Allocator struct {
	tracks      map[eeyore.Operand]*opTrack
	changesAt   map[int][]AllocationChange
	stackInfo   map[int]*FuncStackInfo // keyed by FuncDef statement index.
	isGlobal    map[eeyore.Operand]bool
}

// Run executes linear-scan allocation over g using the intervals computed
// by cfg.ComputeIntervals.
func Run(g *cfg.Graph, funcs []cfg.FuncIntervals) *Allocator {
	a := &Allocator{
		tracks:    make(map[eeyore.Operand]*opTrack),
		changesAt: make(map[int][]AllocationChange),
		stackInfo: make(map[int]*FuncStackInfo),
		isGlobal:  make(map[eeyore.Operand]bool),
	}
	if len(g.Blocks) > 0 {
		b0 := g.Blocks[0]
		for i := b0.Begin; i <= b0.Last && i >= 0; i++ {
			if d, ok := g.Code[i].(eeyore.Decl); ok {
				a.isGlobal[d.Var] = true
			}
		}
	}
	for _, fi := range funcs {
		a.runFunction(g, fi)
	}
	return a
}

func (a *Allocator) track(op eeyore.Operand) *opTrack {
	t, ok := a.tracks[op]
	if !ok {
		t = &opTrack{}
		a.tracks[op] = t
	}
	return t
}

// assign records an operand's first-ever position: there is nothing to
// move it from, so no AllocationChange is produced for the emitter.
func (a *Allocator) assign(sid int, op eeyore.Operand, to Position) {
	a.track(op).record(sid, to)
}

// emit records an operand moving from one already-held position to
// another, producing an AllocationChange the emitter must act on.
func (a *Allocator) emit(sid int, op eeyore.Operand, from, to Position) {
	a.changesAt[sid] = append(a.changesAt[sid], AllocationChange{Sid: sid, Op: op, From: from, To: to})
	a.track(op).record(sid, to)
}

type activeEntry struct {
	op   eeyore.Operand
	back int
	pos  Position
	seq  int // insertion order, breaks ties when two entries share back.
}

// activeLess orders activeEntries by ascending back (the statement id the
// interval dies at), tie-broken by insertion order so the btree's strict
// ordering never collapses two distinct live intervals that happen to end
// at the same statement. Grounded on the ordered delta-index btree.BTreeG
// used for the same "keep sorted, scan the smallest" shape in
// launix-de-memcp's storage/index.go.
func activeLess(a, b *activeEntry) bool {
	if a.back != b.back {
		return a.back < b.back
	}
	return a.seq < b.seq
}

type funcState struct {
	freeCallee, freeCaller []int
	active                 *btree.BTreeG[*activeEntry]
	nextSeq                int
	spillNext              int
	calleeUsedOrder        []int
	calleeUsedSeen         map[int]bool
}

func newFuncState() *funcState {
	return &funcState{
		freeCallee:     availableCalleeIDs(),
		freeCaller:     append([]int(nil), availableCallerIDs...),
		active:         btree.NewG(8, activeLess),
		calleeUsedSeen: make(map[int]bool),
	}
}

func (fs *funcState) insertActive(e *activeEntry) {
	e.seq = fs.nextSeq
	fs.nextSeq++
	fs.active.ReplaceOrInsert(e)
}

func (fs *funcState) removeActive(e *activeEntry) { fs.active.Delete(e) }

// activeMin returns the active interval dying soonest, if any.
func (fs *funcState) activeMin() (*activeEntry, bool) { return fs.active.Min() }

// activeMax returns the active interval dying latest, if any.
func (fs *funcState) activeMax() (*activeEntry, bool) { return fs.active.Max() }

func (fs *funcState) freeReg(pos Position) {
	if !pos.InReg {
		return
	}
	switch pos.Reg.Kind {
	case tigger.CalleeSavedReg:
		fs.freeCallee = append(fs.freeCallee, pos.Reg.Id)
	case tigger.CallerSavedReg:
		fs.freeCaller = append(fs.freeCaller, pos.Reg.Id)
	}
}

func (fs *funcState) popCallee() (tigger.Reg, bool) {
	if len(fs.freeCallee) == 0 {
		return tigger.Reg{}, false
	}
	id := fs.freeCallee[0]
	fs.freeCallee = fs.freeCallee[1:]
	if !fs.calleeUsedSeen[id] {
		fs.calleeUsedSeen[id] = true
		fs.calleeUsedOrder = append(fs.calleeUsedOrder, id)
	}
	return tigger.Reg{Kind: tigger.CalleeSavedReg, Id: id}, true
}

func (fs *funcState) popCaller() (tigger.Reg, bool) {
	if len(fs.freeCaller) == 0 {
		return tigger.Reg{}, false
	}
	id := fs.freeCaller[0]
	fs.freeCaller = fs.freeCaller[1:]
	return tigger.Reg{Kind: tigger.CallerSavedReg, Id: id}, true
}

func (fs *funcState) allocSlot(words int) int {
	base := fs.spillNext
	fs.spillNext += words
	return base
}

func (a *Allocator) runFunction(g *cfg.Graph, fi cfg.FuncIntervals) {
	fs := newFuncState()
	next := 0

	endAt := len(g.Code) - 1
	for sid := fi.FuncDefAt + 1; sid < len(g.Code); sid++ {
		if _, ok := g.Code[sid].(eeyore.EndFuncDef); ok {
			endAt = sid
			break
		}
	}

	for sid := fi.FuncDefAt; sid <= endAt; sid++ {
		for {
			min, ok := fs.activeMin()
			if !ok || min.back >= sid {
				break
			}
			fs.freeReg(min.pos)
			fs.removeActive(min)
		}
		for next < len(fi.Intervals) && fi.Intervals[next].Begin <= sid {
			iv := fi.Intervals[next]
			next++
			a.allocateInterval(fs, g, iv, sid)
		}
	}
	a.stackInfo[fi.FuncDefAt] = &FuncStackInfo{CalleeUsed: fs.calleeUsedOrder, SpillSlots: fs.spillNext}
}

func (a *Allocator) allocateInterval(fs *funcState, g *cfg.Graph, iv *cfg.Interval, sid int) {
	if iv.Begin > iv.Back {
		return
	}
	if a.isGlobal[iv.Op] {
		return
	}

	if p, ok := iv.Op.(eeyore.Param); ok {
		argReg := tigger.Reg{Kind: tigger.ArgReg, Id: p.Id}
		if !iv.CrossCall {
			a.assign(sid, iv.Op, regPos(argReg))
			return
		}
		pos, ok := a.chooseRegister(fs, iv, sid)
		if !ok {
			// spillOrReclaim already inserts into active itself when it
			// reclaims a register; inserting again here would leave the
			// operand double-booked under two seqs and double-free its
			// register on expiry. Only the chooseRegister-succeeded path
			// below needs to insert.
			pos = a.spillOrReclaim(fs, iv, sid)
			a.emit(sid, iv.Op, regPos(argReg), pos)
			return
		}
		a.emit(sid, iv.Op, regPos(argReg), pos)
		fs.insertActive(&activeEntry{op: iv.Op, back: iv.Back, pos: pos})
		return
	}

	if ov, ok := iv.Op.(eeyore.OrigVar); ok && ov.IsArray() {
		slot := fs.allocSlot(ov.Size / eeyore.WordSize)
		a.assign(sid, iv.Op, slotPos(slot))
		return
	}

	pos, ok := a.chooseRegister(fs, iv, sid)
	if !ok {
		pos = a.spillOrReclaim(fs, iv, sid)
		a.assign(sid, iv.Op, pos)
		return
	}
	a.assign(sid, iv.Op, pos)
	fs.insertActive(&activeEntry{op: iv.Op, back: iv.Back, pos: pos})
}

// chooseRegister attempts to pop a free register per spec.md §4.7's
// preference rule, without touching active/spill state.
func (a *Allocator) chooseRegister(fs *funcState, iv *cfg.Interval, sid int) (Position, bool) {
	if iv.CrossCall {
		if r, ok := fs.popCallee(); ok {
			return regPos(r), true
		}
		return Position{}, false
	}
	if r, ok := fs.popCaller(); ok {
		return regPos(r), true
	}
	if r, ok := fs.popCallee(); ok {
		return regPos(r), true
	}
	return Position{}, false
}

// spillOrReclaim handles the case where no free register was available:
// compare the candidate against the active interval dying latest, and
// either spill the candidate or reclaim that interval's register for it.
func (a *Allocator) spillOrReclaim(fs *funcState, iv *cfg.Interval, sid int) Position {
	last, ok := fs.activeMax()
	if !ok {
		return slotPos(fs.allocSlot(1))
	}
	if iv.Back > last.back {
		return slotPos(fs.allocSlot(1))
	}
	reclaimed := last.pos
	slot := slotPos(fs.allocSlot(1))
	a.emit(sid, last.op, reclaimed, slot)
	fs.removeActive(last)
	fs.insertActive(&activeEntry{op: iv.Op, back: iv.Back, pos: reclaimed})
	return reclaimed
}

// ChangesAt returns the AllocationChanges due immediately before emitting
// statement sid, in the order they were recorded.
func (a *Allocator) ChangesAt(sid int) []AllocationChange { return a.changesAt[sid] }

// StackInfo returns the callee-saved/spill summary for the function whose
// FuncDef is at statement index funcDefAt.
func (a *Allocator) StackInfo(funcDefAt int) FuncStackInfo {
	if s, ok := a.stackInfo[funcDefAt]; ok {
		return *s
	}
	return FuncStackInfo{}
}

// RegOf reports op's register at sid, if it currently holds one.
func (a *Allocator) RegOf(op eeyore.Operand, sid int) (tigger.Reg, bool) {
	t, ok := a.tracks[op]
	if !ok {
		return tigger.Reg{}, false
	}
	pos, ok := t.at(sid)
	if !ok || !pos.InReg {
		return tigger.Reg{}, false
	}
	return pos.Reg, true
}

// StackPosOf reports op's stack slot at sid, if it currently has one.
func (a *Allocator) StackPosOf(op eeyore.Operand, sid int) (int, bool) {
	t, ok := a.tracks[op]
	if !ok {
		return 0, false
	}
	pos, ok := t.at(sid)
	if !ok || pos.InReg {
		return 0, false
	}
	return pos.Slot, true
}

// ActualPosOf reports op's current position at sid, register or stack.
func (a *Allocator) ActualPosOf(op eeyore.Operand, sid int) (Position, bool) {
	t, ok := a.tracks[op]
	if !ok {
		return Position{}, false
	}
	return t.at(sid)
}
