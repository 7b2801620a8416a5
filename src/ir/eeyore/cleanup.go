package eeyore

import "github.com/xe442/sysyc/src/util"

// maxJumpChase bounds the double-jump chase (spec.md §4.3 step 2): a
// malformed or pathological input must not make the cleaner loop forever.
const maxJumpChase = 1 << 16

// jumpTarget returns the label a jump targets, and whether s is a jump.
func jumpTarget(s Stmt) (Label, bool) {
	switch v := s.(type) {
	case Goto:
		return v.Label, true
	case CondGoto:
		return v.Label, true
	default:
		return Label{}, false
	}
}

func withTarget(s Stmt, l Label) Stmt {
	switch v := s.(type) {
	case Goto:
		v.Label = l
		return v
	case CondGoto:
		v.Label = l
		return v
	default:
		util.Fail("cleanup: withTarget called on a non-jump statement")
		return nil
	}
}

// CleanJumpsAndLabels runs the six-step peephole spec.md §4.3 describes.
// Grounded on original_source's jump-cleanup pass, transcribed from the
// spec's description (not present verbatim in the retrieval pack).
func CleanJumpsAndLabels(code []Stmt) []Stmt {
	labelPos := make(map[int]int) // label id -> statement index
	for i, s := range code {
		if l, ok := s.(LabelStmt); ok {
			labelPos[l.Label.Id] = i
		}
	}

	// Step 2: chase double-jump chains (label -> skip labels -> Goto).
	for i, s := range code {
		target, ok := jumpTarget(s)
		if !ok {
			continue
		}
		final := target
		for steps := 0; ; steps++ {
			util.Assert(steps < maxJumpChase, "cleanup: double-jump chase exceeded bound (cycle?)")
			pos, ok := labelPos[final.Id]
			j := pos + 1
			for j < len(code) {
				if l, ok := code[j].(LabelStmt); ok {
					final = l.Label
					j++
					continue
				}
				break
			}
			if !ok || j >= len(code) {
				break
			}
			g, ok := code[j].(Goto)
			if !ok {
				break
			}
			if g.Label.Id == final.Id {
				break // self-loop: stop chasing, not an indirection.
			}
			final = g.Label
		}
		if final.Id != target.Id {
			code[i] = withTarget(s, final)
		}
	}

	// Steps 3-4: mark useless jumps (jump-after-jump, jump-to-next-label).
	useless := make([]bool, len(code))
	lastWasGoto := false
	for i, s := range code {
		switch v := s.(type) {
		case LabelStmt:
			lastWasGoto = false
		case Goto:
			if lastWasGoto {
				useless[i] = true
			} else if jumpToNextLabel(code, i, v.Label) {
				useless[i] = true
			}
			lastWasGoto = true
		case CondGoto:
			if jumpToNextLabel(code, i, v.Label) {
				useless[i] = true
			}
			lastWasGoto = false
		default:
			lastWasGoto = false
		}
	}

	// Step 5: drop useless jumps; collect valid label ids from survivors.
	validLabel := make(map[int]bool)
	var dropped []Stmt
	for i, s := range code {
		if useless[i] {
			continue
		}
		dropped = append(dropped, s)
		if target, ok := jumpTarget(s); ok {
			validLabel[target.Id] = true
		}
	}

	// Step 6: coalesce and densely renumber labels.
	remap := make(map[int]int)
	nextID := 0
	var out []Stmt
	prevWasLabel := false
	var coalesceInto int
	for _, s := range dropped {
		if l, ok := s.(LabelStmt); ok {
			if !validLabel[l.Label.Id] {
				// Dead label: dropped from output with no remap entry
				// (nothing refers to it). prevWasLabel is left as it is,
				// so the labels on either side of it still coalesce.
				continue
			}
			if prevWasLabel {
				remap[l.Label.Id] = coalesceInto
				continue
			}
			coalesceInto = nextID
			remap[l.Label.Id] = coalesceInto
			nextID++
			out = append(out, LabelStmt{Label: Label{Id: coalesceInto}})
			prevWasLabel = true
			continue
		}
		prevWasLabel = false
		out = append(out, s)
	}

	for i, s := range out {
		target, ok := jumpTarget(s)
		if !ok {
			continue
		}
		newID, ok := remap[target.Id]
		util.Assert(ok, "cleanup: jump target label was dropped without a remap entry")
		out[i] = withTarget(s, Label{Id: newID})
	}
	return out
}

// jumpToNextLabel reports whether the only statements between code[i] (a
// jump) and its target label are labels, per spec.md §4.3 step 4.
func jumpToNextLabel(code []Stmt, i int, target Label) bool {
	for j := i + 1; j < len(code); j++ {
		if l, ok := code[j].(LabelStmt); ok {
			if l.Label.Id == target.Id {
				return true
			}
			continue
		}
		return false
	}
	return false
}
