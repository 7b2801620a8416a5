// This lexer is based on, and copied from, Rob Pike's excellent talk on Go scanners.
// Link to the talk on YouTube: https://www.youtube.com/watch?v=HxaD_trXwRE
// Link to presentation slides: https://talks.golang.org/2011/lex.slide#1
//
// The lexer uses state functions stateFunc to define the lexer state. States
// allow the lexer to treat the same runes differently depending on context.
// Unlike hhramberg-go-vslc's goyacc-fed lexer (which streams items over a
// channel to a concurrently running generated parser), this lexer runs to
// completion up front and hands the recursive-descent Parser a plain token
// slice: SPEC_FULL.md's ambient stack keeps the whole frontend pass
// single-threaded.
package frontend

import (
	"fmt"
	"unicode/utf8"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// stateFunc defines the state of the lexer.
type stateFunc func(*lexer) stateFunc

// lexer is a lexical scanner that traverses a source stream rune by rune
// and accumulates a slice of tokens.
type lexer struct {
	input       string
	start       int
	pos         int
	width       int
	line        int
	startOnLine int
	tokens      []token
	err         error
}

// ---------------------
// ----- Constants -----
// ---------------------

const eof = 0

// ---------------------------
// ----- Lexer functions -----
// ---------------------------

// lex scans src in full and returns its tokens, or the first lexical error
// encountered.
func lex(src string) ([]token, error) {
	l := &lexer{input: src, line: 1, startOnLine: 1}
	for state := stateFunc(lexGlobal); state != nil; {
		state = state(l)
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.tokens, nil
}

// emit appends a token of type typ spanning the pending lexeme.
func (l *lexer) emit(typ tokenType) {
	l.tokens = append(l.tokens, token{
		typ:  typ,
		val:  l.input[l.start:l.pos],
		line: l.line,
		col:  l.startOnLine,
	})
	l.startOnLine += len(l.input[l.start:l.pos])
	l.start = l.pos
}

// next returns the next rune in the input. The use of runes makes the lexer
// UTF-8 compatible.
func (l *lexer) next() (r rune) {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, l.width = utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += l.width
	return r
}

// ignore skips over the pending input before this point.
func (l *lexer) ignore() {
	l.startOnLine += len(l.input[l.start:l.pos])
	l.start = l.pos
}

// backup steps back one rune. Should only be called once per call of next.
func (l *lexer) backup() {
	if l.pos > l.start {
		l.pos -= l.width
	}
}

// peek returns, but does not consume, the next rune in the input.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// errorf records a lexical error and terminates the scan.
func (l *lexer) errorf(format string, args ...interface{}) stateFunc {
	l.err = fmt.Errorf(format, args...)
	return nil
}
