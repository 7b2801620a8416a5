package frontend

import "fmt"

// tokenType enumerates every lexeme the lexer can emit.
type tokenType int

const (
	tokEOF tokenType = iota
	tokError

	tokIdent
	tokInt

	// Keywords.
	tokKwInt
	tokKwVoid
	tokKwIf
	tokKwElse
	tokKwWhile
	tokKwBreak
	tokKwContinue
	tokKwReturn

	// Punctuation and operators.
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokComma
	tokSemi
	tokAssign
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokNot
	tokAnd
	tokOr
	tokLt
	tokGt
	tokLe
	tokGe
	tokEq
	tokNe
)

var tokenNames = map[tokenType]string{
	tokEOF: "EOF", tokError: "error", tokIdent: "identifier", tokInt: "integer",
	tokKwInt: "int", tokKwVoid: "void", tokKwIf: "if", tokKwElse: "else",
	tokKwWhile: "while", tokKwBreak: "break", tokKwContinue: "continue", tokKwReturn: "return",
	tokLParen: "(", tokRParen: ")", tokLBrace: "{", tokRBrace: "}",
	tokLBracket: "[", tokRBracket: "]", tokComma: ",", tokSemi: ";",
	tokAssign: "=", tokPlus: "+", tokMinus: "-", tokStar: "*", tokSlash: "/", tokPercent: "%",
	tokNot: "!", tokAnd: "&&", tokOr: "||",
	tokLt: "<", tokGt: ">", tokLe: "<=", tokGe: ">=", tokEq: "==", tokNe: "!=",
}

func (t tokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("tokenType(%d)", int(t))
}

var keywords = map[string]tokenType{
	"int": tokKwInt, "void": tokKwVoid, "if": tokKwIf, "else": tokKwElse,
	"while": tokKwWhile, "break": tokKwBreak, "continue": tokKwContinue, "return": tokKwReturn,
}

// token is a lexeme and its position in the source stream.
type token struct {
	typ  tokenType
	val  string
	line int
	col  int
}

func (t token) String() string {
	if t.val != "" {
		return fmt.Sprintf("%s %q (line %d:%d)", t.typ, t.val, t.line, t.col)
	}
	return fmt.Sprintf("%s (line %d:%d)", t.typ, t.line, t.col)
}
