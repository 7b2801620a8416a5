package frontend

import "testing"

func TestLexBasic(t *testing.T) {
	src := "int main() { // entry\n  int a[3];\n  a[0] = 1 + 2 * 3;\n  if (a[0] >= 6 && !done) return a[0];\n  return 0;\n}\n"
	toks, err := lex(src)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}

	want := []tokenType{
		tokKwInt, tokIdent, tokLParen, tokRParen, tokLBrace,
		tokKwInt, tokIdent, tokLBracket, tokInt, tokRBracket, tokSemi,
		tokIdent, tokLBracket, tokInt, tokRBracket, tokAssign, tokInt, tokPlus, tokInt, tokStar, tokInt, tokSemi,
		tokKwIf, tokLParen, tokIdent, tokLBracket, tokInt, tokRBracket, tokGe, tokInt, tokAnd, tokNot, tokIdent, tokRParen,
		tokKwReturn, tokIdent, tokLBracket, tokInt, tokRBracket, tokSemi,
		tokKwReturn, tokInt, tokSemi,
		tokRBrace, tokEOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].typ != w {
			t.Errorf("token %d: got %s, want %s", i, toks[i].typ, w)
		}
	}
}

func TestLexBlockComment(t *testing.T) {
	toks, err := lex("/* skip\nme */ int x;")
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if toks[0].typ != tokKwInt || toks[0].line != 2 {
		t.Fatalf("comment not skipped correctly: %+v", toks[0])
	}
}

func TestLexUnterminatedComment(t *testing.T) {
	if _, err := lex("/* never closes"); err == nil {
		t.Fatal("expected error for unterminated block comment")
	}
}
