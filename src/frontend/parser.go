// parser.go is a hand-written recursive-descent parser replacing
// hhramberg-go-vslc's goyacc-generated one (tree.go there ran yyParse fed by
// a concurrently running lexer over a channel). Lexing here runs to
// completion first and the parser walks the resulting token slice directly:
// SPEC_FULL.md §4.9 calls for a hand-written frontend precisely because this
// repository has no code-generation step to invoke a parser generator from.
//
// Grammar (standard precedence climbing, weakest to tightest):
//
//	program    := (decl | funcDef)*
//	decl       := "int" ident arrayDims? ("=" initializer)? ("," ident arrayDims? ("=" initializer)?)* ";"
//	initializer:= expr | "{" (initializer ("," initializer)*)? "}"
//	funcDef    := ("int" | "void") ident "(" params? ")" block
//	params     := param ("," param)*
//	param      := "int" ident ("[" "]" ("[" expr "]")*)?
//	block      := "{" (decl | stmt)* "}"
//	stmt       := block | ifStmt | whileStmt | "break" ";" | "continue" ";"
//	            | "return" expr? ";" | exprStmt ";" | ";"
//	exprStmt   := lval "=" expr | expr
//	expr       := lorExpr
//	lorExpr    := landExpr ("||" landExpr)*
//	landExpr   := relExpr ("&&" relExpr)*
//	relExpr    := addExpr (("<"|">"|"<="|">="|"=="|"!=") addExpr)*
//	addExpr    := mulExpr (("+"|"-") mulExpr)*
//	mulExpr    := unary (("*"|"/"|"%") unary)*
//	unary      := ("-"|"!") unary | postfix
//	postfix    := primary ("[" expr "]")*
//	primary    := ident ("(" args? ")")? | intLit | "(" expr ")"
package frontend

import (
	"fmt"

	"github.com/xe442/sysyc/src/frontend/ast"
)

// Parser holds the token slice and cursor for one parse.
type Parser struct {
	toks []token
	pos  int
}

// Parse lexes and parses src into a Program.
func Parse(src string) (*ast.Program, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) cur() token  { return p.toks[p.pos] }
func (p *Parser) at(t tokenType) bool { return p.cur().typ == t }

func (p *Parser) advance() token {
	t := p.toks[p.pos]
	if t.typ != tokEOF {
		p.pos++
	}
	return t
}

func (p *Parser) expect(t tokenType) (token, error) {
	if !p.at(t) {
		got := p.cur()
		return got, fmt.Errorf("line %d:%d: expected %s, got %s", got.line, got.col, t, got.typ)
	}
	return p.advance(), nil
}

func pos(t token) ast.Pos { return ast.Pos{Line: t.line, Col: t.col} }

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.at(tokEOF) {
		item, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, item)
	}
	return prog, nil
}

// parseTopLevel disambiguates a VarDecl from a FuncDef: both start with
// "int" ident, diverging at the token that follows the identifier.
func (p *Parser) parseTopLevel() (ast.Node, error) {
	if p.at(tokKwVoid) {
		return p.parseFuncDef()
	}
	if !p.at(tokKwInt) {
		t := p.cur()
		return nil, fmt.Errorf("line %d:%d: expected declaration or function definition, got %s", t.line, t.col, t.typ)
	}
	// Peek past "int" ident to decide.
	if p.pos+2 < len(p.toks) && p.toks[p.pos+2].typ == tokLParen {
		return p.parseFuncDef()
	}
	return p.parseVarDecl()
}

func (p *Parser) parseFuncDef() (*ast.FuncDef, error) {
	kw := p.advance() // "int" or "void"
	name, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	var params []*ast.Param
	for !p.at(tokRParen) {
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		if p.at(tokComma) {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDef{Name: name.val, ReturnsInt: kw.typ == tokKwInt, Params: params, Body: body, Pos: pos(kw)}, nil
}

func (p *Parser) parseParam() (*ast.Param, error) {
	if _, err := p.expect(tokKwInt); err != nil {
		return nil, err
	}
	name, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	typ := ast.Type{}
	if p.at(tokLBracket) {
		p.advance()
		if _, err := p.expect(tokRBracket); err != nil {
			return nil, err
		}
		typ.IsPointer = true
		typ.Dims = append(typ.Dims, 0)
		for p.at(tokLBracket) {
			p.advance()
			n, err := p.parseConstExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket); err != nil {
				return nil, err
			}
			typ.Dims = append(typ.Dims, n)
		}
	}
	return &ast.Param{Name: name.val, Type: typ, Pos: pos(name)}, nil
}

func (p *Parser) parseVarDecl() (*ast.VarDecl, error) {
	if _, err := p.expect(tokKwInt); err != nil {
		return nil, err
	}
	decl := &ast.VarDecl{}
	for {
		def, err := p.parseSingleVarDecl()
		if err != nil {
			return nil, err
		}
		decl.Defs = append(decl.Defs, def)
		if p.at(tokComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokSemi); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseSingleVarDecl() (*ast.SingleVarDecl, error) {
	name, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	def := &ast.SingleVarDecl{Name: name.val, Pos: pos(name)}
	for p.at(tokLBracket) {
		p.advance()
		n, err := p.parseConstExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBracket); err != nil {
			return nil, err
		}
		def.Type.Dims = append(def.Type.Dims, n)
	}
	if p.at(tokAssign) {
		p.advance()
		if p.at(tokLBrace) {
			init, err := p.parseInitializer()
			if err != nil {
				return nil, err
			}
			def.Init = init
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			def.Init = e
		}
	}
	return def, nil
}

// parseConstExpr parses an array dimension. Only an integer literal is
// accepted; any other expression, even one with a constant value such as
// 2+3, is rejected with an error.
func (p *Parser) parseConstExpr() (int, error) {
	e, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if c, ok := e.(*ast.ConstInt); ok {
		return c.Val, nil
	}
	return 0, fmt.Errorf("array dimension must be a constant expression")
}

func (p *Parser) parseInitializer() (*ast.Initializer, error) {
	brace, err := p.expect(tokLBrace)
	if err != nil {
		return nil, err
	}
	init := &ast.Initializer{Pos: pos(brace)}
	for !p.at(tokRBrace) {
		var elem ast.Node
		if p.at(tokLBrace) {
			elem, err = p.parseInitializer()
		} else {
			elem, err = p.parseExpr()
		}
		if err != nil {
			return nil, err
		}
		init.Elems = append(init.Elems, elem)
		if p.at(tokComma) {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, err
	}
	return init, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	block := &ast.Block{}
	for !p.at(tokRBrace) {
		item, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		block.Items = append(block.Items, item)
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseBlockItem() (ast.Node, error) {
	if p.at(tokKwInt) {
		return p.parseVarDecl()
	}
	return p.parseStmt()
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().typ {
	case tokLBrace:
		return p.parseBlock()
	case tokKwIf:
		return p.parseIf()
	case tokKwWhile:
		return p.parseWhile()
	case tokKwBreak:
		t := p.advance()
		if _, err := p.expect(tokSemi); err != nil {
			return nil, err
		}
		return &ast.Break{Pos: pos(t)}, nil
	case tokKwContinue:
		t := p.advance()
		if _, err := p.expect(tokSemi); err != nil {
			return nil, err
		}
		return &ast.Cont{Pos: pos(t)}, nil
	case tokKwReturn:
		t := p.advance()
		ret := &ast.Ret{Pos: pos(t)}
		if !p.at(tokSemi) {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ret.Expr = e
		}
		if _, err := p.expect(tokSemi); err != nil {
			return nil, err
		}
		return ret, nil
	case tokSemi:
		p.advance()
		return &ast.Block{}, nil
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseIf() (*ast.If, error) {
	p.advance()
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	n := &ast.If{Cond: cond, Then: then}
	if p.at(tokKwElse) {
		p.advance()
		els, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		n.Else = els
	}
	return n, nil
}

func (p *Parser) parseWhile() (*ast.While, error) {
	p.advance()
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body}, nil
}

// parseExprStmt parses either an assignment (lval "=" expr) or a bare
// expression statement (a FuncCall for side effects), folding the result
// into a BinaryOp/FuncCall node consumed directly as a Stmt.
func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(tokAssign) {
		eq := p.advance()
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokSemi); err != nil {
			return nil, err
		}
		return &ast.BinaryOp{Op: ast.OpAssign, Lhs: e, Rhs: rhs, Pos: pos(eq)}, nil
	}
	if _, err := p.expect(tokSemi); err != nil {
		return nil, err
	}
	switch e.(type) {
	case *ast.FuncCall, *ast.BinaryOp:
		return e, nil
	}
	return nil, fmt.Errorf("expression is not valid as a statement")
}

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseLor() }

func (p *Parser) parseLor() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseLand, map[tokenType]ast.BinOp{tokOr: ast.OpOr})
}

func (p *Parser) parseLand() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseRel, map[tokenType]ast.BinOp{tokAnd: ast.OpAnd})
}

func (p *Parser) parseRel() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseAdd, map[tokenType]ast.BinOp{
		tokLt: ast.OpLt, tokGt: ast.OpGt, tokLe: ast.OpLe, tokGe: ast.OpGe,
		tokEq: ast.OpEq, tokNe: ast.OpNe,
	})
}

func (p *Parser) parseAdd() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseMul, map[tokenType]ast.BinOp{tokPlus: ast.OpAdd, tokMinus: ast.OpSub})
}

func (p *Parser) parseMul() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseUnary, map[tokenType]ast.BinOp{
		tokStar: ast.OpMul, tokSlash: ast.OpDiv, tokPercent: ast.OpMod,
	})
}

// parseBinaryLevel implements one left-associative precedence level shared
// by parseLor..parseMul.
func (p *Parser) parseBinaryLevel(next func() (ast.Expr, error), ops map[tokenType]ast.BinOp) (ast.Expr, error) {
	lhs, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.cur().typ]
		if !ok {
			return lhs, nil
		}
		t := p.advance()
		rhs, err := next()
		if err != nil {
			return nil, err
		}
		lhs = &ast.BinaryOp{Op: op, Lhs: lhs, Rhs: rhs, Pos: pos(t)}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.cur().typ {
	case tokMinus:
		t := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: ast.OpNeg, Operand: operand, Pos: pos(t)}, nil
	case tokNot:
		t := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: ast.OpNot, Operand: operand, Pos: pos(t)}, nil
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(tokLBracket) {
		t := p.advance()
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRBracket); err != nil {
			return nil, err
		}
		e = &ast.BinaryOp{Op: ast.OpAccess, Lhs: e, Rhs: idx, Pos: pos(t)}
	}
	return e, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch p.cur().typ {
	case tokInt:
		t := p.advance()
		var v int
		if _, err := fmt.Sscanf(t.val, "%d", &v); err != nil {
			return nil, fmt.Errorf("line %d:%d: malformed integer literal %q", t.line, t.col, t.val)
		}
		return &ast.ConstInt{Val: v}, nil
	case tokIdent:
		t := p.advance()
		if p.at(tokLParen) {
			p.advance()
			var args []ast.Expr
			for !p.at(tokRParen) {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.at(tokComma) {
					p.advance()
				} else {
					break
				}
			}
			if _, err := p.expect(tokRParen); err != nil {
				return nil, err
			}
			return &ast.FuncCall{Name: t.val, Args: args, Pos: pos(t)}, nil
		}
		return &ast.Id{Name: t.val, Pos: pos(t)}, nil
	case tokLParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil
	default:
		t := p.cur()
		return nil, fmt.Errorf("line %d:%d: unexpected token %s in expression", t.line, t.col, t.typ)
	}
}
