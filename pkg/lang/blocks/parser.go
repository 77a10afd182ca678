package blocks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/walteh/atncomplete/pkg/grammar"
	"github.com/walteh/atncomplete/pkg/lexer"
	"github.com/walteh/atncomplete/pkg/tree"
)

// Tree kinds produced by the parser.
const (
	KindProgram  tree.Kind = "program"
	KindVarDecl  tree.Kind = "varDecl"
	KindFuncDecl tree.Kind = "funcDecl"
	KindParam    tree.Kind = "param"
	KindIf       tree.Kind = "ifStmt"
	KindReturn   tree.Kind = "returnStmt"
	KindBlock    tree.Kind = "block"
	KindExprStmt tree.Kind = "exprStmt"
	KindBinary   tree.Kind = "binary"
	KindUnary    tree.Kind = "unary"
	KindMember   tree.Kind = "member"
	KindCall     tree.Kind = "call"
	KindParen    tree.Kind = "paren"
	KindRef      tree.Kind = "ref"
	KindLiteral  tree.Kind = "literal"
)

type tokenTypes struct {
	kwVar, kwFunc, kwReturn, kwIf, kwElse grammar.TokenType

	lbrace, rbrace, lparen, rparen, semi, comma, assign, dot, minus grammar.TokenType

	ident, number, str grammar.TokenType

	binops map[grammar.TokenType]bool
}

func resolveTypes(vocab *grammar.Vocabulary) tokenTypes {
	l := vocab.MustLookup
	return tokenTypes{
		kwVar:    l(VAR),
		kwFunc:   l(FUNC),
		kwReturn: l(RETURN),
		kwIf:     l(IF),
		kwElse:   l(ELSE),
		lbrace:   l(LBRACE),
		rbrace:   l(RBRACE),
		lparen:   l(LPAREN),
		rparen:   l(RPAREN),
		semi:     l(SEMI),
		comma:    l(COMMA),
		assign:   l(ASSIGN),
		dot:      l(DOT),
		minus:    l(MINUS),
		ident:    l(IDENT),
		number:   l(NUMBER),
		str:      l(STRING),
		binops: map[grammar.TokenType]bool{
			l(PLUS):  true,
			l(MINUS): true,
			l(STAR):  true,
			l(SLASH): true,
			l(LT):    true,
			l(EQ):    true,
		},
	}
}

// Parser is a recovering recursive-descent tree builder. Each decision looks
// at one token, mirroring the left-factored grammar.
type Parser struct {
	types tokenTypes
}

func NewParser(vocab *grammar.Vocabulary) *Parser {
	return &Parser{types: resolveTypes(vocab)}
}

// Build parses tokens. It never fails: unexpected tokens are swallowed into
// error nodes and missing tokens become zero-width error nodes.
func (me *Parser) Build(ctx context.Context, tokens []lexer.Token, end int) tree.Node {
	p := &parseState{t: me.types, toks: tokens, end: end}

	var stmts []tree.Node
	for !p.eof() {
		stmts = append(stmts, p.stmt())
	}
	root := &tree.RuleNode{
		Kind:     KindProgram,
		Children: stmts,
		Extent:   tree.Span{Start: 0, End: end},
		Open:     true,
	}

	zerolog.Ctx(ctx).Debug().
		Int("tokens", len(tokens)).
		Int("statements", len(stmts)).
		Int("errors", p.errors).
		Msg("built tree")

	return root
}

type parseState struct {
	t      tokenTypes
	toks   []lexer.Token
	pos    int
	end    int
	errors int
}

func (p *parseState) eof() bool {
	return p.pos >= len(p.toks)
}

func (p *parseState) is(tt grammar.TokenType) bool {
	return !p.eof() && p.toks[p.pos].Type == tt
}

func (p *parseState) next() *tree.TokenLeaf {
	leaf := tree.Leaf(p.toks[p.pos])
	p.pos++
	return leaf
}

func (p *parseState) offset() int {
	if p.eof() {
		return p.end
	}
	return p.toks[p.pos].Start
}

// missing records an absent token without consuming anything.
func (p *parseState) missing(what string) *tree.ErrorNode {
	p.errors++
	at := p.offset()
	return &tree.ErrorNode{
		Extent:  tree.Span{Start: at, End: at},
		Message: "expected " + what,
	}
}

func (p *parseState) expect(tt grammar.TokenType, what string) tree.Node {
	if p.is(tt) {
		return p.next()
	}
	return p.missing(what)
}

// node builds a rule node. A node whose last piece is missing at end of input
// is open: the user is still typing inside it.
func (p *parseState) node(kind tree.Kind, children ...tree.Node) *tree.RuleNode {
	n := tree.NewRule(kind, children...)
	if len(children) > 0 {
		switch last := children[len(children)-1].(type) {
		case *tree.RuleNode:
			n.Open = last.Open
		case *tree.ErrorNode:
			n.Open = last.Extent.Start == p.end && last.Extent.End == p.end
		}
	}
	return n
}

func (p *parseState) startsExpr() bool {
	if p.eof() {
		return false
	}
	switch p.toks[p.pos].Type {
	case p.t.ident, p.t.number, p.t.str, p.t.lparen, p.t.minus:
		return true
	}
	return false
}

func (p *parseState) startsStmt() bool {
	if p.eof() {
		return false
	}
	switch p.toks[p.pos].Type {
	case p.t.kwVar, p.t.kwFunc, p.t.kwIf, p.t.kwReturn, p.t.lbrace:
		return true
	}
	return p.startsExpr()
}

func (p *parseState) stmt() tree.Node {
	switch {
	case p.is(p.t.kwVar):
		return p.varDecl()
	case p.is(p.t.kwFunc):
		return p.funcDecl()
	case p.is(p.t.kwIf):
		return p.ifStmt()
	case p.is(p.t.kwReturn):
		return p.returnStmt()
	case p.is(p.t.lbrace):
		return p.block()
	case p.startsExpr():
		return p.exprStmt()
	default:
		return p.skip()
	}
}

// skip swallows at least one token, stopping after a semicolon or before
// anything that can start or close a statement.
func (p *parseState) skip() *tree.ErrorNode {
	p.errors++
	first := p.toks[p.pos]
	var skipped []lexer.Token
	for !p.eof() {
		tok := p.toks[p.pos]
		skipped = append(skipped, tok)
		p.pos++
		if tok.Type == p.t.semi || p.startsStmt() || p.is(p.t.rbrace) {
			break
		}
	}
	return &tree.ErrorNode{
		Extent:  tree.Span{Start: first.Start, End: skipped[len(skipped)-1].End},
		Skipped: skipped,
		Message: fmt.Sprintf("unexpected %q", first.Text),
	}
}

func (p *parseState) varDecl() tree.Node {
	children := []tree.Node{p.next()}
	children = append(children, p.expect(p.t.ident, "identifier"))
	if p.is(p.t.assign) {
		children = append(children, p.next(), p.expr())
	}
	children = append(children, p.expect(p.t.semi, ";"))
	return p.node(KindVarDecl, children...)
}

func (p *parseState) funcDecl() tree.Node {
	children := []tree.Node{p.next()}
	children = append(children, p.expect(p.t.ident, "identifier"))
	children = append(children, p.expect(p.t.lparen, "("))
	if p.is(p.t.ident) {
		children = append(children, p.node(KindParam, p.next()))
		for p.is(p.t.comma) {
			children = append(children, p.next())
			if p.is(p.t.ident) {
				children = append(children, p.node(KindParam, p.next()))
			} else {
				children = append(children, p.missing("parameter"))
			}
		}
	}
	children = append(children, p.expect(p.t.rparen, ")"))
	children = append(children, p.blockOrMissing())
	return p.node(KindFuncDecl, children...)
}

func (p *parseState) ifStmt() tree.Node {
	children := []tree.Node{p.next()}
	children = append(children, p.expect(p.t.lparen, "("))
	children = append(children, p.expr())
	children = append(children, p.expect(p.t.rparen, ")"))
	children = append(children, p.blockOrMissing())
	if p.is(p.t.kwElse) {
		children = append(children, p.next(), p.blockOrMissing())
	}
	return p.node(KindIf, children...)
}

func (p *parseState) returnStmt() tree.Node {
	children := []tree.Node{p.next()}
	if p.startsExpr() {
		children = append(children, p.expr())
	}
	children = append(children, p.expect(p.t.semi, ";"))
	return p.node(KindReturn, children...)
}

func (p *parseState) blockOrMissing() tree.Node {
	if p.is(p.t.lbrace) {
		return p.block()
	}
	return p.missing("{")
}

func (p *parseState) block() tree.Node {
	children := []tree.Node{p.next()}
	for !p.eof() && !p.is(p.t.rbrace) {
		children = append(children, p.stmt())
	}
	children = append(children, p.expect(p.t.rbrace, "}"))
	return p.node(KindBlock, children...)
}

func (p *parseState) exprStmt() tree.Node {
	children := []tree.Node{p.expr()}
	if p.is(p.t.assign) {
		children = append(children, p.next(), p.expr())
	}
	children = append(children, p.expect(p.t.semi, ";"))
	return p.node(KindExprStmt, children...)
}

func (p *parseState) expr() tree.Node {
	left := p.unary()
	if p.eof() || !p.t.binops[p.toks[p.pos].Type] {
		return left
	}
	children := []tree.Node{left}
	for !p.eof() && p.t.binops[p.toks[p.pos].Type] {
		children = append(children, p.next(), p.unary())
	}
	return p.node(KindBinary, children...)
}

func (p *parseState) unary() tree.Node {
	if p.is(p.t.minus) {
		return p.node(KindUnary, p.next(), p.postfix())
	}
	return p.postfix()
}

func (p *parseState) postfix() tree.Node {
	n := p.primary()
	for {
		switch {
		case p.is(p.t.dot):
			n = p.node(KindMember, n, p.next(), p.expect(p.t.ident, "field name"))
		case p.is(p.t.lparen):
			children := []tree.Node{n, p.next()}
			if p.startsExpr() {
				children = append(children, p.expr())
				for p.is(p.t.comma) {
					children = append(children, p.next(), p.expr())
				}
			}
			children = append(children, p.expect(p.t.rparen, ")"))
			n = p.node(KindCall, children...)
		default:
			return n
		}
	}
}

func (p *parseState) primary() tree.Node {
	switch {
	case p.is(p.t.ident):
		return p.node(KindRef, p.next())
	case p.is(p.t.number), p.is(p.t.str):
		return p.node(KindLiteral, p.next())
	case p.is(p.t.lparen):
		lp := p.next()
		inner := p.expr()
		return p.node(KindParen, lp, inner, p.expect(p.t.rparen, ")"))
	default:
		return p.missing("expression")
	}
}
