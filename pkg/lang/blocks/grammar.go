// Package blocks is a small block-structured language used to exercise the
// completion engine end to end:
//
//	var total = 0;
//	func add(a, b) {
//		var sum = a + b;
//		return sum;
//	}
//	if (total < 10) { total = add(total, 1); } else { print(user.name); }
package blocks

import (
	"github.com/walteh/atncomplete/pkg/grammar"
	"github.com/walteh/atncomplete/pkg/lexer"
)

// Token names.
const (
	VAR    = "VAR"
	FUNC   = "FUNC"
	RETURN = "RETURN"
	IF     = "IF"
	ELSE   = "ELSE"

	LBRACE = "LBRACE"
	RBRACE = "RBRACE"
	LPAREN = "LPAREN"
	RPAREN = "RPAREN"
	SEMI   = "SEMI"
	COMMA  = "COMMA"
	EQ     = "EQ"
	ASSIGN = "ASSIGN"
	DOT    = "DOT"
	PLUS   = "PLUS"
	MINUS  = "MINUS"
	STAR   = "STAR"
	SLASH  = "SLASH"
	LT     = "LT"

	IDENT  = "IDENT"
	NUMBER = "NUMBER"
	STRING = "STRING"
)

func newVocabulary() *grammar.Vocabulary {
	return grammar.MustVocabulary(
		grammar.Keyword(VAR, "var"),
		grammar.Keyword(FUNC, "func"),
		grammar.Keyword(RETURN, "return"),
		grammar.Keyword(IF, "if"),
		grammar.Keyword(ELSE, "else"),

		grammar.Literal(LBRACE, "{"),
		grammar.Literal(RBRACE, "}"),
		grammar.Literal(LPAREN, "("),
		grammar.Literal(RPAREN, ")"),
		grammar.Literal(SEMI, ";"),
		grammar.Literal(COMMA, ","),
		grammar.Literal(EQ, "=="),
		grammar.Literal(ASSIGN, "="),
		grammar.Literal(DOT, "."),
		grammar.Literal(PLUS, "+"),
		grammar.Literal(MINUS, "-"),
		grammar.Literal(STAR, "*"),
		grammar.Literal(SLASH, "/"),
		grammar.Literal(LT, "<"),

		grammar.Identifier(IDENT),
		grammar.Value(NUMBER),
		grammar.Value(STRING),
	)
}

// lexerRules are tried in order; EQ precedes ASSIGN so "==" wins.
var lexerRules = []lexer.Rule{
	{Name: "comment", Pattern: `//[^\n]*`, Skip: true},
	{Name: "whitespace", Pattern: `\s+`, Skip: true},
	{Name: NUMBER, Pattern: `\d+(\.\d+)?`},
	{Name: STRING, Pattern: `"(\\.|[^"\\])*"`},
	{Name: IDENT, Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: EQ, Pattern: `==`},
	{Name: ASSIGN, Pattern: `=`},
	{Name: LBRACE, Pattern: `\{`},
	{Name: RBRACE, Pattern: `\}`},
	{Name: LPAREN, Pattern: `\(`},
	{Name: RPAREN, Pattern: `\)`},
	{Name: SEMI, Pattern: `;`},
	{Name: COMMA, Pattern: `,`},
	{Name: DOT, Pattern: `\.`},
	{Name: PLUS, Pattern: `\+`},
	{Name: MINUS, Pattern: `-`},
	{Name: STAR, Pattern: `\*`},
	{Name: SLASH, Pattern: `/`},
	{Name: LT, Pattern: `<`},
}

// newNetwork compiles the grammar. Alternatives are left-factored so the
// recovering parser can always pick a branch from the next token alone.
func newNetwork(vocab *grammar.Vocabulary) *grammar.Network {
	g := grammar.Tok
	return grammar.NewBuilder(vocab).
		Rule("program", grammar.Star(grammar.Ref("stmt"))).
		Rule("stmt", grammar.Alt(
			grammar.Ref("varDecl"),
			grammar.Ref("funcDecl"),
			grammar.Ref("ifStmt"),
			grammar.Ref("returnStmt"),
			grammar.Ref("block"),
			grammar.Ref("exprStmt"),
		)).
		Rule("varDecl", grammar.Seq(g(VAR), g(IDENT), grammar.Opt(grammar.Seq(g(ASSIGN), grammar.Ref("expr"))), g(SEMI))).
		Rule("funcDecl", grammar.Seq(g(FUNC), g(IDENT), g(LPAREN), grammar.Opt(grammar.Ref("params")), g(RPAREN), grammar.Ref("block"))).
		Rule("params", grammar.Seq(grammar.Ref("param"), grammar.Star(grammar.Seq(g(COMMA), grammar.Ref("param"))))).
		Rule("param", g(IDENT)).
		Rule("ifStmt", grammar.Seq(g(IF), g(LPAREN), grammar.Ref("expr"), g(RPAREN), grammar.Ref("block"), grammar.Opt(grammar.Seq(g(ELSE), grammar.Ref("block"))))).
		Rule("returnStmt", grammar.Seq(g(RETURN), grammar.Opt(grammar.Ref("expr")), g(SEMI))).
		Rule("block", grammar.Seq(g(LBRACE), grammar.Star(grammar.Ref("stmt")), g(RBRACE))).
		Rule("exprStmt", grammar.Seq(grammar.Ref("expr"), grammar.Opt(grammar.Seq(g(ASSIGN), grammar.Ref("expr"))), g(SEMI))).
		Rule("expr", grammar.Seq(grammar.Ref("unary"), grammar.Star(grammar.Seq(grammar.Ref("binop"), grammar.Ref("unary"))))).
		Rule("binop", grammar.Alt(g(PLUS), g(MINUS), g(STAR), g(SLASH), g(LT), g(EQ))).
		Rule("unary", grammar.Seq(grammar.Opt(g(MINUS)), grammar.Ref("postfix"))).
		Rule("postfix", grammar.Seq(grammar.Ref("primary"), grammar.Star(grammar.Alt(
			grammar.Seq(g(DOT), g(IDENT)),
			grammar.Seq(g(LPAREN), grammar.Opt(grammar.Ref("args")), g(RPAREN)),
		)))).
		Rule("args", grammar.Seq(grammar.Ref("expr"), grammar.Star(grammar.Seq(g(COMMA), grammar.Ref("expr"))))).
		Rule("primary", grammar.Alt(
			g(IDENT),
			g(NUMBER),
			g(STRING),
			grammar.Seq(g(LPAREN), grammar.Ref("expr"), g(RPAREN)),
		)).
		MustBuild("program")
}
