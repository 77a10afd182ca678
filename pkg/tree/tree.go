// Package tree is the parse tree produced by tree builders. A tree is made of
// exactly three node variants: rule nodes, token leaves and error nodes.
// Builders never fail outright; where input cannot be parsed they insert an
// error node covering the unparsable span and carry on.
package tree

import (
	"fmt"
	"strings"

	"github.com/walteh/atncomplete/pkg/lexer"
)

// Kind names the grammar rule a RuleNode was built for.
type Kind string

// Span is a half-open byte range.
type Span struct {
	Start int
	End   int
}

func (s Span) Contains(offset int) bool {
	return s.Start <= offset && offset < s.End
}

// Node is one of *RuleNode, *TokenLeaf or *ErrorNode.
type Node interface {
	Span() Span
	Accept(v Visitor)
	node()
}

// RuleNode is a well-formed (possibly partial) rule application.
type RuleNode struct {
	Kind     Kind
	Children []Node
	Extent   Span
	// Open reports that the node's closing token is missing, so the node
	// extends to the end of input.
	Open bool
}

// TokenLeaf wraps a consumed token.
type TokenLeaf struct {
	Token lexer.Token
}

// ErrorNode marks an unparsable span. Skipped holds the tokens it swallowed,
// which may be none for a missing token.
type ErrorNode struct {
	Extent  Span
	Skipped []lexer.Token
	Message string
}

func (n *RuleNode) Span() Span  { return n.Extent }
func (n *TokenLeaf) Span() Span { return Span{Start: n.Token.Start, End: n.Token.End} }
func (n *ErrorNode) Span() Span { return n.Extent }

func (*RuleNode) node()  {}
func (*TokenLeaf) node() {}
func (*ErrorNode) node() {}

// Visitor has one method per node variant.
type Visitor interface {
	VisitRule(n *RuleNode)
	VisitToken(n *TokenLeaf)
	VisitError(n *ErrorNode)
}

func (n *RuleNode) Accept(v Visitor)  { v.VisitRule(n) }
func (n *TokenLeaf) Accept(v Visitor) { v.VisitToken(n) }
func (n *ErrorNode) Accept(v Visitor) { v.VisitError(n) }

// NewRule builds a rule node whose extent covers its children.
func NewRule(kind Kind, children ...Node) *RuleNode {
	n := &RuleNode{Kind: kind, Children: children}
	n.Extent = cover(children)
	return n
}

func cover(children []Node) Span {
	if len(children) == 0 {
		return Span{}
	}
	return Span{Start: children[0].Span().Start, End: children[len(children)-1].Span().End}
}

// Leaf wraps a token.
func Leaf(tok lexer.Token) *TokenLeaf {
	return &TokenLeaf{Token: tok}
}

// Inspect walks the tree depth first, calling fn before descending into a
// rule node's children. Returning false prunes the subtree.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	if r, ok := n.(*RuleNode); ok {
		for _, c := range r.Children {
			Inspect(c, fn)
		}
	}
}

// Errors returns every error node under n in source order.
func Errors(n Node) []*ErrorNode {
	var out []*ErrorNode
	Inspect(n, func(n Node) bool {
		if e, ok := n.(*ErrorNode); ok {
			out = append(out, e)
		}
		return true
	})
	return out
}

// Dump renders the tree one node per line, for tests and debug logs.
func Dump(n Node) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func dump(b *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *RuleNode:
		open := ""
		if n.Open {
			open = " open"
		}
		fmt.Fprintf(b, "%s%s [%d,%d)%s\n", indent, n.Kind, n.Extent.Start, n.Extent.End, open)
		for _, c := range n.Children {
			dump(b, c, depth+1)
		}
	case *TokenLeaf:
		fmt.Fprintf(b, "%s%q [%d,%d)\n", indent, n.Token.Text, n.Token.Start, n.Token.End)
	case *ErrorNode:
		fmt.Fprintf(b, "%serror [%d,%d) %s\n", indent, n.Extent.Start, n.Extent.End, n.Message)
	}
}
