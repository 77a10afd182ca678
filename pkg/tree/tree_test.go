package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/walteh/atncomplete/pkg/lexer"
	"github.com/walteh/atncomplete/pkg/tree"
)

type countingVisitor struct {
	rules, tokens, errs int
}

func (v *countingVisitor) VisitRule(n *tree.RuleNode) {
	v.rules++
	for _, c := range n.Children {
		c.Accept(v)
	}
}

func (v *countingVisitor) VisitToken(*tree.TokenLeaf) { v.tokens++ }
func (v *countingVisitor) VisitError(*tree.ErrorNode) { v.errs++ }

func sample() *tree.RuleNode {
	return tree.NewRule("program",
		tree.NewRule("decl",
			tree.Leaf(lexer.Token{Text: "var", Start: 0, End: 3}),
			tree.Leaf(lexer.Token{Text: "x", Start: 4, End: 5}),
		),
		&tree.ErrorNode{Extent: tree.Span{Start: 6, End: 9}, Message: "unexpected"},
		tree.Leaf(lexer.Token{Text: ";", Start: 9, End: 10}),
	)
}

func TestNewRule_Extent(t *testing.T) {
	root := sample()
	assert.Equal(t, tree.Span{Start: 0, End: 10}, root.Span())
	assert.Equal(t, tree.Span{}, tree.NewRule("empty").Span())
}

func TestVisitor(t *testing.T) {
	v := &countingVisitor{}
	sample().Accept(v)
	assert.Equal(t, 2, v.rules)
	assert.Equal(t, 3, v.tokens)
	assert.Equal(t, 1, v.errs)
}

func TestErrors(t *testing.T) {
	errs := tree.Errors(sample())
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "unexpected", errs[0].Message)
	}
}

func TestInspect_Prune(t *testing.T) {
	var seen []string
	tree.Inspect(sample(), func(n tree.Node) bool {
		if r, ok := n.(*tree.RuleNode); ok {
			seen = append(seen, string(r.Kind))
			return r.Kind != "decl"
		}
		return true
	})
	assert.Equal(t, []string{"program", "decl"}, seen)
}

func TestDump(t *testing.T) {
	want := "program [0,10)\n" +
		"  decl [0,5)\n" +
		"    \"var\" [0,3)\n" +
		"    \"x\" [4,5)\n" +
		"  error [6,9) unexpected\n" +
		"  \";\" [9,10)\n"
	assert.Equal(t, want, tree.Dump(sample()))
}
