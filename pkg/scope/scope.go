// Package scope resolves which symbols are visible at a position of a possibly
// partial parse tree.
//
// Scopes are rebuilt for every request. Build walks the tree once, threading
// the current scope through the recursion, and records every scope together
// with the node that opened it. Error nodes are treated as empty leaves, so
// well-formed structure around an unparsable span still contributes its scopes
// and declarations.
//
// The result is only as good as the tree: a grammar whose alternatives share an
// unbounded common prefix makes the tree builder fall back to one large error
// node, and no scope inside that span can be recovered here.
package scope

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/walteh/atncomplete/pkg/grammar"
	"github.com/walteh/atncomplete/pkg/tree"
)

// Kind classifies scopes.
type Kind uint8

const (
	KindRoot Kind = iota
	KindFunction
	KindBlock
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindFunction:
		return "function"
	case KindBlock:
		return "block"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Rules tell the builder which rule kinds open scopes and which declare
// symbols.
type Rules struct {
	// Scopes maps scope-introducing rule kinds to the scope they open.
	Scopes map[tree.Kind]Kind
	// Declarations maps declaring rule kinds to the semantic kind of the
	// declared symbol. The declared name is the node's first identifier leaf.
	Declarations map[tree.Kind]string
	// Identifier is the identifier token type.
	Identifier grammar.TokenType
}

// Entry is a declared symbol.
type Entry struct {
	Name string
	// Offset is the start offset of the declaring node.
	Offset int
	Kind   string
}

// Scope maps names to entries and links to its enclosing scope.
type Scope struct {
	Kind   Kind
	Parent *Scope
	Extent tree.Span
	// Open mirrors tree.RuleNode.Open: the scope runs to the end of input.
	Open bool
	// Node is the rule node that introduced the scope; nil for the root.
	Node *tree.RuleNode

	depth   int
	entries map[string]Entry
	order   []string
}

func newScope(kind Kind, parent *Scope, node *tree.RuleNode) *Scope {
	s := &Scope{
		Kind:    kind,
		Parent:  parent,
		Node:    node,
		entries: make(map[string]Entry),
	}
	if parent != nil {
		s.depth = parent.depth + 1
	}
	if node != nil {
		s.Extent = node.Extent
		s.Open = node.Open
	}
	return s
}

// declare inserts e unless the name is already declared in this scope; the
// earliest declaration wins.
func (s *Scope) declare(e Entry) {
	if _, ok := s.entries[e.Name]; ok {
		return
	}
	s.entries[e.Name] = e
	s.order = append(s.order, e.Name)
}

// Lookup finds a name declared directly in s.
func (s *Scope) Lookup(name string) (Entry, bool) {
	e, ok := s.entries[name]
	return e, ok
}

// Entries returns the entries of s in declaration order.
func (s *Scope) Entries() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.entries[n])
	}
	return out
}

// Contains reports whether pos lies strictly inside the scope. The root
// contains every position.
func (s *Scope) Contains(pos int) bool {
	if s.Node == nil {
		return true
	}
	if pos <= s.Extent.Start {
		return false
	}
	return s.Open || pos < s.Extent.End
}

// Chain is an ordered list of scopes from innermost to outermost.
type Chain []*Scope

// Visible returns the entries visible at pos: declared at or before pos, with
// inner declarations shadowing outer ones. The result is sorted by name.
func (c Chain) Visible(pos int) []Entry {
	seen := make(map[string]struct{})
	var out []Entry
	for _, s := range c {
		for _, e := range s.Entries() {
			if e.Offset > pos {
				continue
			}
			if _, ok := seen[e.Name]; ok {
				continue
			}
			seen[e.Name] = struct{}{}
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve finds the innermost visible declaration of name at pos.
func (c Chain) Resolve(name string, pos int) (Entry, bool) {
	for _, s := range c {
		if e, ok := s.Lookup(name); ok && e.Offset <= pos {
			return e, true
		}
	}
	return Entry{}, false
}

// Index holds every scope built for one tree.
type Index struct {
	Root   *Scope
	scopes []*Scope
	byNode map[*tree.RuleNode]*Scope
}

// Scopes returns all scopes in traversal order, root first.
func (ix *Index) Scopes() []*Scope {
	return ix.scopes
}

// ScopeOf returns the scope a node introduced.
func (ix *Index) ScopeOf(n *tree.RuleNode) (*Scope, bool) {
	s, ok := ix.byNode[n]
	return s, ok
}

// ChainAt returns the scope chain active at pos.
func (ix *Index) ChainAt(pos int) Chain {
	best := ix.Root
	for _, s := range ix.scopes {
		if s.depth > best.depth && s.Contains(pos) {
			best = s
		}
	}
	var chain Chain
	for s := best; s != nil; s = s.Parent {
		chain = append(chain, s)
	}
	return chain
}

// Build resolves scopes for the tree rooted at root.
func Build(ctx context.Context, root tree.Node, rules Rules) *Index {
	ix := &Index{
		byNode: make(map[*tree.RuleNode]*Scope),
	}
	ix.Root = newScope(KindRoot, nil, nil)
	ix.scopes = append(ix.scopes, ix.Root)
	if root != nil {
		ix.Root.Extent = root.Span()
		ix.visit(root, ix.Root, rules)
	}

	zerolog.Ctx(ctx).Debug().
		Int("scopes", len(ix.scopes)).
		Int("root_entries", len(ix.Root.order)).
		Msg("built scope index")

	return ix
}

// BuildAt is Build followed by ChainAt.
func BuildAt(ctx context.Context, root tree.Node, rules Rules, pos int) Chain {
	return Build(ctx, root, rules).ChainAt(pos)
}

func (ix *Index) visit(n tree.Node, cur *Scope, rules Rules) {
	switch n := n.(type) {
	case *tree.RuleNode:
		if kind, ok := rules.Declarations[n.Kind]; ok {
			if name, ok := declaredName(n, rules.Identifier); ok {
				cur.declare(Entry{Name: name, Offset: n.Extent.Start, Kind: kind})
			}
		}
		inner := cur
		if kind, ok := rules.Scopes[n.Kind]; ok {
			inner = newScope(kind, cur, n)
			ix.scopes = append(ix.scopes, inner)
			ix.byNode[n] = inner
		}
		for _, c := range n.Children {
			ix.visit(c, inner, rules)
		}
	case *tree.TokenLeaf:
	case *tree.ErrorNode:
		// unparsable spans contribute nothing
	}
}

func declaredName(n *tree.RuleNode, ident grammar.TokenType) (string, bool) {
	for _, c := range n.Children {
		if leaf, ok := c.(*tree.TokenLeaf); ok && leaf.Token.Type == ident {
			return leaf.Token.Text, true
		}
	}
	return "", false
}
