// Package language bundles everything the completion engine needs to know
// about one language and keeps a registry of them.
package language

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/atncomplete/pkg/grammar"
	"github.com/walteh/atncomplete/pkg/lexer"
	"github.com/walteh/atncomplete/pkg/scope"
	"github.com/walteh/atncomplete/pkg/tree"
	"gitlab.com/tozd/go/errors"
)

// TreeBuilder turns tokens into a tree. Implementations must not fail on
// incomplete input: they always return some tree, using error nodes for the
// parts they cannot parse. end is the length of the source text.
type TreeBuilder interface {
	Build(ctx context.Context, tokens []lexer.Token, end int) tree.Node
}

// NoMember marks a language without member access.
const NoMember grammar.TokenType = -1

// Definition is an immutable language description shared by all requests.
type Definition struct {
	Name string
	// Extensions lists file extensions, including the dot.
	Extensions []string
	Network    *grammar.Network
	Tokenizer  *lexer.Tokenizer
	Trees      TreeBuilder
	Scopes     scope.Rules
	// References lists the tree kinds whose identifier child is a use of a
	// declared name.
	References []tree.Kind
	// Member is the token separating segments of an identifier path, such
	// as the dot in a.b.c, or NoMember.
	Member grammar.TokenType
}

func (d *Definition) Vocabulary() *grammar.Vocabulary {
	return d.Network.Vocabulary()
}

// Validate checks that the parts of a definition agree with each other.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.New("language has no name")
	}
	if d.Network == nil || d.Tokenizer == nil || d.Trees == nil {
		return errors.Errorf("language %s is missing a network, tokenizer or tree builder", d.Name)
	}
	sym, ok := d.Vocabulary().Symbol(d.Scopes.Identifier)
	if !ok || sym.Class != grammar.ClassIdentifier {
		return errors.Errorf("language %s: scope identifier is not an identifier token", d.Name)
	}
	return nil
}

// Registry holds language definitions by name.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates a registry with the given definitions.
func NewRegistry(ctx context.Context, defs ...*Definition) (*Registry, error) {
	r := &Registry{
		defs: make(map[string]*Definition),
	}
	for _, d := range defs {
		if err := r.Register(ctx, d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a definition, replacing any with the same name.
func (r *Registry) Register(ctx context.Context, d *Definition) error {
	if err := d.Validate(); err != nil {
		return errors.Errorf("registering language: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("language", d.Name).Strs("extensions", d.Extensions).Msg("registering language")

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[d.Name] = d
	return nil
}

// Get retrieves a definition by name.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	if !ok {
		return nil, errors.Errorf("language not found: %s", name)
	}
	return d, nil
}

// ForPath picks the definition whose extensions match path.
func (r *Registry) ForPath(path string) (*Definition, error) {
	ext := filepath.Ext(path)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.namesLocked() {
		d := r.defs[name]
		for _, e := range d.Extensions {
			if e == ext {
				return d, nil
			}
		}
	}
	return nil, errors.Errorf("no language for %s", path)
}

// Names lists registered languages in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
