package grammar

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// TokenType identifies a terminal symbol of a grammar.
type TokenType int

// TokenClass tells the assembler how a token type turns into a suggestion.
type TokenClass uint8

const (
	// ClassLiteral is punctuation with a fixed spelling.
	ClassLiteral TokenClass = iota
	// ClassKeyword is a reserved word with a fixed spelling.
	ClassKeyword
	// ClassIdentifier is the generic identifier class, resolved through scopes.
	ClassIdentifier
	// ClassValue covers numbers, strings and other open-ended literals.
	ClassValue
)

func (c TokenClass) String() string {
	switch c {
	case ClassLiteral:
		return "literal"
	case ClassKeyword:
		return "keyword"
	case ClassIdentifier:
		return "identifier"
	case ClassValue:
		return "value"
	default:
		return fmt.Sprintf("TokenClass(%d)", int(c))
	}
}

// Symbol describes a single token type.
type Symbol struct {
	Type TokenType
	// Name matches the lexer rule that produces the token.
	Name string
	// Display is the fixed text for literals and keywords.
	Display string
	Class   TokenClass
}

// Vocabulary is the ordered set of token types a network is labeled with.
type Vocabulary struct {
	symbols []Symbol
	byName  map[string]TokenType
}

// NewVocabulary assigns token types in declaration order, starting at zero.
func NewVocabulary(symbols ...Symbol) (*Vocabulary, error) {
	v := &Vocabulary{
		byName: make(map[string]TokenType, len(symbols)),
	}
	for i, s := range symbols {
		if s.Name == "" {
			return nil, errors.Errorf("symbol %d has no name", i)
		}
		if _, ok := v.byName[s.Name]; ok {
			return nil, errors.Errorf("duplicate symbol %q", s.Name)
		}
		if (s.Class == ClassLiteral || s.Class == ClassKeyword) && s.Display == "" {
			return nil, errors.Errorf("symbol %q needs display text", s.Name)
		}
		s.Type = TokenType(i)
		v.symbols = append(v.symbols, s)
		v.byName[s.Name] = s.Type
	}
	return v, nil
}

// MustVocabulary is like NewVocabulary but panics on error.
func MustVocabulary(symbols ...Symbol) *Vocabulary {
	v, err := NewVocabulary(symbols...)
	if err != nil {
		panic(err)
	}
	return v
}

// Literal is shorthand for a punctuation symbol.
func Literal(name, display string) Symbol {
	return Symbol{Name: name, Display: display, Class: ClassLiteral}
}

// Keyword is shorthand for a reserved word symbol.
func Keyword(name, display string) Symbol {
	return Symbol{Name: name, Display: display, Class: ClassKeyword}
}

// Identifier is shorthand for the identifier class symbol.
func Identifier(name string) Symbol {
	return Symbol{Name: name, Class: ClassIdentifier}
}

// Value is shorthand for an open-ended literal symbol.
func Value(name string) Symbol {
	return Symbol{Name: name, Class: ClassValue}
}

func (v *Vocabulary) Len() int {
	return len(v.symbols)
}

// Lookup returns the token type registered under name.
func (v *Vocabulary) Lookup(name string) (TokenType, bool) {
	t, ok := v.byName[name]
	return t, ok
}

// MustLookup is like Lookup but panics when the name is unknown.
func (v *Vocabulary) MustLookup(name string) TokenType {
	t, ok := v.byName[name]
	if !ok {
		panic(fmt.Sprintf("grammar: unknown token %q", name))
	}
	return t
}

// Symbol returns the description of t.
func (v *Vocabulary) Symbol(t TokenType) (Symbol, bool) {
	if int(t) < 0 || int(t) >= len(v.symbols) {
		return Symbol{}, false
	}
	return v.symbols[t], true
}

// Name returns the rule name of t, or a placeholder for unknown types.
func (v *Vocabulary) Name(t TokenType) string {
	if s, ok := v.Symbol(t); ok {
		return s.Name
	}
	return fmt.Sprintf("<%d>", int(t))
}

// Names maps a slice of token types to their names.
func (v *Vocabulary) Names(types []TokenType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = v.Name(t)
	}
	return out
}
