// Package lexer turns source text into the token sequence the walker and the
// tree builder consume.
package lexer

import (
	"context"
	"fmt"

	plexer "github.com/alecthomas/participle/v2/lexer"
	"github.com/rs/zerolog"
	"github.com/walteh/atncomplete/pkg/grammar"
	"gitlab.com/tozd/go/errors"
)

// Token is a lexical unit. Tokens are never mutated after the tokenizer
// produces them.
type Token struct {
	Type grammar.TokenType
	Text string
	// Start and End are byte offsets; End is exclusive.
	Start int
	End   int
}

func (t Token) String() string {
	return fmt.Sprintf("%q@%d", t.Text, t.Start)
}

// Types projects tokens onto their types.
func Types(tokens []Token) []grammar.TokenType {
	out := make([]grammar.TokenType, len(tokens))
	for i, t := range tokens {
		out[i] = t.Type
	}
	return out
}

// LexError reports an unrecognized character.
type LexError struct {
	Offset  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Message)
}

// Rule is one lexer rule. Rule names must match vocabulary symbol names unless
// the rule is skipped.
type Rule struct {
	Name    string
	Pattern string
	// Skip drops matches from the token stream (whitespace, comments).
	Skip bool
}

// Tokenizer is a compiled lexer bound to a vocabulary. It is safe for
// concurrent use.
type Tokenizer struct {
	def      *plexer.StatefulDefinition
	vocab    *grammar.Vocabulary
	types    map[plexer.TokenType]grammar.TokenType
	skip     map[plexer.TokenType]bool
	keywords map[string]grammar.TokenType
}

// NewTokenizer compiles rules. Identifier matches whose text spells a keyword
// of vocab are retyped to that keyword.
func NewTokenizer(vocab *grammar.Vocabulary, rules []Rule) (*Tokenizer, error) {
	simple := make([]plexer.SimpleRule, 0, len(rules))
	skipNames := make(map[string]bool)
	for _, r := range rules {
		simple = append(simple, plexer.SimpleRule{Name: r.Name, Pattern: r.Pattern})
		if r.Skip {
			skipNames[r.Name] = true
		}
	}

	def, err := plexer.NewSimple(simple)
	if err != nil {
		return nil, errors.Errorf("compiling lexer rules: %w", err)
	}

	t := &Tokenizer{
		def:      def,
		vocab:    vocab,
		types:    make(map[plexer.TokenType]grammar.TokenType),
		skip:     make(map[plexer.TokenType]bool),
		keywords: make(map[string]grammar.TokenType),
	}

	for name, pt := range def.Symbols() {
		if name == "EOF" {
			continue
		}
		if skipNames[name] {
			t.skip[pt] = true
			continue
		}
		gt, ok := vocab.Lookup(name)
		if !ok {
			return nil, errors.Errorf("lexer rule %q has no vocabulary symbol", name)
		}
		t.types[pt] = gt
	}

	for i := 0; i < vocab.Len(); i++ {
		sym, _ := vocab.Symbol(grammar.TokenType(i))
		if sym.Class == grammar.ClassKeyword {
			t.keywords[sym.Display] = sym.Type
		}
	}

	return t, nil
}

// MustTokenizer is like NewTokenizer but panics on error.
func MustTokenizer(vocab *grammar.Vocabulary, rules []Rule) *Tokenizer {
	t, err := NewTokenizer(vocab, rules)
	if err != nil {
		panic(err)
	}
	return t
}

// Tokenize lexes text. On an unrecognized character it returns the tokens
// lexed so far together with a *LexError, so callers can keep working with the
// longest valid prefix.
func (t *Tokenizer) Tokenize(ctx context.Context, text string) ([]Token, error) {
	lex, err := t.def.LexString("", text)
	if err != nil {
		return nil, errors.Errorf("starting lexer: %w", err)
	}

	var tokens []Token
	lastEnd := 0
	for {
		pt, err := lex.Next()
		if err != nil {
			lexErr := &LexError{Offset: lastEnd, Message: err.Error()}
			var perr *plexer.Error
			if errors.As(err, &perr) {
				lexErr.Offset = perr.Pos.Offset
				lexErr.Message = perr.Msg
			}
			zerolog.Ctx(ctx).Debug().
				Int("offset", lexErr.Offset).
				Int("tokens", len(tokens)).
				Str("message", lexErr.Message).
				Msg("tokenizer stopped early")
			return tokens, lexErr
		}
		if pt.EOF() {
			return tokens, nil
		}

		end := pt.Pos.Offset + len(pt.Value)
		lastEnd = end
		if t.skip[pt.Type] {
			continue
		}

		gt, ok := t.types[pt.Type]
		if !ok {
			return tokens, &LexError{Offset: pt.Pos.Offset, Message: fmt.Sprintf("no token type for %q", pt.Value)}
		}
		if sym, _ := t.vocab.Symbol(gt); sym.Class == grammar.ClassIdentifier {
			if kw, ok := t.keywords[pt.Value]; ok {
				gt = kw
			}
		}

		tokens = append(tokens, Token{
			Type:  gt,
			Text:  pt.Value,
			Start: pt.Pos.Offset,
			End:   end,
		})
	}
}
