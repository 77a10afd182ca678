package completion

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/atncomplete/pkg/language"
	"github.com/walteh/atncomplete/pkg/lexer"
	"github.com/walteh/atncomplete/pkg/scope"
	"github.com/walteh/atncomplete/pkg/walker"
	"gitlab.com/tozd/go/errors"
)

// Result is the outcome of one completion request.
type Result struct {
	Suggestions []Suggestion `json:"suggestions"`
	// Degraded reports that the walk ran out of budget, so Suggestions may be
	// incomplete.
	Degraded bool `json:"degraded,omitempty"`
	// Fallback reports that the text before the cursor is not a valid prefix.
	// Suggestions then describe the longest prefix that is.
	Fallback bool `json:"fallback,omitempty"`
	// ValidTokens is the number of tokens the suggestions are computed after.
	ValidTokens int `json:"validTokens"`
	// Prefix is the word being typed at the cursor.
	Prefix string `json:"prefix,omitempty"`
	// LexErr is set when the text could not be fully tokenized.
	LexErr *lexer.LexError `json:"-"`
}

type EngineOption func(*Engine)

func WithBudget(b walker.Budget) EngineOption {
	return func(e *Engine) {
		e.budget = b
	}
}

func WithProviders(p ...Provider) EngineOption {
	return func(e *Engine) {
		e.providers = append(e.providers, p...)
	}
}

// Engine computes completions for one language. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	def       *language.Definition
	budget    walker.Budget
	walker    *walker.Walker
	providers []Provider
}

func NewEngine(def *language.Definition, opts ...EngineOption) *Engine {
	e := &Engine{
		def:    def,
		budget: walker.DefaultBudget(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.walker = walker.New(def.Network, walker.WithBudget(e.budget))
	return e
}

func (e *Engine) Language() *language.Definition {
	return e.def
}

// Complete returns suggestions for cursor, a byte offset into text.
func (e *Engine) Complete(ctx context.Context, text string, cursor int) (*Result, error) {
	if cursor < 0 || cursor > len(text) {
		return nil, errors.Errorf("cursor %d out of range [0, %d]", cursor, len(text))
	}

	logger := zerolog.Ctx(ctx).With().Str("language", e.def.Name).Int("cursor", cursor).Logger()
	ctx = logger.WithContext(ctx)

	res := &Result{}

	tokens, err := e.def.Tokenizer.Tokenize(ctx, text)
	if err != nil {
		var lexErr *lexer.LexError
		if !errors.As(err, &lexErr) {
			return nil, errors.Errorf("tokenizing: %w", err)
		}
		res.LexErr = lexErr
	}

	vocab := e.def.Vocabulary()
	cc := NewCursorContext(tokens, cursor, vocab, e.def.Member)
	res.Prefix = cc.Prefix
	if cc.InValue {
		logger.Debug().Msg("cursor inside a value token")
		res.Suggestions = []Suggestion{}
		res.ValidTokens = cc.Index
		return res, nil
	}

	root := e.def.Trees.Build(ctx, tokens, len(text))
	chain := scope.BuildAt(ctx, root, e.def.Scopes, cursor)

	types := lexer.Types(tokens[:cc.Index])
	walk, err := e.walker.Walk(ctx, types)
	if err != nil {
		return nil, errors.Errorf("walking network: %w", err)
	}
	if walk.Dead {
		logger.Debug().Int("valid_tokens", walk.Consumed).Int("tokens", cc.Index).Msg("prefix is invalid, falling back")
		res.Fallback = true
		types = types[:walk.Consumed]
		// the path is read from the shorter prefix
		cc.AfterMember, cc.Path = memberPath(tokens[:walk.Consumed], vocab, e.def.Member)
		if walk, err = e.walker.Walk(ctx, types); err != nil {
			return nil, errors.Errorf("walking network: %w", err)
		}
	}
	res.Degraded = walk.Degraded
	res.ValidTokens = len(types)

	res.Suggestions, err = Assemble(ctx, Input{
		Continuations: walk.Continuations,
		Vocabulary:    vocab,
		Chain:         chain,
		Position:      cursor,
		AfterMember:   cc.AfterMember,
		Path:          cc.Path,
	}, e.providers...)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Int("tokens", len(tokens)).
		Int("valid_tokens", res.ValidTokens).
		Int("continuations", len(walk.Continuations)).
		Int("suggestions", len(res.Suggestions)).
		Bool("degraded", res.Degraded).
		Bool("fallback", res.Fallback).
		Msg("completed")

	return res, nil
}
