package completion

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/walteh/atncomplete/pkg/grammar"
	"github.com/walteh/atncomplete/pkg/scope"
	"gitlab.com/tozd/go/errors"
)

// Kind classifies a suggestion.
type Kind uint8

const (
	KindLiteralToken Kind = iota
	KindKeyword
	KindIdentifier
	KindDynamicField
)

var kindNames = map[Kind]string{
	KindLiteralToken: "literal",
	KindKeyword:      "keyword",
	KindIdentifier:   "identifier",
	KindDynamicField: "field",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Suggestion is a single completion candidate.
type Suggestion struct {
	DisplayText string `json:"displayText"`
	Kind        Kind   `json:"kind"`
	Detail      string `json:"detail,omitempty"`
}

// Provider supplies context-specific suggestions, such as the fields of a
// record reached through a member path. path is empty when the cursor is not
// after a member access.
type Provider interface {
	Name() string
	Suggest(ctx context.Context, path []string) ([]Suggestion, error)
}

// Input is everything Assemble needs for one request.
type Input struct {
	Continuations []grammar.TokenType
	Vocabulary    *grammar.Vocabulary
	Chain         scope.Chain
	// Position is the cursor offset used for declare-before-use checks.
	Position int
	// AfterMember is set when the cursor follows a member token, as in a.b.|
	AfterMember bool
	// Path is the identifier path before that member token. It is empty
	// when the receiver is not a plain identifier path, as in f().|
	Path []string
}

// Assemble turns continuations into suggestions. Literal and keyword tokens
// come first in continuation order, then visible identifiers, then dynamic
// fields, each of the latter groups sorted by display text. A display text
// appears at most once; earlier groups win.
//
// Provider failures are logged and skipped. The only error returned is the
// context's.
func Assemble(ctx context.Context, in Input, providers ...Provider) ([]Suggestion, error) {
	seen := make(map[string]struct{})
	var out []Suggestion
	add := func(s Suggestion) {
		if _, ok := seen[s.DisplayText]; ok {
			return
		}
		seen[s.DisplayText] = struct{}{}
		out = append(out, s)
	}

	wantIdents := false
	for _, tt := range in.Continuations {
		sym, ok := in.Vocabulary.Symbol(tt)
		if !ok {
			continue
		}
		switch sym.Class {
		case grammar.ClassLiteral:
			add(Suggestion{DisplayText: sym.Display, Kind: KindLiteralToken})
		case grammar.ClassKeyword:
			add(Suggestion{DisplayText: sym.Display, Kind: KindKeyword})
		case grammar.ClassIdentifier:
			wantIdents = true
		case grammar.ClassValue:
			// numbers, strings and the like have no fixed spelling
		}
	}

	if !wantIdents {
		return out, nil
	}

	if in.AfterMember && len(in.Path) == 0 {
		return out, nil
	}

	if !in.AfterMember {
		for _, e := range in.Chain.Visible(in.Position) {
			add(Suggestion{DisplayText: e.Name, Kind: KindIdentifier, Detail: e.Kind})
		}
	}

	var dynamic []Suggestion
	for _, p := range providers {
		items, err := p.Suggest(ctx, in.Path)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Errorf("assembling suggestions: %w", ctxErr)
		}
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("provider", p.Name()).Strs("path", in.Path).Msg("provider failed")
			continue
		}
		for _, it := range items {
			if it.DisplayText == "" {
				continue
			}
			it.Kind = KindDynamicField
			dynamic = append(dynamic, it)
		}
	}
	sort.SliceStable(dynamic, func(i, j int) bool { return dynamic[i].DisplayText < dynamic[j].DisplayText })
	for _, s := range dynamic {
		add(s)
	}

	return out, nil
}
