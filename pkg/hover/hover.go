// Package hover provides functionality for generating hover information.
package hover

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/atncomplete/pkg/grammar"
	"github.com/walteh/atncomplete/pkg/language"
	"github.com/walteh/atncomplete/pkg/lexer"
	"github.com/walteh/atncomplete/pkg/position"
	"github.com/walteh/atncomplete/pkg/scope"
	"gitlab.com/tozd/go/errors"
)

// HoverInfo represents the information to be displayed in a hover tooltip
type HoverInfo struct {
	// Content is the markdown content to display
	Content []string
	// Position is the token the hover applies to
	Position position.RawPosition
}

// tokenAt finds the token under offset. A cursor right after a token still
// hovers it.
func tokenAt(tokens []lexer.Token, offset int) (int, bool) {
	for i, tok := range tokens {
		if tok.Start <= offset && offset < tok.End {
			return i, true
		}
	}
	for i, tok := range tokens {
		if tok.End == offset {
			return i, true
		}
	}
	return 0, false
}

// BuildHoverResponse describes the token at offset. It returns nil when
// there is nothing to say, such as for punctuation or an undeclared name.
func BuildHoverResponse(ctx context.Context, def *language.Definition, text string, offset int) (*HoverInfo, error) {
	if offset < 0 || offset > len(text) {
		return nil, errors.Errorf("offset %d out of range [0, %d]", offset, len(text))
	}

	tokens, err := def.Tokenizer.Tokenize(ctx, text)
	if err != nil {
		var lexErr *lexer.LexError
		if !errors.As(err, &lexErr) {
			return nil, errors.Errorf("tokenizing: %w", err)
		}
	}

	i, ok := tokenAt(tokens, offset)
	if !ok {
		return nil, nil
	}
	tok := tokens[i]
	pos := position.NewSpanPosition(text, tok.Start, tok.End)

	sym, ok := def.Vocabulary().Symbol(tok.Type)
	if !ok {
		return nil, nil
	}

	switch sym.Class {
	case grammar.ClassKeyword:
		return &HoverInfo{
			Content:  []string{fmt.Sprintf("keyword `%s`", tok.Text)},
			Position: pos,
		}, nil
	case grammar.ClassIdentifier:
	default:
		return nil, nil
	}

	if i > 0 && tokens[i-1].Type == def.Member {
		// members are described by providers, not scopes
		return nil, nil
	}

	root := def.Trees.Build(ctx, tokens, len(text))
	chain := scope.BuildAt(ctx, root, def.Scopes, tok.Start)
	entry, ok := chain.Resolve(tok.Text, tok.Start)
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("name", tok.Text).Int("offset", tok.Start).Msg("hover on undeclared name")
		return nil, nil
	}

	declared, err := position.NewDocument(text).Place(entry.Offset, position.EncodingColumns)
	if err != nil {
		return nil, errors.Errorf("locating declaration: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "```%s\n%s %s\n```", def.Name, entry.Kind, entry.Name)

	return &HoverInfo{
		Content:  []string{sb.String(), fmt.Sprintf("declared at %s", declared)},
		Position: pos,
	}, nil
}
