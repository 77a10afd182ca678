package semtok

import (
	"context"
	"strings"
	"unicode/utf16"

	"github.com/rs/zerolog"
	"github.com/walteh/atncomplete/pkg/grammar"
	"github.com/walteh/atncomplete/pkg/language"
	"github.com/walteh/atncomplete/pkg/lexer"
	"github.com/walteh/atncomplete/pkg/position"
	"github.com/walteh/atncomplete/pkg/scope"
	"github.com/walteh/atncomplete/pkg/tree"
	"gitlab.com/tozd/go/errors"
)

// GetTokensForText classifies every token of text. Text after a lexical
// error is left unclassified.
func GetTokensForText(ctx context.Context, def *language.Definition, text string) ([]Token, error) {
	tokens, err := def.Tokenizer.Tokenize(ctx, text)
	if err != nil {
		var lexErr *lexer.LexError
		if !errors.As(err, &lexErr) {
			return nil, errors.Errorf("tokenizing: %w", err)
		}
		zerolog.Ctx(ctx).Debug().Err(lexErr).Msg("classifying the tokenized prefix")
	}

	root := def.Trees.Build(ctx, tokens, len(text))
	index := scope.Build(ctx, root, def.Scopes)

	// declaring occurrences, by start offset
	declared := map[int]string{}
	tree.Inspect(root, func(n tree.Node) bool {
		rule, ok := n.(*tree.RuleNode)
		if !ok {
			return true
		}
		kind, ok := def.Scopes.Declarations[rule.Kind]
		if !ok {
			return true
		}
		for _, c := range rule.Children {
			if leaf, ok := c.(*tree.TokenLeaf); ok && leaf.Token.Type == def.Scopes.Identifier {
				declared[leaf.Token.Start] = kind
				break
			}
		}
		return true
	})

	vocab := def.Vocabulary()
	out := make([]Token, 0, len(tokens))
	for i, tok := range tokens {
		sym, ok := vocab.Symbol(tok.Type)
		if !ok {
			continue
		}
		t := Token{Range: position.NewSpanPosition(text, tok.Start, tok.End)}

		switch sym.Class {
		case grammar.ClassKeyword:
			t.Type = TokenKeyword
		case grammar.ClassLiteral:
			t.Type = TokenOperator
		case grammar.ClassValue:
			t.Type = TokenNumber
			if tok.Text != "" && strings.ContainsAny(tok.Text[:1], "\"'`") {
				t.Type = TokenString
			}
		case grammar.ClassIdentifier:
			switch {
			case i > 0 && tokens[i-1].Type == def.Member:
				t.Type = TokenProperty
			case declared[tok.Start] != "":
				t.Type = typeOfKind(declared[tok.Start])
				t.Modifier = ModifierDeclaration
			default:
				t.Type = TokenVariable
				if e, ok := index.ChainAt(tok.Start).Resolve(tok.Text, tok.Start); ok {
					t.Type = typeOfKind(e.Kind)
				}
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// GetTokensForRange returns the tokens overlapping rng.
func GetTokensForRange(ctx context.Context, def *language.Definition, text string, rng position.RawPosition) ([]Token, error) {
	all, err := GetTokensForText(ctx, def, text)
	if err != nil {
		return nil, err
	}
	var out []Token
	for _, t := range all {
		if t.Range.HasRangeOverlapWith(rng) {
			out = append(out, t)
		}
	}
	return out, nil
}

func typeOfKind(kind string) TokenType {
	switch kind {
	case "function":
		return TokenFunction
	case "parameter":
		return TokenParameter
	}
	return TokenVariable
}

// Encode converts tokens, in document order, to the protocol's relative
// encoding: delta line, delta start, length, type and modifiers per token,
// counted in UTF-16 units. A token spanning lines is cut at its first line end.
func Encode(doc *position.Document, tokens []Token) ([]uint32, error) {
	data := make([]uint32, 0, len(tokens)*5)
	prevLine, prevChar := 0, 0
	for _, t := range tokens {
		start, err := doc.Place(t.Range.Offset, position.EncodingUTF16)
		if err != nil {
			return nil, errors.Errorf("locating %s: %w", t.Range, err)
		}

		text := t.Range.Text
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i]
		}
		length := 0
		for _, r := range text {
			length += utf16.RuneLen(r)
		}

		deltaLine := start.Line - prevLine
		deltaChar := start.Character
		if deltaLine == 0 {
			deltaChar -= prevChar
		}
		data = append(data,
			uint32(deltaLine),
			uint32(deltaChar),
			uint32(length),
			uint32(t.Type),
			uint32(t.Modifier),
		)
		prevLine, prevChar = start.Line, start.Character
	}
	return data, nil
}
