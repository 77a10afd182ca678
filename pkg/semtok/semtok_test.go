package semtok_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/atncomplete/pkg/lang/blocks"
	"github.com/walteh/atncomplete/pkg/position"
	"github.com/walteh/atncomplete/pkg/semtok"
)

type classified struct {
	Text     string
	Type     string
	Modifier string
}

func classify(t *testing.T, text string) []classified {
	t.Helper()
	tokens, err := semtok.GetTokensForText(context.Background(), blocks.Language(), text)
	require.NoError(t, err)
	out := make([]classified, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, classified{Text: tok.Range.Text, Type: tok.Type.String(), Modifier: tok.Modifier.String()})
	}
	return out
}

func TestGetTokensForText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []classified
	}{
		{
			name:  "declaration and use",
			input: "var a = 1;\na;",
			expected: []classified{
				{"var", "keyword", "none"},
				{"a", "variable", "declaration"},
				{"=", "operator", "none"},
				{"1", "number", "none"},
				{";", "operator", "none"},
				{"a", "variable", "none"},
				{";", "operator", "none"},
			},
		},
		{
			name:  "functions parameters and members",
			input: "func add(p) {\n  return p.size + add(\"x\");\n}",
			expected: []classified{
				{"func", "keyword", "none"},
				{"add", "function", "declaration"},
				{"(", "operator", "none"},
				{"p", "parameter", "declaration"},
				{")", "operator", "none"},
				{"{", "operator", "none"},
				{"return", "keyword", "none"},
				{"p", "parameter", "none"},
				{".", "operator", "none"},
				{"size", "property", "none"},
				{"+", "operator", "none"},
				{"add", "function", "none"},
				{"(", "operator", "none"},
				{"\"x\"", "string", "none"},
				{")", "operator", "none"},
				{";", "operator", "none"},
				{"}", "operator", "none"},
			},
		},
		{
			name:  "unresolved names are variables",
			input: "later;",
			expected: []classified{
				{"later", "variable", "none"},
				{";", "operator", "none"},
			},
		},
		{
			name:  "lexical error keeps the prefix",
			input: "var a = 1; @",
			expected: []classified{
				{"var", "keyword", "none"},
				{"a", "variable", "declaration"},
				{"=", "operator", "none"},
				{"1", "number", "none"},
				{";", "operator", "none"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classify(t, tt.input))
		})
	}
}

func TestGetTokensForRange(t *testing.T) {
	text := "var a = 1;\nvar b = a;"
	tokens, err := semtok.GetTokensForRange(context.Background(), blocks.Language(), text, position.NewSpanPosition(text, 11, 16))
	require.NoError(t, err)

	var texts []string
	for _, tok := range tokens {
		texts = append(texts, tok.Range.Text)
	}
	assert.Equal(t, []string{"var", "b"}, texts)
}

func TestEncode(t *testing.T) {
	text := "var a = 1;\na;"
	tokens, err := semtok.GetTokensForText(context.Background(), blocks.Language(), text)
	require.NoError(t, err)

	data, err := semtok.Encode(position.NewDocument(text), tokens)
	require.NoError(t, err)

	kw, op, num, v := uint32(semtok.TokenKeyword), uint32(semtok.TokenOperator), uint32(semtok.TokenNumber), uint32(semtok.TokenVariable)
	decl := uint32(semtok.ModifierDeclaration)
	assert.Equal(t, []uint32{
		0, 0, 3, kw, 0,
		0, 4, 1, v, decl,
		0, 2, 1, op, 0,
		0, 2, 1, num, 0,
		0, 1, 1, op, 0,
		1, 0, 1, v, 0,
		0, 1, 1, op, 0,
	}, data)
}

func TestLegend(t *testing.T) {
	types, modifiers := semtok.Legend()
	assert.Equal(t, "variable", types[semtok.TokenVariable])
	assert.Equal(t, "number", types[semtok.TokenNumber])
	assert.Equal(t, []string{"declaration"}, modifiers)
}
