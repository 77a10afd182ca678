package position_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/atncomplete/pkg/position"
)

func TestPlace(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		offset int
		enc    position.Encoding
		want   position.Place
	}{
		{name: "empty text", text: "", offset: 0, want: position.Place{Line: 0, Character: 0}},
		{name: "single line", text: "Hello, World!", offset: 7, want: position.Place{Line: 0, Character: 7}},
		{name: "second line", text: "Hello\nWorld\nTest", offset: 8, want: position.Place{Line: 1, Character: 2}},
		{name: "start of line", text: "Hello\nWorld", offset: 6, want: position.Place{Line: 1, Character: 0}},
		{name: "end of text", text: "ab\ncd", offset: 5, want: position.Place{Line: 1, Character: 2}},
		{name: "bytes count every byte", text: "é = 1", offset: 3, enc: position.EncodingBytes, want: position.Place{Character: 3}},
		{name: "utf-16 counts é once", text: "é = 1", offset: 3, enc: position.EncodingUTF16, want: position.Place{Character: 2}},
		{name: "utf-16 counts astral runes twice", text: "😀x", offset: 5, enc: position.EncodingUTF16, want: position.Place{Character: 3}},
		{name: "columns count a flag once", text: "🇬🇧x", offset: 9, enc: position.EncodingColumns, want: position.Place{Character: 2}},
		{name: "columns expand tabs", text: "\tx", offset: 2, enc: position.EncodingColumns, want: position.Place{Character: 5}},
		{name: "columns use tab stops", text: "ab\tx", offset: 4, enc: position.EncodingColumns, want: position.Place{Character: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := position.NewDocument(tt.text).Place(tt.offset, tt.enc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOffset(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		place position.Place
		enc   position.Encoding
		want  int
	}{
		{name: "first line", text: "var x = 1;\nvar y;", place: position.Place{Line: 0, Character: 4}, want: 4},
		{name: "second line", text: "var x = 1;\nvar y;", place: position.Place{Line: 1, Character: 4}, want: 15},
		{name: "past the line end clamps", text: "ab\ncd", place: position.Place{Line: 0, Character: 40}, want: 2},
		{name: "crlf line end", text: "ab\r\ncd", place: position.Place{Line: 0, Character: 9}, want: 2},
		{name: "utf-16", text: "é = 1", place: position.Place{Character: 2}, enc: position.EncodingUTF16, want: 3},
		{name: "inside a surrogate pair", text: "😀x", place: position.Place{Character: 1}, enc: position.EncodingUTF16, want: 0},
		{name: "after a surrogate pair", text: "😀x", place: position.Place{Character: 2}, enc: position.EncodingUTF16, want: 4},
		{name: "columns after a flag", text: "🇬🇧x", place: position.Place{Character: 1}, enc: position.EncodingColumns, want: 8},
		{name: "columns after a tab", text: "\tx", place: position.Place{Character: 4}, enc: position.EncodingColumns, want: 1},
		{name: "columns inside a tab", text: "\tx", place: position.Place{Character: 2}, enc: position.EncodingColumns, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := position.NewDocument(tt.text).Offset(tt.place, tt.enc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	text := "func f(a) {\n\tvar é = \"😀\";\n}\n"
	for _, enc := range []position.Encoding{position.EncodingBytes, position.EncodingUTF16, position.EncodingColumns} {
		doc := position.NewDocument(text, position.WithTabWidth(8))
		for _, off := range []int{0, 5, 12, 13, 19, 23, 27, len(text)} {
			p, err := doc.Place(off, enc)
			require.NoError(t, err)
			back, err := doc.Offset(p, enc)
			require.NoError(t, err)
			assert.Equal(t, off, back, "%s offset %d", enc, off)
		}
	}
}

func TestOutOfRange(t *testing.T) {
	doc := position.NewDocument("ab\ncd")

	_, err := doc.Place(-1, position.EncodingBytes)
	require.Error(t, err)
	_, err = doc.Place(6, position.EncodingBytes)
	require.Error(t, err)
	_, err = doc.Offset(position.Place{Line: 2}, position.EncodingBytes)
	require.Error(t, err)
	_, err = doc.Offset(position.Place{Line: 0, Character: -1}, position.EncodingBytes)
	require.Error(t, err)
	assert.Equal(t, 2, doc.LineCount())
}

func TestRawPosition(t *testing.T) {
	text := "var x = 1;\nvar yy = x;"
	doc := position.NewDocument(text)

	pos := position.NewSpanPosition(text, 15, 17)
	assert.Equal(t, "yy", pos.Text)
	assert.Equal(t, "yy@15", pos.ID())

	rng, err := pos.GetRange(doc, position.EncodingBytes)
	require.NoError(t, err)
	assert.Equal(t, position.Range{Start: position.Place{Line: 1, Character: 4}, End: position.Place{Line: 1, Character: 6}}, rng)

	assert.True(t, pos.HasRangeOverlapWith(position.NewBasicPosition("y", 16)))
	assert.True(t, pos.HasRangeOverlapWith(position.NewBasicPosition("", 17)))
	assert.False(t, pos.HasRangeOverlapWith(position.NewBasicPosition("=", 18)))

	clamped := position.NewSpanPosition(text, 20, 99)
	assert.Equal(t, "x;", clamped.Text)
}

func TestTabWidthFor(t *testing.T) {
	dir := t.TempDir()
	cfg := "root = true\n\n[*.blk]\nindent_style = tab\ntab_width = 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".editorconfig"), []byte(cfg), 0o644))

	ctx := context.Background()
	assert.Equal(t, 2, position.TabWidthFor(ctx, filepath.Join(dir, "main.blk")))
	assert.Equal(t, position.DefaultTabWidth, position.TabWidthFor(ctx, filepath.Join(dir, "main.txt")))
}
