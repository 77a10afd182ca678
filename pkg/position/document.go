package position

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/apparentlymart/go-textseg/v13/textseg"
	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Encoding decides what a Place's Character counts.
type Encoding uint8

const (
	// EncodingBytes counts UTF-8 bytes.
	EncodingBytes Encoding = iota
	// EncodingUTF16 counts UTF-16 code units, as the language server protocol does.
	EncodingUTF16
	// EncodingColumns counts grapheme clusters, with tabs advancing to the
	// next tab stop. This is what a user sees in a terminal.
	EncodingColumns
)

func (e Encoding) String() string {
	switch e {
	case EncodingBytes:
		return "bytes"
	case EncodingUTF16:
		return "utf-16"
	case EncodingColumns:
		return "columns"
	}
	return "unknown"
}

const DefaultTabWidth = 4

// Document indexes the line starts of a text so positions can be converted
// in both directions.
type Document struct {
	text       string
	lineStarts []int
	tabWidth   int
}

type DocumentOption func(*Document)

func WithTabWidth(n int) DocumentOption {
	return func(d *Document) {
		if n > 0 {
			d.tabWidth = n
		}
	}
}

func NewDocument(text string, opts ...DocumentOption) *Document {
	d := &Document{
		text:       text,
		lineStarts: []int{0},
		tabWidth:   DefaultTabWidth,
	}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			d.lineStarts = append(d.lineStarts, i+1)
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Document) Text() string {
	return d.text
}

func (d *Document) LineCount() int {
	return len(d.lineStarts)
}

// line returns the text of line i without its terminator.
func (d *Document) line(i int) string {
	end := len(d.text)
	if i+1 < len(d.lineStarts) {
		end = d.lineStarts[i+1] - 1
	}
	return strings.TrimSuffix(d.text[d.lineStarts[i]:end], "\r")
}

// Offset converts p to a byte offset. A character past the end of its line
// is clamped to the line end.
func (d *Document) Offset(p Place, enc Encoding) (int, error) {
	if p.Line < 0 || p.Line >= len(d.lineStarts) {
		return 0, errors.Errorf("line %d out of range [0, %d)", p.Line, len(d.lineStarts))
	}
	if p.Character < 0 {
		return 0, errors.Errorf("character %d is negative", p.Character)
	}

	line := d.line(p.Line)
	pos, col := 0, 0
	d.units(line, enc, col, func(size, width int) bool {
		if col >= p.Character || col+width > p.Character {
			return false
		}
		col += width
		pos += size
		return true
	})
	return d.lineStarts[p.Line] + pos, nil
}

// Place converts a byte offset to a line and character.
func (d *Document) Place(offset int, enc Encoding) (Place, error) {
	if offset < 0 || offset > len(d.text) {
		return Place{}, errors.Errorf("offset %d out of range [0, %d]", offset, len(d.text))
	}
	line := sort.Search(len(d.lineStarts), func(i int) bool { return d.lineStarts[i] > offset }) - 1

	col := 0
	d.units(d.text[d.lineStarts[line]:offset], enc, 0, func(_, width int) bool {
		col += width
		return true
	})
	return Place{Line: line, Character: col}, nil
}

// Range converts the byte span [start, end).
func (d *Document) Range(start, end int, enc Encoding) (Range, error) {
	return NewSpanPosition(d.text, start, end).GetRange(d, enc)
}

// units walks s one unit at a time, reporting its size in bytes and its width
// in enc. col is the column s starts at, for tab stops.
func (d *Document) units(s string, enc Encoding, col int, fn func(size, width int) bool) {
	switch enc {
	case EncodingUTF16:
		for i := 0; i < len(s); {
			r, size := utf8.DecodeRuneInString(s[i:])
			width := utf16.RuneLen(r)
			if width < 1 {
				width = 1
			}
			if !fn(size, width) {
				return
			}
			i += size
		}
	case EncodingColumns:
		data := []byte(s)
		for len(data) > 0 {
			size, cluster, err := textseg.ScanGraphemeClusters(data, true)
			if err != nil || size == 0 {
				size, cluster = 1, data[:1]
			}
			width := 1
			if string(cluster) == "\t" {
				width = d.tabWidth - col%d.tabWidth
			}
			if !fn(size, width) {
				return
			}
			col += width
			data = data[size:]
		}
	default:
		for i := 0; i < len(s); i++ {
			if !fn(1, 1) {
				return
			}
		}
	}
}

// TabWidthFor returns the tab width .editorconfig files assign to path, or
// DefaultTabWidth.
func TabWidthFor(ctx context.Context, path string) int {
	def, err := editorconfig.GetDefinitionForFilename(path)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("reading editorconfig")
		return DefaultTabWidth
	}
	if def.TabWidth > 0 {
		return def.TabWidth
	}
	if n, err := strconv.Atoi(def.IndentSize); err == nil && n > 0 {
		return n
	}
	return DefaultTabWidth
}
