package position

import (
	"fmt"
)

// Place is a zero-based line and character. What a character counts depends
// on the Encoding it was computed with.
type Place struct {
	Line      int
	Character int
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

type Range struct {
	Start Place
	End   Place
}

// RawPosition represents a position in the source text
type RawPosition struct {
	// Offset is the byte offset in the source text
	Offset int
	// Text is the actual text at this position
	Text string
}

// ID returns a unique identifier for this position based on offset and text
func (p RawPosition) ID() string {
	return fmt.Sprintf("%s@%d", p.Text, p.Offset)
}

// Length returns the length of the text at this position
func (p RawPosition) Length() int {
	return len(p.Text)
}

func NewBasicPosition(text string, offset int) RawPosition {
	return RawPosition{Text: text, Offset: offset}
}

// NewSpanPosition takes the text of [start, end) from fileText.
func NewSpanPosition(fileText string, start, end int) RawPosition {
	start = clamp(start, 0, len(fileText))
	end = clamp(end, start, len(fileText))
	return RawPosition{Text: fileText[start:end], Offset: start}
}

func (p RawPosition) End() int {
	return p.Offset + p.Length()
}

func (p RawPosition) HasRangeOverlapWith(start RawPosition) bool {
	startOffset := start.Offset
	endOffset := startOffset + start.Length()

	posOffset := p.Offset
	posEndOffset := posOffset + p.Length()

	// a zero-length position overlaps if it falls within the other range
	if p.Length() == 0 {
		return posOffset >= startOffset && posOffset <= endOffset
	}
	if start.Length() == 0 {
		return startOffset >= posOffset && startOffset <= posEndOffset
	}

	return startOffset < posEndOffset && endOffset > posOffset
}

// GetRange converts the position to a line/character range in doc.
func (p RawPosition) GetRange(doc *Document, enc Encoding) (Range, error) {
	start, err := doc.Place(p.Offset, enc)
	if err != nil {
		return Range{}, err
	}
	end, err := doc.Place(p.End(), enc)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start, End: end}, nil
}

func (p RawPosition) String() string {
	return fmt.Sprintf("%s@%d", p.Text, p.Offset)
}

type RawPositionArray []RawPosition

func (me RawPositionArray) ToStrings() []string {
	var texts []string
	for _, pos := range me {
		texts = append(texts, pos.String())
	}
	return texts
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
