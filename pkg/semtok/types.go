package semtok

import (
	"github.com/walteh/atncomplete/pkg/position"
)

// TokenType represents the semantic meaning of a token. Values index the
// legend returned by Legend.
type TokenType uint32

const (
	TokenVariable TokenType = iota
	TokenFunction
	TokenParameter
	TokenProperty
	TokenKeyword
	TokenOperator
	TokenString
	TokenNumber
)

var tokenTypeNames = []string{
	TokenVariable:  "variable",
	TokenFunction:  "function",
	TokenParameter: "parameter",
	TokenProperty:  "property",
	TokenKeyword:   "keyword",
	TokenOperator:  "operator",
	TokenString:    "string",
	TokenNumber:    "number",
}

// String returns the protocol name of the token type
func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return "unknown"
}

// TokenModifier is a bit set of additional characteristics
type TokenModifier uint32

const (
	// ModifierNone indicates no special characteristics
	ModifierNone TokenModifier = 0

	// ModifierDeclaration marks the occurrence that declares a name
	ModifierDeclaration TokenModifier = 1 << 0
)

var modifierNames = []string{"declaration"}

// String returns a human-readable representation of the token modifier
func (m TokenModifier) String() string {
	switch m {
	case ModifierNone:
		return "none"
	case ModifierDeclaration:
		return "declaration"
	default:
		return "unknown"
	}
}

// Token represents a semantic token with its type, modifiers, and position
type Token struct {
	Type     TokenType
	Modifier TokenModifier
	Range    position.RawPosition
}

// Legend returns the token type and modifier names, in the order Encode
// refers to them.
func Legend() (types []string, modifiers []string) {
	return append([]string(nil), tokenTypeNames...), append([]string(nil), modifierNames...)
}
