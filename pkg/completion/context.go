package completion

import (
	"github.com/walteh/atncomplete/pkg/grammar"
	"github.com/walteh/atncomplete/pkg/lexer"
)

// CursorContext holds information about where the cursor sits in the token
// stream.
type CursorContext struct {
	// Index is the number of tokens the walker should consume: every token
	// that ends at or before the cursor, minus a word still being typed.
	Index int
	// Prefix is the part of the word being typed that lies before the
	// cursor. Clients use it to filter suggestions.
	Prefix string
	// AfterMember reports that the last consumed token is a member token.
	AfterMember bool
	// Path is the identifier path before that member token.
	Path []string
	// InValue reports that the cursor sits strictly inside a value token,
	// such as a string literal. Nothing is suggested there.
	InValue bool
}

// NewCursorContext locates cursor among tokens. A word token (identifier or
// keyword) touching the cursor is treated as in progress and left out, so
// "va|" completes like "|" with prefix "va".
func NewCursorContext(tokens []lexer.Token, cursor int, vocab *grammar.Vocabulary, member grammar.TokenType) CursorContext {
	var c CursorContext

	for c.Index < len(tokens) && tokens[c.Index].End <= cursor {
		c.Index++
	}

	if c.Index < len(tokens) {
		// a token straddling the cursor is never complete
		if tok := tokens[c.Index]; tok.Start < cursor {
			switch {
			case isWord(vocab, tok.Type):
				c.Prefix = tok.Text[:cursor-tok.Start]
			case isValue(vocab, tok.Type):
				c.InValue = true
			}
		}
	}
	if c.Prefix == "" && c.Index > 0 {
		if tok := tokens[c.Index-1]; tok.End == cursor && isWord(vocab, tok.Type) {
			c.Index--
			c.Prefix = tok.Text
		}
	}

	c.AfterMember, c.Path = memberPath(tokens[:c.Index], vocab, member)
	return c
}

func isValue(vocab *grammar.Vocabulary, tt grammar.TokenType) bool {
	sym, ok := vocab.Symbol(tt)
	return ok && sym.Class == grammar.ClassValue
}

func isWord(vocab *grammar.Vocabulary, tt grammar.TokenType) bool {
	sym, ok := vocab.Symbol(tt)
	if !ok {
		return false
	}
	return sym.Class == grammar.ClassIdentifier || sym.Class == grammar.ClassKeyword
}

// memberPath reads an identifier path such as a.b. backwards from the end of
// consumed. The path is nil when the receiver is anything else, such as a call.
func memberPath(consumed []lexer.Token, vocab *grammar.Vocabulary, member grammar.TokenType) (bool, []string) {
	n := len(consumed)
	if n == 0 || consumed[n-1].Type != member {
		return false, nil
	}

	var rev []string
	i := n - 1
	for i >= 0 && consumed[i].Type == member {
		if i == 0 {
			return true, nil
		}
		prev := consumed[i-1]
		if sym, _ := vocab.Symbol(prev.Type); sym.Class != grammar.ClassIdentifier {
			return true, nil
		}
		rev = append(rev, prev.Text)
		i -= 2
	}

	path := make([]string, len(rev))
	for j, seg := range rev {
		path[len(rev)-1-j] = seg
	}
	return true, path
}
