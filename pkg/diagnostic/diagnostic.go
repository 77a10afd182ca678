package diagnostic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/atncomplete/pkg/grammar"
	"github.com/walteh/atncomplete/pkg/language"
	"github.com/walteh/atncomplete/pkg/lexer"
	"github.com/walteh/atncomplete/pkg/position"
	"github.com/walteh/atncomplete/pkg/scope"
	"github.com/walteh/atncomplete/pkg/tree"
	"github.com/walteh/atncomplete/pkg/walker"
	"gitlab.com/tozd/go/errors"
)

// Status summarizes a checked document.
type Status uint8

const (
	StatusValid Status = iota
	// StatusSyntaxInvalid means the text does not tokenize or parse.
	StatusSyntaxInvalid
	// StatusSymbolInvalid means the text parses but uses names that are not
	// visible where they are used.
	StatusSymbolInvalid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusSyntaxInvalid:
		return "syntax-invalid"
	case StatusSymbolInvalid:
		return "symbol-invalid"
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Severity represents the severity level of a diagnostic
type Severity string

const (
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "info"
	SeverityHint        Severity = "hint"
)

// Diagnostic represents a single diagnostic message
type Diagnostic struct {
	Message  string
	Location position.RawPosition
	Severity Severity
}

// Outcome is the result of checking one document.
type Outcome struct {
	Status      Status
	Diagnostics []*Diagnostic
}

// Check tokenizes, parses and resolves text, reporting syntax problems before
// symbol problems.
func Check(ctx context.Context, def *language.Definition, text string) (*Outcome, error) {
	logger := zerolog.Ctx(ctx)
	seen := position.NewPositionsSeenMap()
	out := &Outcome{}

	report := func(sev Severity, loc position.RawPosition, format string, args ...any) {
		if !seen.Add(loc) {
			return
		}
		out.Diagnostics = append(out.Diagnostics, &Diagnostic{
			Message:  fmt.Sprintf(format, args...),
			Location: loc,
			Severity: sev,
		})
	}

	tokens, err := def.Tokenizer.Tokenize(ctx, text)
	if err != nil {
		var lexErr *lexer.LexError
		if !errors.As(err, &lexErr) {
			return nil, errors.Errorf("tokenizing: %w", err)
		}
		report(SeverityError, position.NewSpanPosition(text, lexErr.Offset, lexErr.Offset+1), "%s", lexErr.Message)
	}

	root := def.Trees.Build(ctx, tokens, len(text))
	for _, e := range tree.Errors(root) {
		report(SeverityError, position.NewSpanPosition(text, e.Extent.Start, e.Extent.End), "%s", e.Message)
	}

	res, err := walker.New(def.Network).Walk(ctx, lexer.Types(tokens))
	if err != nil {
		return nil, errors.Errorf("walking network: %w", err)
	}
	switch {
	case res.Dead:
		tok := tokens[res.Consumed]
		loc := position.NewSpanPosition(text, tok.Start, tok.End)
		if !seen.Overlaps(loc) {
			report(SeverityError, loc, "unexpected %s", describe(def, tok))
		}
	case !res.Accepting:
		if loc := position.NewSpanPosition(text, len(text), len(text)); !seen.Overlaps(loc) {
			report(SeverityError, loc, "unexpected end of input")
		}
	}

	if len(out.Diagnostics) > 0 {
		out.Status = StatusSyntaxInvalid
		logger.Debug().Int("problems", len(out.Diagnostics)).Msg("syntax invalid")
		return out, nil
	}

	refs := &refVisitor{
		kinds: make(map[tree.Kind]bool, len(def.References)),
		ident: def.Scopes.Identifier,
		index: scope.Build(ctx, root, def.Scopes),
	}
	for _, k := range def.References {
		refs.kinds[k] = true
	}
	root.Accept(refs)

	for _, use := range refs.unresolved {
		report(SeverityError, position.NewSpanPosition(text, use.Start, use.End), "undefined: %s", use.Text)
	}
	if len(out.Diagnostics) > 0 {
		out.Status = StatusSymbolInvalid
	}

	logger.Debug().Stringer("status", out.Status).Int("problems", len(out.Diagnostics)).Msg("checked document")
	return out, nil
}

func describe(def *language.Definition, tok lexer.Token) string {
	return fmt.Sprintf("%q (%s)", tok.Text, def.Vocabulary().Name(tok.Type))
}

// refVisitor collects identifier uses that do not resolve where they appear.
type refVisitor struct {
	kinds      map[tree.Kind]bool
	ident      grammar.TokenType
	index      *scope.Index
	unresolved []lexer.Token
}

func (v *refVisitor) VisitRule(n *tree.RuleNode) {
	if v.kinds[n.Kind] {
		for _, c := range n.Children {
			leaf, ok := c.(*tree.TokenLeaf)
			if !ok || leaf.Token.Type != v.ident {
				continue
			}
			if _, ok := v.index.ChainAt(leaf.Token.Start).Resolve(leaf.Token.Text, leaf.Token.Start); !ok {
				v.unresolved = append(v.unresolved, leaf.Token)
			}
		}
	}
	for _, c := range n.Children {
		c.Accept(v)
	}
}

func (v *refVisitor) VisitToken(*tree.TokenLeaf) {}

func (v *refVisitor) VisitError(*tree.ErrorNode) {}

// Formatter formats diagnostics into different output formats
type Formatter interface {
	Format(path string, doc *position.Document, outcome *Outcome) ([]byte, error)
}

// TextFormatter renders one line per diagnostic, as compilers do.
type TextFormatter struct {
	Encoding position.Encoding
}

func (f *TextFormatter) Format(path string, doc *position.Document, outcome *Outcome) ([]byte, error) {
	var b strings.Builder
	for _, d := range outcome.Diagnostics {
		rng, err := d.Location.GetRange(doc, f.Encoding)
		if err != nil {
			return nil, errors.Errorf("locating %s: %w", d.Location, err)
		}
		fmt.Fprintf(&b, "%s:%s: %s: %s\n", path, rng.Start, d.Severity, d.Message)
	}
	return []byte(b.String()), nil
}

// JSONFormatter renders diagnostics with zero-based UTF-16 ranges, the shape
// editors expect.
type JSONFormatter struct{}

type jsonPlace struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type jsonDiagnostic struct {
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Range    struct {
		Start jsonPlace `json:"start"`
		End   jsonPlace `json:"end"`
	} `json:"range"`
}

type jsonOutcome struct {
	Path        string           `json:"path"`
	Status      Status           `json:"status"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
}

// SeverityCode maps a severity to the protocol's numbering.
func SeverityCode(s Severity) int {
	switch s {
	case SeverityError:
		return 1
	case SeverityWarning:
		return 2
	case SeverityInformation:
		return 3
	}
	return 4
}

func (f *JSONFormatter) Format(path string, doc *position.Document, outcome *Outcome) ([]byte, error) {
	if outcome == nil {
		return nil, errors.Errorf("outcome is nil")
	}

	result := jsonOutcome{Path: path, Status: outcome.Status, Diagnostics: []jsonDiagnostic{}}
	for _, d := range outcome.Diagnostics {
		rng, err := d.Location.GetRange(doc, position.EncodingUTF16)
		if err != nil {
			return nil, errors.Errorf("locating %s: %w", d.Location, err)
		}
		jd := jsonDiagnostic{Severity: SeverityCode(d.Severity), Message: d.Message}
		jd.Range.Start = jsonPlace{Line: rng.Start.Line, Character: rng.Start.Character}
		jd.Range.End = jsonPlace{Line: rng.End.Line, Character: rng.End.Character}
		result.Diagnostics = append(result.Diagnostics, jd)
	}

	return json.Marshal(result)
}
