package lsp

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/atncomplete/pkg/completion"
	"github.com/walteh/atncomplete/pkg/diagnostic"
	"github.com/walteh/atncomplete/pkg/language"
	"github.com/walteh/atncomplete/pkg/position"
	"gitlab.com/tozd/go/errors"
)

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	logger := zerolog.Ctx(s.ctx)
	logger.Debug().Str("uri", params.TextDocument.URI).Msg("document opened")

	doc, err := s.open(params.TextDocument.URI, params.TextDocument.LanguageID, params.TextDocument.Version, params.TextDocument.Text)
	if err != nil {
		logger.Warn().Err(err).Str("uri", params.TextDocument.URI).Msg("not tracking document")
		return nil
	}

	s.documents.Store(doc)
	s.publishDiagnostics(ctx, doc)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	logger := zerolog.Ctx(s.ctx)
	logger.Debug().Str("uri", params.TextDocument.URI).Msg("document changed")

	doc, ok := s.documents.GetNoFallback(params.TextDocument.URI)
	if !ok {
		return errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	// full sync: only the last whole-text change matters
	for i := len(params.ContentChanges) - 1; i >= 0; i-- {
		if change, ok := params.ContentChanges[i].(protocol.TextDocumentContentChangeEventWhole); ok {
			doc = doc.withContent(params.TextDocument.Version, change.Text)
			s.documents.Store(doc)
			s.publishDiagnostics(ctx, doc)
			return nil
		}
	}

	logger.Warn().Str("uri", params.TextDocument.URI).Msg("ignoring incremental change")
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	zerolog.Ctx(s.ctx).Debug().Str("uri", params.TextDocument.URI).Msg("document closed")

	s.documents.Delete(params.TextDocument.URI)

	// clear what we published for it
	if ctx != nil && ctx.Notify != nil {
		ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
			URI:         params.TextDocument.URI,
			Diagnostics: []protocol.Diagnostic{},
		})
	}
	return nil
}

func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	doc, ok := s.documents.GetNoFallback(params.TextDocument.URI)
	if !ok {
		return errors.Errorf("document not found: %s", params.TextDocument.URI)
	}
	if params.Text != nil {
		doc = doc.withContent(doc.Version, *params.Text)
		s.documents.Store(doc)
	}
	s.publishDiagnostics(ctx, doc)
	return nil
}

func (s *Server) textDocumentCompletion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	logger := zerolog.Ctx(s.ctx)

	doc, ok := s.documents.GetNoFallback(params.TextDocument.URI)
	if !ok {
		// not opened: read it from disk for this one request
		disk, found := s.documents.Get(params.TextDocument.URI)
		if !found {
			return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
		}
		opened, err := s.open(params.TextDocument.URI, "", 0, disk.Content)
		if err != nil {
			logger.Debug().Err(err).Str("uri", params.TextDocument.URI).Msg("no completions")
			return nil, nil
		}
		doc = opened
	}

	text := position.NewDocument(doc.Content)
	cursor, err := text.Offset(position.Place{
		Line:      int(params.Position.Line),
		Character: int(params.Position.Character),
	}, position.EncodingUTF16)
	if err != nil {
		return nil, errors.Errorf("converting position: %w", err)
	}

	res, err := doc.Scheduler.Complete(s.ctx, doc.URI, doc.Content, cursor)
	if err != nil {
		if errors.Is(err, completion.ErrSuperseded) {
			return &protocol.CompletionList{IsIncomplete: true, Items: []protocol.CompletionItem{}}, nil
		}
		return nil, errors.Errorf("completing %s: %w", doc.URI, err)
	}

	logger.Debug().
		Str("uri", doc.URI).
		Int("cursor", cursor).
		Int("suggestions", len(res.Suggestions)).
		Bool("degraded", res.Degraded).
		Bool("fallback", res.Fallback).
		Msg("completion")

	return completionList(res), nil
}

func completionList(res *completion.Result) *protocol.CompletionList {
	items := make([]protocol.CompletionItem, 0, len(res.Suggestions))
	for i, sug := range res.Suggestions {
		kind := itemKind(sug.Kind)
		// keep the engine's order; clients sort by label otherwise
		sortText := fmt.Sprintf("%05d", i)
		item := protocol.CompletionItem{
			Label:    sug.DisplayText,
			Kind:     &kind,
			SortText: &sortText,
		}
		if sug.Detail != "" {
			detail := sug.Detail
			item.Detail = &detail
		}
		items = append(items, item)
	}
	return &protocol.CompletionList{
		IsIncomplete: res.Degraded,
		Items:        items,
	}
}

func itemKind(k completion.Kind) protocol.CompletionItemKind {
	switch k {
	case completion.KindKeyword:
		return protocol.CompletionItemKindKeyword
	case completion.KindLiteralToken:
		return protocol.CompletionItemKindOperator
	case completion.KindIdentifier:
		return protocol.CompletionItemKindVariable
	case completion.KindDynamicField:
		return protocol.CompletionItemKindField
	}
	return protocol.CompletionItemKindText
}

func (s *Server) publishDiagnostics(ctx *glsp.Context, doc *Document) {
	logger := zerolog.Ctx(s.ctx)

	diags, err := s.diagnose(doc)
	if err != nil {
		logger.Error().Err(err).Str("uri", doc.URI).Msg("checking document")
		return
	}

	if ctx == nil || ctx.Notify == nil {
		return
	}

	version := protocol.UInteger(doc.Version)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     &version,
		Diagnostics: diags,
	})
}

func (s *Server) diagnose(doc *Document) ([]protocol.Diagnostic, error) {
	outcome, err := diagnostic.Check(s.ctx, doc.Language, doc.Content)
	if err != nil {
		return nil, errors.Errorf("checking document: %w", err)
	}

	text := position.NewDocument(doc.Content)
	source := lsName
	out := make([]protocol.Diagnostic, 0, len(outcome.Diagnostics))
	for _, d := range outcome.Diagnostics {
		rng, err := d.Location.GetRange(text, position.EncodingUTF16)
		if err != nil {
			return nil, errors.Errorf("converting diagnostic range: %w", err)
		}
		severity := protocol.DiagnosticSeverity(diagnostic.SeverityCode(d.Severity))
		out = append(out, protocol.Diagnostic{
			Range:    protocolRange(rng),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return out, nil
}

func protocolRange(r position.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(r.Start.Line), Character: protocol.UInteger(r.Start.Character)},
		End:   protocol.Position{Line: protocol.UInteger(r.End.Line), Character: protocol.UInteger(r.End.Character)},
	}
}

// triggerCharacters collects the member token of every registered language.
func triggerCharacters(registry *language.Registry) []string {
	seen := map[string]bool{}
	for _, name := range registry.Names() {
		def, err := registry.Get(name)
		if err != nil || def.Member == language.NoMember {
			continue
		}
		if sym, ok := def.Vocabulary().Symbol(def.Member); ok && sym.Display != "" {
			seen[sym.Display] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
