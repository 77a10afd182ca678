package lsp

import (
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/atncomplete/pkg/hover"
	"github.com/walteh/atncomplete/pkg/position"
	"github.com/walteh/atncomplete/pkg/semtok"
	"gitlab.com/tozd/go/errors"
)

func (s *Server) textDocumentHover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.documents.GetNoFallback(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	text := position.NewDocument(doc.Content)
	offset, err := text.Offset(position.Place{
		Line:      int(params.Position.Line),
		Character: int(params.Position.Character),
	}, position.EncodingUTF16)
	if err != nil {
		return nil, errors.Errorf("converting position: %w", err)
	}

	info, err := hover.BuildHoverResponse(s.ctx, doc.Language, doc.Content, offset)
	if err != nil {
		return nil, errors.Errorf("building hover: %w", err)
	}
	if info == nil {
		return nil, nil
	}

	rng, err := info.Position.GetRange(text, position.EncodingUTF16)
	if err != nil {
		return nil, errors.Errorf("converting hover range: %w", err)
	}
	pr := protocolRange(rng)

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.Join(info.Content, "\n\n"),
		},
		Range: &pr,
	}, nil
}

func (s *Server) textDocumentSemanticTokensFull(_ *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	doc, ok := s.documents.GetNoFallback(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	tokens, err := semtok.GetTokensForText(s.ctx, doc.Language, doc.Content)
	if err != nil {
		return nil, errors.Errorf("classifying tokens: %w", err)
	}

	data, err := semtok.Encode(position.NewDocument(doc.Content), tokens)
	if err != nil {
		return nil, errors.Errorf("encoding tokens: %w", err)
	}

	out := make([]protocol.UInteger, len(data))
	for i, v := range data {
		out[i] = protocol.UInteger(v)
	}
	return &protocol.SemanticTokens{Data: out}, nil
}
