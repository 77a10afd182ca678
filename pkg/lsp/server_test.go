package lsp

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/walteh/atncomplete/pkg/lang"
)

type notification struct {
	method string
	params any
}

type recorder struct {
	mu    sync.Mutex
	notes []notification
}

func (r *recorder) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.notes = append(r.notes, notification{method: method, params: params})
		},
	}
}

func (r *recorder) lastDiagnostics(t *testing.T) protocol.PublishDiagnosticsParams {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.notes)
	last := r.notes[len(r.notes)-1]
	require.Equal(t, protocol.ServerTextDocumentPublishDiagnostics, last.method)
	params, ok := last.params.(protocol.PublishDiagnosticsParams)
	require.True(t, ok)
	return params
}

const userYAML = `
user:
  name: ada
  email: ada@example.com
`

func newTestServer(t *testing.T, fs afero.Fs) *Server {
	t.Helper()
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	registry, err := lang.Builtin(ctx)
	require.NoError(t, err)
	return NewServer(ctx, "test", registry, fs)
}

func initialize(t *testing.T, s *Server, root string) protocol.InitializeResult {
	t.Helper()
	rootURI := "file://" + root
	res, err := s.initialize(nil, &protocol.InitializeParams{RootURI: &rootURI})
	require.NoError(t, err)
	result, ok := res.(protocol.InitializeResult)
	require.True(t, ok)
	return result
}

func completionLabels(t *testing.T, res any) (*protocol.CompletionList, []string) {
	t.Helper()
	list, ok := res.(*protocol.CompletionList)
	require.True(t, ok, "got %T", res)
	labels := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		labels = append(labels, item.Label)
	}
	return list, labels
}

func TestInitialize(t *testing.T) {
	s := newTestServer(t, afero.NewMemMapFs())
	result := initialize(t, s, "/work")

	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, lsName, result.ServerInfo.Name)
	require.NotNil(t, result.Capabilities.CompletionProvider)
	assert.Equal(t, []string{"."}, result.Capabilities.CompletionProvider.TriggerCharacters)
	assert.Equal(t, "/work", s.workspace)
}

func TestCompletionLifecycle(t *testing.T) {
	s := newTestServer(t, afero.NewMemMapFs())
	initialize(t, s, "/work")
	rec := &recorder{}
	uri := "file:///work/main.blk"

	require.NoError(t, s.textDocumentDidOpen(rec.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "blocks", Version: 1, Text: "var total = 1;\n"},
	}))
	assert.Empty(t, rec.lastDiagnostics(t).Diagnostics)
	assert.Equal(t, 1, s.documents.Len())

	require.NoError(t, s.textDocumentDidChange(rec.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "var total = 1;\nvar x = t"}},
	}))

	diags := rec.lastDiagnostics(t)
	require.NotNil(t, diags.Version)
	assert.EqualValues(t, 2, *diags.Version)
	assert.NotEmpty(t, diags.Diagnostics, "a missing semicolon is reported")

	res, err := s.textDocumentCompletion(nil, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 1, Character: 9},
		},
	})
	require.NoError(t, err)
	list, labels := completionLabels(t, res)
	assert.False(t, list.IsIncomplete)
	assert.Contains(t, labels, "total")
	assert.NotContains(t, labels, "t")

	for i, item := range list.Items {
		require.NotNil(t, item.SortText)
		if i > 0 {
			assert.Less(t, *list.Items[i-1].SortText, *item.SortText)
		}
	}

	require.NoError(t, s.textDocumentDidClose(rec.context(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
	assert.Equal(t, 0, s.documents.Len())
	assert.Empty(t, rec.lastDiagnostics(t).Diagnostics)
}

func TestCompletionUsesConfiguredProviders(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/.atncomplete.yaml", []byte("providers:\n  - kind: sample\n    path: data/user.yaml\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/data/user.yaml", []byte(userYAML), 0o644))

	s := newTestServer(t, fs)
	initialize(t, s, "/work")
	uri := "file:///work/main.blk"
	text := "var u = user."

	require.NoError(t, s.textDocumentDidOpen(nil, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "blocks", Version: 1, Text: text},
	}))

	res, err := s.textDocumentCompletion(nil, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: protocol.UInteger(len(text))},
		},
	})
	require.NoError(t, err)
	list, labels := completionLabels(t, res)
	assert.Equal(t, []string{"email", "name"}, labels)
	require.NotNil(t, list.Items[0].Kind)
	assert.Equal(t, protocol.CompletionItemKindField, *list.Items[0].Kind)
	require.NotNil(t, list.Items[0].Detail)
	assert.Equal(t, "string", *list.Items[0].Detail)
}

func TestCompletionReadsUnopenedDocuments(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/main.blk", []byte("var abc = 1;\nvar d = "), 0o644))

	s := newTestServer(t, fs)
	initialize(t, s, "/work")

	res, err := s.textDocumentCompletion(nil, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///work/main.blk"},
			Position:     protocol.Position{Line: 1, Character: 8},
		},
	})
	require.NoError(t, err)
	_, labels := completionLabels(t, res)
	assert.Contains(t, labels, "abc")
	assert.Equal(t, 0, s.documents.Len())

	_, err = s.textDocumentCompletion(nil, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///work/missing.blk"},
		},
	})
	require.Error(t, err)
}

func TestDidOpenUnknownLanguage(t *testing.T) {
	s := newTestServer(t, afero.NewMemMapFs())
	initialize(t, s, "/work")
	rec := &recorder{}

	require.NoError(t, s.textDocumentDidOpen(rec.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: "file:///work/readme.md", LanguageID: "markdown", Text: "# hi"},
	}))
	assert.Equal(t, 0, s.documents.Len())
	assert.Empty(t, rec.notes)
}

func TestDidChangeUnknownDocument(t *testing.T) {
	s := newTestServer(t, afero.NewMemMapFs())
	err := s.textDocumentDidChange(nil, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///nope.blk"},
		},
	})
	require.Error(t, err)
}

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "file:///work/main.blk", want: "file:///work/main.blk"},
		{in: "file:/work/./main.blk", want: "file:///work/main.blk"},
		{in: "untitled:Untitled-1", want: "untitled:Untitled-1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeURI(tt.in))
		})
	}
	assert.Equal(t, "/work/main.blk", uriToPath("file:///work/main.blk"))
}

func TestHoverAndSemanticTokens(t *testing.T) {
	s := newTestServer(t, afero.NewMemMapFs())
	result := initialize(t, s, "/work")
	uri := "file:///work/main.blk"

	legend, ok := result.Capabilities.SemanticTokensProvider.(*protocol.SemanticTokensOptions)
	require.True(t, ok)
	assert.Contains(t, legend.Legend.TokenTypes, "variable")

	require.NoError(t, s.textDocumentDidOpen(nil, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "blocks", Version: 1, Text: "var total = 1;\ntotal;"},
	}))

	h, err := s.textDocumentHover(nil, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 1, Character: 2},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, h)
	content, ok := h.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Contains(t, content.Value, "variable total")
	require.NotNil(t, h.Range)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 0},
		End:   protocol.Position{Line: 1, Character: 5},
	}, *h.Range)

	h, err = s.textDocumentHover(nil, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 0, Character: 13},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, h)

	tokens, err := s.textDocumentSemanticTokensFull(nil, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	// var total = 1 ; total ;
	assert.Len(t, tokens.Data, 7*5)
}
