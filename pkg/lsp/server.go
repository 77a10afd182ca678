// Package lsp serves completions, diagnostics, hover and semantic tokens over
// the language server protocol.
package lsp

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"github.com/walteh/atncomplete/pkg/completion"
	"github.com/walteh/atncomplete/pkg/config"
	"github.com/walteh/atncomplete/pkg/language"
	"github.com/walteh/atncomplete/pkg/semtok"
	"gitlab.com/tozd/go/errors"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "atncomplete"

// Server represents an LSP server instance
type Server struct {
	// ctx carries the logger into every handler; glsp does not pass one.
	ctx     context.Context
	version string

	documents *DocumentManager
	registry  *language.Registry
	fs        afero.Fs

	mu        sync.Mutex
	workspace string
	cfg       *config.Config
	providers *config.ProviderSet

	handler protocol.Handler
	server  *server.Server
}

func NewServer(ctx context.Context, version string, registry *language.Registry, fs afero.Fs) *Server {
	s := &Server{
		ctx:       ctx,
		version:   version,
		documents: NewDocumentManager(fs),
		registry:  registry,
		fs:        fs,
		workspace: ".",
	}
	s.setConfig(config.Default())

	s.handler = protocol.Handler{
		Initialize:             s.initialize,
		Initialized:            s.initialized,
		Shutdown:               s.shutdown,
		SetTrace:               s.setTrace,
		TextDocumentDidOpen:    s.textDocumentDidOpen,
		TextDocumentDidChange:  s.textDocumentDidChange,
		TextDocumentDidClose:   s.textDocumentDidClose,
		TextDocumentDidSave:    s.textDocumentDidSave,
		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,

		TextDocumentSemanticTokensFull: s.textDocumentSemanticTokensFull,
	}

	s.server = server.NewServer(&s.handler, lsName, false)

	return s
}

func (s *Server) RunStdio() error {
	if err := s.server.RunStdio(); err != nil {
		return errors.Errorf("running language server: %w", err)
	}
	return nil
}

func (s *Server) Documents() *DocumentManager {
	return s.documents
}

func (s *Server) setConfig(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.providers = config.NewProviderSet(cfg, s.fs)
}

func (s *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	logger := zerolog.Ctx(s.ctx)
	logger.Debug().Msg("initializing server")

	root := "."
	if params.RootURI != nil && *params.RootURI != "" {
		root = uriToPath(*params.RootURI)
	} else if params.RootPath != nil && *params.RootPath != "" {
		root = *params.RootPath
	}

	cfg, err := config.Discover(s.fs, root)
	if err != nil {
		logger.Warn().Err(err).Str("workspace", root).Msg("ignoring invalid config")
		cfg = config.Default()
		cfg.Dir = root
	}

	s.mu.Lock()
	s.workspace = root
	s.mu.Unlock()
	s.setConfig(cfg)

	capabilities := s.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: triggerCharacters(s.registry),
	}

	tokenTypes, tokenModifiers := semtok.Legend()
	capabilities.SemanticTokensProvider = &protocol.SemanticTokensOptions{
		Legend: protocol.SemanticTokensLegend{
			TokenTypes:     tokenTypes,
			TokenModifiers: tokenModifiers,
		},
		Full: true,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	zerolog.Ctx(s.ctx).Debug().Strs("languages", s.registry.Names()).Msg("server initialized")
	return nil
}

func (s *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// languageFor picks a language by file extension, then by the client's
// language id, then by the configured default.
func (s *Server) languageFor(path, languageID string) (*language.Definition, error) {
	if def, err := s.registry.ForPath(path); err == nil {
		return def, nil
	}
	if def, err := s.registry.Get(languageID); err == nil {
		return def, nil
	}

	s.mu.Lock()
	fallback := s.cfg.Language
	s.mu.Unlock()

	if fallback != "" {
		return s.registry.Get(fallback)
	}
	return nil, errors.Errorf("no language for %s (%s)", path, languageID)
}

// open builds the per-document engine. Providers are chosen once, when the
// document is opened.
func (s *Server) open(uri, languageID string, version int32, text string) (*Document, error) {
	path := uriToPath(uri)
	def, err := s.languageFor(path, languageID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	cfg, set := s.cfg, s.providers
	s.mu.Unlock()

	engine := completion.NewEngine(def,
		completion.WithBudget(cfg.WalkerBudget()),
		completion.WithProviders(set.For(s.ctx, path)...),
	)

	return &Document{
		URI:        normalizeURI(uri),
		Path:       path,
		LanguageID: languageID,
		Version:    version,
		Content:    text,
		Language:   def,
		Scheduler:  completion.NewScheduler(engine),
	}, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
