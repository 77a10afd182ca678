package config

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/atncomplete/pkg/completion"
	"github.com/walteh/atncomplete/pkg/completion/providers"
	"gitlab.com/tozd/go/errors"
)

// ProviderSet builds the providers of a config lazily and keeps them for
// later documents.
type ProviderSet struct {
	cfg *Config
	fs  afero.Fs

	mu    sync.Mutex
	built map[*ProviderBlock]completion.Provider
}

func NewProviderSet(cfg *Config, fs afero.Fs) *ProviderSet {
	return &ProviderSet{
		cfg:   cfg,
		fs:    fs,
		built: make(map[*ProviderBlock]completion.Provider),
	}
}

// For returns the providers whose file patterns match docPath. A provider
// that fails to build is logged and left out.
func (s *ProviderSet) For(ctx context.Context, docPath string) []completion.Provider {
	var out []completion.Provider
	for _, block := range s.cfg.Providers {
		if !block.Matches(s.cfg.Dir, docPath) {
			continue
		}
		p, err := s.get(ctx, block)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("kind", block.Kind).Str("path", block.Path).Msg("skipping provider")
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *ProviderSet) get(ctx context.Context, block *ProviderBlock) (completion.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.built[block]; ok {
		return p, nil
	}

	p, err := s.build(ctx, block)
	if err != nil {
		return nil, err
	}
	s.built[block] = p
	return p, nil
}

func (s *ProviderSet) build(ctx context.Context, block *ProviderBlock) (completion.Provider, error) {
	path := block.resolvedPath(s.cfg.Dir)
	switch block.Kind {
	case ProviderSample:
		p, err := providers.LoadSampleProvider(s.fs, path)
		if err != nil {
			return nil, errors.Errorf("building sample provider: %w", err)
		}
		return p, nil
	case ProviderProto:
		p, err := providers.NewProtoProvider(ctx, s.fs, path, block.Message)
		if err != nil {
			return nil, errors.Errorf("building proto provider: %w", err)
		}
		return p, nil
	}
	return nil, errors.Errorf("unknown provider kind %q", block.Kind)
}
