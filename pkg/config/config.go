// Package config loads .atncomplete.hcl (or .yaml) files: the walk budget and
// which dynamic providers apply to which documents.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/walteh/atncomplete/pkg/language"
	"github.com/walteh/atncomplete/pkg/walker"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// FileNames are the names Discover looks for, in order.
var FileNames = []string{".atncomplete.hcl", ".atncomplete.yaml", ".atncomplete.yml"}

const (
	ProviderSample = "sample"
	ProviderProto  = "proto"
)

// Config file structure
type Config struct {
	// Language names the language used when a file extension is unknown.
	Language  string           `hcl:"language,optional" yaml:"language,omitempty"`
	Budget    *BudgetBlock     `hcl:"budget,block" yaml:"budget,omitempty"`
	Providers []*ProviderBlock `hcl:"provider,block" yaml:"providers,omitempty"`

	// Dir is the directory the file was loaded from. Relative provider paths
	// resolve against it.
	Dir string `yaml:"-"`
}

type BudgetBlock struct {
	MaxConfigurations int `hcl:"max_configurations,optional" yaml:"max_configurations,omitempty"`
	MaxStackDepth     int `hcl:"max_stack_depth,optional" yaml:"max_stack_depth,omitempty"`
}

// ProviderBlock declares a dynamic provider. Files are doublestar patterns
// matched against document paths relative to Dir; no patterns match
// every document.
type ProviderBlock struct {
	Kind    string   `hcl:"kind,label" yaml:"kind"`
	Files   []string `hcl:"files,optional" yaml:"files,omitempty"`
	Path    string   `hcl:"path,attr" yaml:"path"`
	Message string   `hcl:"message,optional" yaml:"message,omitempty"`
}

// Default is used when no file is found.
func Default() *Config {
	return &Config{Dir: "."}
}

// WalkerBudget returns the configured budget; zero fields fall back to the
// walker defaults.
func (cfg *Config) WalkerBudget() walker.Budget {
	b := walker.DefaultBudget()
	if cfg.Budget == nil {
		return b
	}
	if cfg.Budget.MaxConfigurations > 0 {
		b.MaxConfigurations = cfg.Budget.MaxConfigurations
	}
	if cfg.Budget.MaxStackDepth > 0 {
		b.MaxStackDepth = cfg.Budget.MaxStackDepth
	}
	return b
}

// Validate reports every problem at once.
func (cfg *Config) Validate() error {
	var result *multierror.Error

	if cfg.Budget != nil {
		if cfg.Budget.MaxConfigurations < 0 {
			result = multierror.Append(result, errors.New("budget: max_configurations must not be negative"))
		}
		if cfg.Budget.MaxStackDepth < 0 {
			result = multierror.Append(result, errors.New("budget: max_stack_depth must not be negative"))
		}
	}

	for i, p := range cfg.Providers {
		prefix := fmt.Sprintf("provider %d (%s)", i, p.Kind)
		switch p.Kind {
		case ProviderSample:
		case ProviderProto:
			if p.Message == "" {
				result = multierror.Append(result, errors.Errorf("%s: message is required", prefix))
			}
		default:
			result = multierror.Append(result, errors.Errorf("%s: unknown kind, want %s or %s", prefix, ProviderSample, ProviderProto))
		}
		if p.Path == "" {
			result = multierror.Append(result, errors.Errorf("%s: path is required", prefix))
		}
		for _, pat := range p.Files {
			if !doublestar.ValidatePattern(pat) {
				result = multierror.Append(result, errors.Errorf("%s: invalid pattern %q", prefix, pat))
			}
		}
	}

	return result.ErrorOrNil()
}

// Load reads a config file from fs. The format follows the extension: YAML
// for .yaml and .yml, HCL otherwise.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	dir := filepath.Dir(path)
	var cfg Config

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	} else {
		parser := hclparse.NewParser()
		hclFile, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}

		evalCtx := &hcl.EvalContext{
			Variables: map[string]cty.Value{
				"env": environment(),
			},
		}

		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &cfg)
		if diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	}

	cfg.Dir = dir
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating %s: %w", path, err)
	}
	return &cfg, nil
}

// environment exposes the process environment to HCL expressions as env.NAME.
func environment() cty.Value {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}
	return cty.ObjectVal(vars)
}

// Discover loads the first of FileNames found in dir, or returns Default.
func Discover(fs afero.Fs, dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		ok, err := afero.Exists(fs, path)
		if err != nil {
			return nil, errors.Errorf("checking %s: %w", path, err)
		}
		if ok {
			return Load(fs, path)
		}
	}
	cfg := Default()
	cfg.Dir = dir
	return cfg, nil
}

// Matches reports whether the block applies to the document at docPath.
func (p *ProviderBlock) Matches(dir, docPath string) bool {
	if len(p.Files) == 0 {
		return true
	}
	rel := docPath
	if r, err := filepath.Rel(dir, docPath); err == nil && !strings.HasPrefix(r, "..") {
		rel = r
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range p.Files {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func (p *ProviderBlock) resolvedPath(dir string) string {
	if filepath.IsAbs(p.Path) {
		return p.Path
	}
	return filepath.Join(dir, p.Path)
}

// LanguageFor picks the language for path: the named override if set, then
// the file extension, then the configured default.
func (cfg *Config) LanguageFor(registry *language.Registry, path, override string) (*language.Definition, error) {
	if override != "" {
		return registry.Get(override)
	}
	if def, err := registry.ForPath(path); err == nil {
		return def, nil
	}
	if cfg.Language != "" {
		return registry.Get(cfg.Language)
	}
	return nil, errors.Errorf("no language for %s, known languages are %s", path, strings.Join(registry.Names(), ", "))
}
