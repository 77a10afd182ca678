package check

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/atncomplete/pkg/config"
	"github.com/walteh/atncomplete/pkg/diagnostic"
	"github.com/walteh/atncomplete/pkg/lang"
	"github.com/walteh/atncomplete/pkg/language"
	"github.com/walteh/atncomplete/pkg/position"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type Handler struct {
	dir      string
	patterns []string
	language string
	format   string // text, json

	fs  afero.Fs
	out io.Writer
}

// ErrProblems is returned when at least one file is not valid.
var ErrProblems = errors.Base("problems found")

func NewCheckCommand() *cobra.Command {
	me := &Handler{
		fs:  afero.NewOsFs(),
		out: os.Stdout,
	}

	cmd := &cobra.Command{
		Use:   "check [glob...]",
		Short: "report syntax and symbol problems in source files",
	}

	cmd.Flags().StringVar(&me.dir, "dir", ".", "directory the globs are matched in")
	cmd.Flags().StringVar(&me.language, "language", "", "language to use instead of the one matching each file extension")
	cmd.Flags().StringVar(&me.format, "format", "text", "the format of the diagnostics (text, json)")

	cmd.Args = cobra.MinimumNArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.patterns = args
		return me.Run(cmd.Context())
	}

	return cmd
}

type fileResult struct {
	path    string
	doc     *position.Document
	outcome *diagnostic.Outcome
	err     error
}

func (me *Handler) formatter() (diagnostic.Formatter, error) {
	switch me.format {
	case "text", "":
		return &diagnostic.TextFormatter{Encoding: position.EncodingColumns}, nil
	case "json":
		return &diagnostic.JSONFormatter{}, nil
	}
	return nil, errors.Errorf("unknown format %q, want text or json", me.format)
}

// files expands the patterns relative to dir, sorted and without duplicates.
func (me *Handler) files() ([]string, error) {
	fsys := afero.NewIOFS(afero.NewBasePathFs(me.fs, me.dir))
	seen := map[string]bool{}
	var out []string
	for _, pat := range me.patterns {
		if !doublestar.ValidatePattern(pat) {
			return nil, errors.Errorf("invalid pattern %q", pat)
		}
		matches, err := doublestar.Glob(fsys, pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("matching %q: %w", pat, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (me *Handler) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	formatter, err := me.formatter()
	if err != nil {
		return err
	}

	files, err := me.files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %v in %s", me.patterns, me.dir)
	}

	cfg, err := config.Discover(me.fs, me.dir)
	if err != nil {
		return errors.Errorf("failed to load config: %w", err)
	}

	registry, err := lang.Builtin(ctx)
	if err != nil {
		return errors.Errorf("failed to load languages: %w", err)
	}

	results := make([]fileResult, len(files))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i, rel := range files {
		group.Go(func() error {
			results[i] = me.checkFile(gctx, cfg, registry, rel)
			return gctx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return errors.Errorf("checking files: %w", err)
	}

	var errs error
	invalid := 0
	for _, r := range results {
		if r.err != nil {
			errs = multierr.Append(errs, errors.Errorf("%s: %w", r.path, r.err))
			continue
		}
		if r.outcome.Status != diagnostic.StatusValid {
			invalid++
		}
		out, err := formatter.Format(r.path, r.doc, r.outcome)
		if err != nil {
			errs = multierr.Append(errs, errors.Errorf("%s: formatting: %w", r.path, err))
			continue
		}
		if len(out) > 0 && out[len(out)-1] != '\n' {
			out = append(out, '\n')
		}
		if _, err := me.out.Write(out); err != nil {
			return errors.Errorf("writing output: %w", err)
		}
	}

	logger.Debug().Int("files", len(files)).Int("invalid", invalid).Msg("check finished")

	if invalid > 0 {
		errs = multierr.Append(errs, errors.WithDetails(ErrProblems, "files", invalid))
	}
	return errs
}

func (me *Handler) checkFile(ctx context.Context, cfg *config.Config, registry *language.Registry, rel string) fileResult {
	path := filepath.Join(me.dir, filepath.FromSlash(rel))
	res := fileResult{path: path}

	def, err := cfg.LanguageFor(registry, path, me.language)
	if err != nil {
		res.err = err
		return res
	}

	content, err := afero.ReadFile(me.fs, path)
	if err != nil {
		res.err = errors.Errorf("reading: %w", err)
		return res
	}

	res.doc = position.NewDocument(string(content), position.WithTabWidth(position.TabWidthFor(ctx, path)))
	res.outcome, res.err = diagnostic.Check(ctx, def, res.doc.Text())
	return res
}
