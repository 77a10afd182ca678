package get_completions

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/atncomplete/pkg/completion"
	"github.com/walteh/atncomplete/pkg/config"
	"github.com/walteh/atncomplete/pkg/lang"
	"github.com/walteh/atncomplete/pkg/position"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	filePath  string
	location  string
	language  string
	configDir string

	fs  afero.Fs
	out io.Writer
}

// Output is what the command prints. Line and Character are one-based
// columns, as given on the command line.
type Output struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
	Offset    int    `json:"offset"`
	*completion.Result
}

func NewGetCompletionsCommand() *cobra.Command {
	me := &Handler{
		fs:  afero.NewOsFs(),
		out: os.Stdout,
	}

	cmd := &cobra.Command{
		Use:   "get-completions [file-path] [line:column]",
		Short: "get completions for a position in a source file",
	}

	cmd.Flags().StringVar(&me.language, "language", "", "language to use instead of the one matching the file extension")
	cmd.Flags().StringVar(&me.configDir, "config-dir", "", "directory holding .atncomplete.hcl (default: the file's directory)")

	cmd.Args = cobra.ExactArgs(2)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.filePath = args[0]
		me.location = args[1]
		return me.Run(cmd.Context())
	}

	return cmd
}

// parseLocation reads a one-based line:column pair.
func parseLocation(s string) (position.Place, error) {
	lineStr, colStr, ok := strings.Cut(s, ":")
	if !ok {
		return position.Place{}, errors.Errorf("invalid location %q, want line:column", s)
	}
	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 1 {
		return position.Place{}, errors.Errorf("invalid line number %q", lineStr)
	}
	col, err := strconv.Atoi(colStr)
	if err != nil || col < 1 {
		return position.Place{}, errors.Errorf("invalid column number %q", colStr)
	}
	return position.Place{Line: line - 1, Character: col - 1}, nil
}

func (me *Handler) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	place, err := parseLocation(me.location)
	if err != nil {
		return err
	}

	content, err := afero.ReadFile(me.fs, me.filePath)
	if err != nil {
		return errors.Errorf("failed to read file: %w", err)
	}

	dir := me.configDir
	if dir == "" {
		dir = filepath.Dir(me.filePath)
	}
	cfg, err := config.Discover(me.fs, dir)
	if err != nil {
		return errors.Errorf("failed to load config: %w", err)
	}

	registry, err := lang.Builtin(ctx)
	if err != nil {
		return errors.Errorf("failed to load languages: %w", err)
	}
	def, err := cfg.LanguageFor(registry, me.filePath, me.language)
	if err != nil {
		return errors.Errorf("failed to pick language: %w", err)
	}

	doc := position.NewDocument(string(content), position.WithTabWidth(position.TabWidthFor(ctx, me.filePath)))
	offset, err := doc.Offset(place, position.EncodingColumns)
	if err != nil {
		return errors.Errorf("failed to locate %s: %w", me.location, err)
	}

	engine := completion.NewEngine(def,
		completion.WithBudget(cfg.WalkerBudget()),
		completion.WithProviders(config.NewProviderSet(cfg, me.fs).For(ctx, me.filePath)...),
	)

	res, err := engine.Complete(ctx, doc.Text(), offset)
	if err != nil {
		return errors.Errorf("failed to get completions: %w", err)
	}
	if res.LexErr != nil {
		logger.Warn().Err(res.LexErr).Msg("file could not be fully tokenized")
	}

	encoder := json.NewEncoder(me.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(Output{
		File:      me.filePath,
		Line:      place.Line + 1,
		Character: place.Character + 1,
		Offset:    offset,
		Result:    res,
	}); err != nil {
		return errors.Errorf("failed to encode completions: %w", err)
	}

	return nil
}
