package serve_lsp

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/atncomplete/pkg/lang"
	"github.com/walteh/atncomplete/pkg/lsp"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	version string
}

func NewServeLSPCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdin and stdout",
	}

	cmd.Args = cobra.NoArgs

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.version = cmd.Root().Version
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	registry, err := lang.Builtin(ctx)
	if err != nil {
		return errors.Errorf("loading languages: %w", err)
	}

	server := lsp.NewServer(ctx, me.version, registry, afero.NewOsFs())

	if err := server.RunStdio(); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}
