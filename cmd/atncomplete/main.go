package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	checkcmd "github.com/walteh/atncomplete/cmd/atncomplete/check"
	getcompletionscmd "github.com/walteh/atncomplete/cmd/atncomplete/get-completions"
	serve_lsp "github.com/walteh/atncomplete/cmd/atncomplete/serve-lsp"
	logging "github.com/walteh/atncomplete/pkg/debug"
	"gitlab.com/tozd/go/errors"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var logOpts logging.LoggerOptions

	rootCmd := &cobra.Command{
		Use:   "atncomplete",
		Short: "Grammar-driven code completion for incomplete source text",
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	rootCmd.PersistentFlags().StringVar(&logOpts.Level, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logOpts.JSON, "log-json", false, "write logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&logOpts.Caller, "log-caller", false, "include the caller of each log line")

	// stdout carries results and the protocol, so logs go to stderr
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger, err := logging.NewLogger(os.Stderr, logOpts)
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)
	rootCmd.AddCommand(getcompletionscmd.NewGetCompletionsCommand())
	rootCmd.AddCommand(checkcmd.NewCheckCommand())
	rootCmd.AddCommand(serve_lsp.NewServeLSPCommand())

	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
