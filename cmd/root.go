package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/inject"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

var injector *do.Injector

var rootCmd = &cobra.Command{
	Use:           "imagine",
	Short:         "Generate batches of AI images from a text prompt",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := log.New(os.Stderr, log.ParseLevel(cfg.LogLevel))
		ctx := log.NewContext(cmd.Context(), logger)
		cmd.SetContext(ctx)
		injector = inject.Setup(ctx, cfg)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if injector == nil {
			return nil
		}
		return injector.Shutdown()
	},
}

func init() {
	rootCmd.AddCommand(generateCmd, examplesCmd, lambdaCmd)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
