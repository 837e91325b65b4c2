package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ncobase/askflow/app"
	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/logging/logger"
	"github.com/ncobase/askflow/version"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command
func NewServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *configFile)
		},
	}
}

func serve(ctx context.Context, configFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config.SetPath(configFile)
	logger.SetVersion(version.GetVersionInfo().Version)

	a, cleanup, err := app.InitializeApp()
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer cleanup()

	config.Watch(a.OnConfigChange)

	a.Logger.Info(ctx, "Service initialized",
		"app", a.Config.AppName,
		"mode", a.Config.RunMode,
		"version", version.Version,
	)
	return a.Run(ctx)
}
