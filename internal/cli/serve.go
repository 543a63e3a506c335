package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/castor-ai/castor/internal/server"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			verbose, _ := cmd.Flags().GetBool("verbose")

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger := newLogger(verbose)

			application, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer application.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			bind, _ := cmd.Flags().GetString("bind")
			if bind == "" {
				bind = cfg.Bind
			}

			return server.New(application.loop, logger).ListenAndServe(ctx, bind)
		},
	}

	serveCmd.Flags().String("bind", "", "listen address, overrides config")

	return serveCmd
}
