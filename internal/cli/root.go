// Package cli wires configuration, providers, tools, and the agent loop
// into the castor command tree.
package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/castor-ai/castor/internal/config"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "castor [prompt]",
		Short:         "castor on-device assistant",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE:          runCmd,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.Flags().String("session", "", "session id to continue")
	rootCmd.Flags().Bool("new-session", false, "start a fresh session")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newInitCmd())

	return rootCmd
}

func loadConfig(path string) (config.Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = config.DefaultPath()
	}

	return config.LoadOrCreate(path)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
