package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castor-ai/castor/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "write the default config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = config.DefaultPath()
			}

			if _, err := config.LoadOrCreate(configPath); err != nil {
				return err
			}

			fmt.Printf("config at %s\n", configPath)
			return nil
		},
	}
}
