package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castor-ai/castor/internal/provider"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "show llama-server status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			status := provider.NewLlamaServer(cfg.Llama).Status()

			fmt.Printf("endpoint:   %s\n", status.Endpoint)
			fmt.Printf("healthy:    %t\n", status.Healthy)
			fmt.Printf("auto_start: %t\n", status.AutoStart)
			if status.Running {
				fmt.Printf("pid:        %d\n", status.PID)
				fmt.Printf("started:    %s\n", status.StartedAt.Format("2006-01-02 15:04:05"))
			}

			return nil
		},
	}
}
