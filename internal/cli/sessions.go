package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castor-ai/castor/internal/conversation"
)

func newSessionsCmd() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "list conversation sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			store := &conversation.FileSessionStore{BaseDir: cfg.DataDir}

			ids, err := store.List()
			if err != nil {
				return err
			}

			if len(ids) == 0 {
				fmt.Println("no sessions")
				return nil
			}

			active := loadActiveSession(cfg.DataDir)
			for _, id := range ids {
				marker := " "
				if id == active {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, id)
			}

			return nil
		},
	}

	return sessionsCmd
}
