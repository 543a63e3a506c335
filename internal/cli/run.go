package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/castor-ai/castor/internal/conversation"
	"github.com/castor-ai/castor/internal/core"
)

func runCmd(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	sessionFlag, _ := cmd.Flags().GetString("session")
	newSession, _ := cmd.Flags().GetBool("new-session")

	input := strings.TrimSpace(strings.Join(args, " "))
	if input == "" {
		return fmt.Errorf("prompt is required")
	}

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

	store := &conversation.FileSessionStore{BaseDir: cfg.DataDir}

	sessionID, history, err := resolveSession(store, cfg.DataDir, sessionFlag, newSession)
	if err != nil {
		return err
	}

	result, err := application.loop.Run(cmd.Context(), input, history)
	if err != nil {
		return err
	}

	fmt.Println(result.Response)

	appendErr := store.Append(sessionID,
		core.Turn{Role: core.RoleUser, Content: input},
		core.Turn{Role: core.RoleAssistant, Content: result.Response},
	)
	if appendErr != nil {
		logger.Warn("session not persisted", "error", appendErr)
	}

	return saveActiveSession(cfg.DataDir, sessionID)
}

// resolveSession picks the session to use: the explicit flag, the last
// active one, or a fresh session.
func resolveSession(store *conversation.FileSessionStore, dataDir, flag string, fresh bool) (core.SessionID, []core.Turn, error) {
	if !fresh {
		id := core.SessionID(strings.TrimSpace(flag))
		if id == "" {
			id = loadActiveSession(dataDir)
		}

		if id != "" {
			history, err := store.Load(id)
			if err != nil {
				return "", nil, err
			}

			return id, history, nil
		}
	}

	id, err := store.Create()
	if err != nil {
		return "", nil, err
	}

	return id, nil, nil
}

func activeSessionPath(dataDir string) string {
	return filepath.Join(dataDir, "active_session")
}

func loadActiveSession(dataDir string) core.SessionID {
	data, err := os.ReadFile(activeSessionPath(dataDir))
	if err != nil {
		return ""
	}

	return core.SessionID(strings.TrimSpace(string(data)))
}

func saveActiveSession(dataDir string, id core.SessionID) error {
	return os.WriteFile(activeSessionPath(dataDir), []byte(id), 0o644)
}
