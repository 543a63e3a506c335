package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/castor-ai/castor/internal/core"
	"github.com/castor-ai/castor/internal/memory"
)

// SaveMemory persists a fact about the user for later conversations.
type SaveMemory struct {
	store memory.Store
}

func (t *SaveMemory) Name() string    { return "save_memory" }
func (t *SaveMemory) Toolset() string { return toolsetMemory }

func (t *SaveMemory) Definition() core.ToolDef {
	return core.ToolDef{
		Name:        t.Name(),
		Description: "Save a fact about the user so it can be recalled in later conversations",
		Parameters: core.Parameters{
			Type: "object",
			Properties: map[string]core.Property{
				"category": {
					Type:        "string",
					Description: "Grouping for the fact",
					Enum:        []string{"preference", "fact", "reminder", "contact"},
				},
				"key": {
					Type:        "string",
					Description: "Short identifier, for example 'coffee order'",
				},
				"value": {
					Type:        "string",
					Description: "The fact itself",
				},
			},
			Required: []string{"category", "key", "value"},
		},
	}
}

func (t *SaveMemory) IsAvailable() bool { return t.store != nil }

func (t *SaveMemory) Execute(_ context.Context, args map[string]string) core.ToolResult {
	category := strings.TrimSpace(args["category"])
	key := strings.TrimSpace(args["key"])
	value := strings.TrimSpace(args["value"])

	if category == "" {
		category = "fact"
	}

	if key == "" || value == "" {
		return core.ToolResult{Success: false, Error: "key and value are required"}
	}

	if err := t.store.Save(category, key, value); err != nil {
		return core.ToolResult{Success: false, Error: err.Error()}
	}

	return core.ToolResult{
		Success: true,
		Output:  fmt.Sprintf("Saved %s: %s", key, value),
	}
}

// RecallMemory searches previously saved facts.
type RecallMemory struct {
	store memory.Store
}

func (t *RecallMemory) Name() string    { return "recall_memory" }
func (t *RecallMemory) Toolset() string { return toolsetMemory }

func (t *RecallMemory) Definition() core.ToolDef {
	return core.ToolDef{
		Name:        t.Name(),
		Description: "Recall saved facts about the user, optionally filtered by category or a search string",
		Parameters: core.Parameters{
			Type: "object",
			Properties: map[string]core.Property{
				"category": {
					Type:        "string",
					Description: "Limit results to one category",
				},
				"search": {
					Type:        "string",
					Description: "Substring to match against keys and values",
				},
			},
		},
	}
}

func (t *RecallMemory) IsAvailable() bool { return t.store != nil }

func (t *RecallMemory) Execute(_ context.Context, args map[string]string) core.ToolResult {
	entries, err := t.store.Recall(strings.TrimSpace(args["category"]), strings.TrimSpace(args["search"]))
	if err != nil {
		return core.ToolResult{Success: false, Error: err.Error()}
	}

	if len(entries) == 0 {
		return core.ToolResult{Success: true, Output: "No matching memories."}
	}

	var sb strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&sb, "[%s] %s: %s\n", entry.Category, entry.Key, entry.Value)
	}

	return core.ToolResult{Success: true, Output: strings.TrimRight(sb.String(), "\n")}
}
