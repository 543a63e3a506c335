// Package prompt renders conversation turns into the model's native chat
// markup. The target family uses ChatML-style role-tagged segments; the
// tools block is injected once, inside the system segment.
package prompt

import (
	"encoding/json"
	"strings"

	"github.com/castor-ai/castor/internal/core"
)

const (
	segmentOpen  = "<|im_start|>"
	segmentClose = "<|im_end|>"
)

// Render produces the full prompt for one generation: each turn becomes a
// role-tagged segment, the tools block (when non-empty) is appended to the
// system turn, and a trailing assistant header cues the model to respond.
func Render(turns []core.Turn, toolsBlock string) string {
	var b strings.Builder

	for i, turn := range turns {
		b.WriteString(segmentOpen)
		b.WriteString(string(turn.Role))
		b.WriteString("\n")
		b.WriteString(turn.Content)

		if i == 0 && turn.Role == core.RoleSystem && toolsBlock != "" {
			b.WriteString("\n\n")
			b.WriteString(toolsBlock)
		}

		b.WriteString(segmentClose)
		b.WriteString("\n")
	}

	b.WriteString(segmentOpen)
	b.WriteString(string(core.RoleAssistant))
	b.WriteString("\n")

	return b.String()
}

// RenderToolResult formats a dispatch result as the content of a tool turn.
// Failures are fed back to the model as data so it can react.
func RenderToolResult(result core.ToolResult) string {
	var b strings.Builder

	b.WriteString("<tool_response>\n")
	b.WriteString(`{"name": "`)
	b.WriteString(result.ToolName)
	b.WriteString(`", `)

	if result.Success {
		b.WriteString(`"content": `)
		b.WriteString(encodeJSONString(result.Output))
	} else {
		b.WriteString(`"error": `)
		b.WriteString(encodeJSONString(result.Error))
	}

	b.WriteString("}\n</tool_response>")

	return b.String()
}

// Transcript flattens turns into plain role-prefixed text for providers
// that take a single prompt string rather than chat markup.
func Transcript(turns []core.Turn) string {
	var b strings.Builder

	for _, turn := range turns {
		if turn.Role == core.RoleSystem {
			continue
		}

		b.WriteString(strings.ToUpper(string(turn.Role)[:1]) + string(turn.Role)[1:])
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n\n")
	}

	return strings.TrimSpace(b.String())
}

func encodeJSONString(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return `""`
	}

	return string(encoded)
}
