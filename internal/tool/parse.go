package tool

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/castor-ai/castor/internal/core"
)

var (
	callBlockRe = regexp.MustCompile(`(?s)<tool_call>\s*(\{.*?\})\s*</tool_call>`)
	strayTagRe  = regexp.MustCompile(`</?tool_call>`)
)

// rawCall matches the JSON the model emits inside a <tool_call> block.
type rawCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ParseCalls extracts tool calls from raw model output, in emission order.
// Malformed blocks are skipped; each parsed call gets a fresh call id.
func ParseCalls(raw string) []core.ToolCall {
	matches := callBlockRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil
	}

	calls := make([]core.ToolCall, 0, len(matches))

	for _, m := range matches {
		var parsed rawCall
		if err := json.Unmarshal([]byte(m[1]), &parsed); err != nil {
			continue
		}

		if parsed.Name == "" {
			continue
		}

		calls = append(calls, core.ToolCall{
			ID:        string(core.NewToolCallID()),
			Name:      parsed.Name,
			Arguments: flattenArguments(parsed.Arguments),
		})
	}

	return calls
}

// StripCallMarkup removes tool-call blocks and any stray tags from model
// output, leaving only the user-facing text.
func StripCallMarkup(raw string) string {
	out := callBlockRe.ReplaceAllString(raw, "")
	out = strayTagRe.ReplaceAllString(out, "")

	return strings.TrimSpace(out)
}

// flattenArguments converts the model's JSON argument values to the plain
// string map handlers consume.
func flattenArguments(args map[string]any) map[string]string {
	if len(args) == 0 {
		return nil
	}

	out := make(map[string]string, len(args))

	for key, value := range args {
		switch v := value.(type) {
		case string:
			out[key] = v
		case nil:
			out[key] = ""
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[key] = string(encoded)
		}
	}

	return out
}

// UnwrapArguments strips surrounding quote characters from argument values.
// Models sometimes double-encode primitives ("\"5\"") when emitting JSON;
// handlers expect the plain value.
func UnwrapArguments(args map[string]string) map[string]string {
	if len(args) == 0 {
		return args
	}

	out := make(map[string]string, len(args))

	for key, value := range args {
		out[key] = unwrapQuotes(value)
	}

	return out
}

func unwrapQuotes(value string) string {
	for len(value) >= 2 {
		first := value[0]
		last := value[len(value)-1]

		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			value = value[1 : len(value)-1]
			continue
		}

		break
	}

	return value
}
