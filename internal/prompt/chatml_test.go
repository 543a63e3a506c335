package prompt

import (
	"strings"
	"testing"

	"github.com/castor-ai/castor/internal/core"
)

func TestRender_RoleTaggedSegments(t *testing.T) {
	turns := []core.Turn{
		{Role: core.RoleSystem, Content: "You are castor."},
		{Role: core.RoleUser, Content: "hi"},
		{Role: core.RoleAssistant, Content: "hello"},
		{Role: core.RoleUser, Content: "what time is it?"},
	}

	out := Render(turns, "")

	for _, want := range []string{
		"<|im_start|>system\nYou are castor.<|im_end|>",
		"<|im_start|>user\nhi<|im_end|>",
		"<|im_start|>assistant\nhello<|im_end|>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered prompt missing %q:\n%s", want, out)
		}
	}

	if !strings.HasSuffix(out, "<|im_start|>assistant\n") {
		t.Errorf("prompt must end with the assistant header:\n%s", out)
	}
}

func TestRender_ToolsBlockInjectedOnceInSystemSegment(t *testing.T) {
	turns := []core.Turn{
		{Role: core.RoleSystem, Content: "sys"},
		{Role: core.RoleUser, Content: "u1"},
		{Role: core.RoleUser, Content: "u2"},
	}

	block := "# Tools\n<tools>[]</tools>"
	out := Render(turns, block)

	if strings.Count(out, "<tools>") != 1 {
		t.Fatalf("tools block must appear exactly once:\n%s", out)
	}

	sysEnd := strings.Index(out, "<|im_end|>")
	if !strings.Contains(out[:sysEnd], "<tools>") {
		t.Errorf("tools block must live inside the system segment")
	}
}

func TestRender_NoSystemTurnNoToolsBlock(t *testing.T) {
	turns := []core.Turn{{Role: core.RoleUser, Content: "u"}}

	out := Render(turns, "# Tools\n<tools>[]</tools>")

	if strings.Contains(out, "<tools>") {
		t.Errorf("tools block requires a leading system turn:\n%s", out)
	}
}

func TestRenderToolResult(t *testing.T) {
	ok := RenderToolResult(core.ToolResult{ToolName: "get_time", Success: true, Output: `12:30 "sharp"`})

	if !strings.Contains(ok, `"name": "get_time"`) || !strings.Contains(ok, `\"sharp\"`) {
		t.Errorf("unexpected success rendering: %q", ok)
	}
	if !strings.HasPrefix(ok, "<tool_response>") || !strings.HasSuffix(ok, "</tool_response>") {
		t.Errorf("result must be wrapped in tool_response tags: %q", ok)
	}

	failed := RenderToolResult(core.ToolResult{ToolName: "cam", Success: false, Error: "no permission"})

	if !strings.Contains(failed, `"error": "no permission"`) {
		t.Errorf("failed result must carry the error: %q", failed)
	}
}

func TestTranscript(t *testing.T) {
	turns := []core.Turn{
		{Role: core.RoleSystem, Content: "sys"},
		{Role: core.RoleUser, Content: "question"},
		{Role: core.RoleAssistant, Content: "answer"},
	}

	out := Transcript(turns)

	if strings.Contains(out, "sys") {
		t.Errorf("transcript must skip system turns: %q", out)
	}
	if !strings.Contains(out, "User: question") || !strings.Contains(out, "Assistant: answer") {
		t.Errorf("transcript format wrong: %q", out)
	}
}
