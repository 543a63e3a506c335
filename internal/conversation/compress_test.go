package conversation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/castor-ai/castor/internal/core"
)

func turn(role core.Role, content string) core.Turn {
	return core.Turn{Role: role, Content: content}
}

func TestCompress_KeepsSystemAndRecentTurns(t *testing.T) {
	turns := []core.Turn{turn(core.RoleSystem, "system prompt")}
	for i := 0; i < 50; i++ {
		turns = append(turns, turn(core.RoleUser, fmt.Sprintf("user message %02d %s", i, strings.Repeat("x", 400))))
	}

	out := Compress(turns, 4096)

	if len(out) == 0 || out[0].Role != core.RoleSystem {
		t.Fatal("system turn must survive compression")
	}

	if len(out) >= len(turns) {
		t.Fatalf("expected turns to be dropped, kept %d of %d", len(out), len(turns))
	}

	// The most recent turn is always among the kept ones.
	last := out[len(out)-1]
	if !strings.HasPrefix(last.Content, "user message 49") {
		t.Errorf("most recent turn missing, last kept: %.30q", last.Content)
	}

	// Kept turns are contiguous from the newest end, chronological order.
	for i := 1; i < len(out)-1; i++ {
		var cur, next int
		fmt.Sscanf(out[i].Content, "user message %d", &cur)
		fmt.Sscanf(out[i+1].Content, "user message %d", &next)
		if next != cur+1 {
			t.Fatalf("kept turns not contiguous: %d then %d", cur, next)
		}
	}
}

func TestCompress_FitsBudget(t *testing.T) {
	turns := []core.Turn{turn(core.RoleSystem, "sys")}
	for i := 0; i < 30; i++ {
		turns = append(turns, turn(core.RoleAssistant, strings.Repeat("a", 200)))
	}

	budget := 500
	out := Compress(turns, budget)

	total := 0
	for _, tr := range out {
		total += EstimateTurn(tr)
	}

	if total > budget {
		t.Errorf("compressed turns estimate %d exceeds budget %d", total, budget)
	}
}

func TestCompress_Deterministic(t *testing.T) {
	turns := []core.Turn{
		turn(core.RoleSystem, "sys"),
		turn(core.RoleUser, strings.Repeat("u", 100)),
		turn(core.RoleAssistant, strings.Repeat("a", 100)),
		turn(core.RoleUser, "latest"),
	}

	first := Compress(turns, 60)
	second := Compress(turns, 60)

	if len(first) != len(second) {
		t.Fatalf("non-deterministic compression: %d vs %d turns", len(first), len(second))
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("turn %d differs between runs", i)
		}
	}
}

func TestCompress_NoSystemTurn(t *testing.T) {
	turns := []core.Turn{
		turn(core.RoleUser, "old"),
		turn(core.RoleAssistant, "older reply"),
		turn(core.RoleUser, "new"),
	}

	out := Compress(turns, 1000)

	if len(out) != 3 {
		t.Fatalf("expected all turns kept, got %d", len(out))
	}
}

func TestCompress_EmptyInput(t *testing.T) {
	if out := Compress(nil, 100); out != nil {
		t.Errorf("expected nil for empty input, got %v", out)
	}
}

func TestCompress_TinyBudgetKeepsSystem(t *testing.T) {
	turns := []core.Turn{
		turn(core.RoleSystem, strings.Repeat("s", 100)),
		turn(core.RoleUser, strings.Repeat("u", 100)),
	}

	out := Compress(turns, 1)

	if len(out) != 1 || out[0].Role != core.RoleSystem {
		t.Fatalf("tiny budget must still retain the system turn, got %d turns", len(out))
	}
}

func TestStripSystemTurns(t *testing.T) {
	turns := []core.Turn{
		turn(core.RoleSystem, "sys"),
		turn(core.RoleUser, "hi"),
		turn(core.RoleSystem, "stale sys"),
		turn(core.RoleAssistant, "hello"),
	}

	out := StripSystemTurns(turns)

	if len(out) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(out))
	}

	for _, tr := range out {
		if tr.Role == core.RoleSystem {
			t.Errorf("system turn survived stripping")
		}
	}
}

func TestEstimateTokens_MonotonicInLength(t *testing.T) {
	prev := -1
	for n := 0; n < 64; n++ {
		est := EstimateTokens(strings.Repeat("a", n))
		if est < prev {
			t.Fatalf("estimate decreased at length %d", n)
		}
		prev = est
	}
}
