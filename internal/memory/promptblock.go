package memory

import "strings"

// PromptBlock renders the most recent memories into a character-budgeted
// block for system-prompt construction. It returns the empty string when
// there is nothing to include.
func PromptBlock(store Store, charBudget int) string {
	entries, err := store.Recall("", "")
	if err != nil || len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Things you remember about the user:\n")

	used := b.Len()

	for _, e := range entries {
		line := "- "
		if e.Category != "" {
			line += "[" + e.Category + "] "
		}
		line += e.Key + ": " + e.Value + "\n"

		if used+len(line) > charBudget {
			break
		}

		b.WriteString(line)
		used += len(line)
	}

	if used == len("Things you remember about the user:\n") {
		return ""
	}

	return strings.TrimRight(b.String(), "\n")
}
