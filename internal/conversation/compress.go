// Package conversation fits a growing dialogue into a fixed token budget.
// Compression is recency-biased truncation, not summarization: the system
// turn always survives, the newest turns are kept while they fit, and older
// turns are dropped wholesale.
package conversation

import "github.com/castor-ai/castor/internal/core"

// charsPerToken is the character-count token approximation. It only has to
// be deterministic and monotonic in input length so the same input always
// compresses the same way.
const charsPerToken = 4

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}

// EstimateTurn approximates the token cost of one turn, including a small
// fixed overhead for the role markup the chat template adds.
func EstimateTurn(turn core.Turn) int {
	const turnOverhead = 4

	return EstimateTokens(turn.Content) + turnOverhead
}

// Compress returns a prefix-preserving subsequence of turns that fits the
// token budget. The first turn, when it is the system turn, is always
// retained; remaining turns are kept newest-first until the budget would be
// exceeded. Output order is chronological.
func Compress(turns []core.Turn, tokenBudget int) []core.Turn {
	if len(turns) == 0 {
		return nil
	}

	var system *core.Turn
	rest := turns

	if turns[0].Role == core.RoleSystem {
		system = &turns[0]
		rest = turns[1:]
	}

	used := 0
	if system != nil {
		used = EstimateTurn(*system)
	}

	// Walk backward from the most recent turn; stop at the first turn that
	// would blow the budget and drop everything older.
	keepFrom := len(rest)

	for i := len(rest) - 1; i >= 0; i-- {
		cost := EstimateTurn(rest[i])
		if used+cost > tokenBudget {
			break
		}

		used += cost
		keepFrom = i
	}

	out := make([]core.Turn, 0, 1+len(rest)-keepFrom)
	if system != nil {
		out = append(out, *system)
	}
	out = append(out, rest[keepFrom:]...)

	return out
}
