package conversation

import "github.com/castor-ai/castor/internal/core"

// HistoryProvider supplies prior turns for a conversation. The persistence
// layer implements it; the agent loop strips any system turns from the
// result before adding its own freshly built system turn.
type HistoryProvider interface {
	History() ([]core.Turn, error)
}

// StripSystemTurns removes system-role turns from a history slice, keeping
// the remaining turns in order.
func StripSystemTurns(turns []core.Turn) []core.Turn {
	out := make([]core.Turn, 0, len(turns))

	for _, turn := range turns {
		if turn.Role == core.RoleSystem {
			continue
		}

		out = append(out, turn)
	}

	return out
}
