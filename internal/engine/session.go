package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// session tracks the positions committed to a backend's KV-cache for one
// loaded model. Invariant: 0 <= systemBoundary <= currentPos <= contextSize.
// Positions only advance after a successful decode, so cancellation mid-run
// leaves the counters matching the cache contents exactly.
type session struct {
	backend     Backend
	contextSize int
	batchSize   int
	shiftMargin int
	logger      *slog.Logger

	systemBoundary int
	currentPos     int
}

func newSession(backend Backend, contextSize, batchSize, shiftMargin int, logger *slog.Logger) *session {
	return &session{
		backend:     backend,
		contextSize: contextSize,
		batchSize:   batchSize,
		shiftMargin: shiftMargin,
		logger:      logger,
	}
}

// reset clears the cache but not the weights, returning the session to the
// state of a fresh generation.
func (s *session) reset() error {
	if err := s.backend.Clear(); err != nil {
		return err
	}

	s.systemBoundary = 0
	s.currentPos = 0

	return nil
}

// markSystemBoundary pins the immutable prefix: tokens before the boundary
// survive every context shift. Single-shot generations reset the session and
// leave the boundary at zero; this exists for a resident-session path that
// decodes the system prompt once and reuses it across turns.
func (s *session) markSystemBoundary() {
	s.systemBoundary = s.currentPos
}

// shift evicts the oldest half of the non-system tokens and slides the rest
// left, freeing room before the next batch. The discard ratio is a tuning
// choice; the contract is only that the cache never overflows and the system
// prefix is preserved.
func (s *session) shift() error {
	nDiscard := (s.currentPos - s.systemBoundary) / 2
	if nDiscard <= 0 {
		return nil
	}

	s.logger.Info("shifting context", "discard", nDiscard, "position", s.currentPos)

	if err := s.backend.RemoveRange(s.systemBoundary, s.systemBoundary+nDiscard); err != nil {
		return err
	}

	if err := s.backend.MoveRange(s.systemBoundary+nDiscard, s.currentPos, -nDiscard); err != nil {
		return err
	}

	s.currentPos -= nDiscard

	return nil
}

// ensureRoom shifts the context whenever appending n more tokens would come
// within the safety margin of the window. Shifting repeats until the batch
// fits or no further tokens are discardable.
func (s *session) ensureRoom(n int) error {
	for s.currentPos+n >= s.contextSize-s.shiftMargin {
		before := s.currentPos

		if err := s.shift(); err != nil {
			return err
		}

		if s.currentPos == before {
			break
		}
	}

	return nil
}

// decodeAll feeds tokens to the backend in batch-size chunks, shifting the
// context as needed. When wantLogitsLast is set, logits are requested for
// the final token so sampling can start.
func (s *session) decodeAll(ctx context.Context, tokens []Token, wantLogitsLast bool) error {
	for i := 0; i < len(tokens); i += s.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := i + s.batchSize
		if end > len(tokens) {
			end = len(tokens)
		}

		chunk := tokens[i:end]

		if err := s.ensureRoom(len(chunk)); err != nil {
			return err
		}

		batch := Batch{
			Tokens:     chunk,
			Pos:        s.currentPos,
			WantLogits: wantLogitsLast && end == len(tokens),
		}

		if err := s.backend.Decode(batch); err != nil {
			return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}

		s.currentPos += len(chunk)
	}

	return nil
}

// appendToken commits one sampled token to the cache and requests logits for
// the next sampling step.
func (s *session) appendToken(tok Token) error {
	if err := s.ensureRoom(1); err != nil {
		return err
	}

	batch := Batch{Tokens: []Token{tok}, Pos: s.currentPos, WantLogits: true}

	if err := s.backend.Decode(batch); err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	s.currentPos++

	return nil
}
