// Package engine drives a causal language model through token-level decode
// and sample primitives. The engine owns the model session's KV-cache
// bookkeeping: batching, sliding-window eviction, sampling, and UTF-8 safe
// output assembly. The native binding itself sits behind the Backend
// interface and is supplied by the caller.
package engine

import "errors"

// Token is a model vocabulary id.
type Token int32

// Batch is a contiguous run of tokens decoded in one backend call. Pos is
// the cache position of Tokens[0]; WantLogits requests logits for the last
// entry so the next token can be sampled.
type Batch struct {
	Tokens     []Token
	Pos        int
	WantLogits bool
}

// ModelParams configure a model load.
type ModelParams struct {
	Path           string
	ContextSize    int
	Threads        int
	GPULayers      int
	UseMmap        bool
	FlashAttention bool
}

// Backend is the decode/sample surface a causal-LM binding must expose.
// Implementations own the weights and the KV-cache storage; the engine owns
// all position bookkeeping. A Backend is not safe for concurrent use; the
// engine serializes access.
type Backend interface {
	// Tokenize converts text to vocabulary ids.
	Tokenize(text string) ([]Token, error)

	// Decode appends the batch to the KV-cache. Logits for the final entry
	// are available afterwards when batch.WantLogits is set.
	Decode(batch Batch) error

	// Logits returns the vocabulary logits produced by the last decode that
	// requested them.
	Logits() ([]float32, error)

	// Piece renders a token as text. Pieces may split multi-byte sequences;
	// callers must reassemble before treating output as valid text.
	Piece(tok Token) string

	// IsEOG reports whether the token ends generation.
	IsEOG(tok Token) bool

	// RemoveRange evicts cache entries in [from, to).
	RemoveRange(from, to int) error

	// MoveRange shifts cache entries in [from, to) by delta positions.
	MoveRange(from, to, delta int) error

	// Clear drops all cache entries but keeps the weights loaded.
	Clear() error

	// Close releases the model and all native resources.
	Close() error
}

// Loader creates a Backend for the given parameters. The llama.cpp binding
// implements this; tests supply scripted backends.
type Loader interface {
	Load(params ModelParams) (Backend, error)
}

var (
	// ErrModelNotLoaded rejects operations before any native state is touched.
	ErrModelNotLoaded = errors.New("engine: model not loaded")

	// ErrDecodeFailed wraps native decode errors. The generation call fails
	// as a whole; no partial output is promised.
	ErrDecodeFailed = errors.New("engine: decode failed")
)
