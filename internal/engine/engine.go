package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/castor-ai/castor/internal/core"
)

// Config tunes the engine's decode behavior. Zero values fall back to the
// defaults below.
type Config struct {
	// BatchSize is the number of tokens decoded per backend call.
	BatchSize int

	// ShiftMargin is the safety margin, in tokens, kept between the
	// committed position and the context window before a shift triggers.
	ShiftMargin int

	// Seed fixes the sampling RNG; 0 draws a fresh seed per generation.
	Seed uint64
}

const (
	defaultBatchSize   = 512
	defaultShiftMargin = 4
)

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.ShiftMargin <= 0 {
		c.ShiftMargin = defaultShiftMargin
	}

	return c
}

// Engine wraps a Backend behind load/unload/generate/stream/tokenize. One
// model is active at a time and one generation runs at a time; the mutex is
// the single-writer boundary the native core relies on.
type Engine struct {
	mu      sync.Mutex
	loader  Loader
	backend Backend
	sess    *session
	params  ModelParams
	cfg     Config
	logger  *slog.Logger
}

// New creates an engine that obtains backends from the given loader.
func New(loader Loader, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		loader: loader,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// LoadModel loads the model at params.Path, unloading any active model
// first. Load is exclusive with in-flight generations.
func (e *Engine) LoadModel(params ModelParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Warn("unload before reload failed", "error", err)
		}
		e.backend = nil
		e.sess = nil
	}

	e.logger.Info("loading model",
		"path", params.Path,
		"context_size", params.ContextSize,
		"threads", params.Threads,
		"gpu_layers", params.GPULayers,
	)

	backend, err := e.loader.Load(params)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	e.backend = backend
	e.params = params
	e.sess = newSession(backend, params.ContextSize, e.cfg.BatchSize, e.cfg.ShiftMargin, e.logger)

	return nil
}

// Unload releases the active model. It is a no-op when nothing is loaded.
func (e *Engine) Unload() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil {
		return nil
	}

	err := e.backend.Close()
	e.backend = nil
	e.sess = nil

	return err
}

// Loaded reports whether a model is active.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.backend != nil
}

// Tokenize converts text to token ids using the loaded model's vocabulary.
func (e *Engine) Tokenize(text string) ([]Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil {
		return nil, ErrModelNotLoaded
	}

	return e.backend.Tokenize(text)
}

// Generate runs one fresh, independent generation: the cache is cleared,
// the prompt is decoded, and tokens are sampled until end-of-generation or
// opts.MaxTokens. The trailing output is trimmed to complete UTF-8.
func (e *Engine) Generate(ctx context.Context, prompt string, opts core.Sampling) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil {
		return "", ErrModelNotLoaded
	}

	tokens, err := e.preparePrompt(ctx, prompt, opts)
	if err != nil {
		return "", err
	}

	sampler := NewSampler(opts, e.seed())

	var out []byte

	err = e.decodeLoop(ctx, tokens, sampler, opts.MaxTokens, func(piece string) {
		out = append(out, piece...)
	})
	if err != nil {
		return "", err
	}

	return string(trimIncompleteUTF8(out)), nil
}

// GenerateStream runs a generation like Generate but emits text
// incrementally on the returned channel. Only complete UTF-8 chunks are
// emitted; a trailing incomplete sequence is held back. The stream is
// cancellable through ctx; the channel closes once generation ends.
func (e *Engine) GenerateStream(ctx context.Context, prompt string, opts core.Sampling) (<-chan Delta, error) {
	e.mu.Lock()

	if e.backend == nil {
		e.mu.Unlock()
		return nil, ErrModelNotLoaded
	}

	tokens, err := e.preparePrompt(ctx, prompt, opts)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	sampler := NewSampler(opts, e.seed())
	deltas := make(chan Delta, 16)

	go func() {
		defer e.mu.Unlock()
		defer close(deltas)

		var buf chunker

		err := e.decodeLoop(ctx, tokens, sampler, opts.MaxTokens, func(piece string) {
			if text, ok := buf.add(piece); ok {
				select {
				case deltas <- Delta{Text: text}:
				case <-ctx.Done():
				}
			}
		})
		if err != nil {
			select {
			case deltas <- Delta{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return deltas, nil
}

// preparePrompt resets the session, tokenizes the prompt, and right-truncates
// it so the requested completion still fits the window. Truncation is lossy
// and therefore logged. Must be called with the mutex held.
func (e *Engine) preparePrompt(ctx context.Context, prompt string, opts core.Sampling) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.sess.reset(); err != nil {
		return nil, fmt.Errorf("reset session: %w", err)
	}

	tokens, err := e.backend.Tokenize(prompt)
	if err != nil {
		return nil, fmt.Errorf("tokenize prompt: %w", err)
	}

	maxPrompt := e.params.ContextSize - opts.MaxTokens - e.cfg.ShiftMargin
	if maxPrompt < 1 {
		maxPrompt = 1
	}

	if len(tokens) > maxPrompt {
		e.logger.Warn("prompt truncated",
			"prompt_tokens", len(tokens),
			"max_prompt", maxPrompt,
		)
		tokens = tokens[:maxPrompt]
	}

	return tokens, nil
}

// decodeLoop decodes the prompt, then samples up to maxTokens tokens,
// invoking emit for each piece. Must be called with the mutex held.
func (e *Engine) decodeLoop(ctx context.Context, prompt []Token, sampler *Sampler, maxTokens int, emit func(string)) error {
	if err := e.sess.decodeAll(ctx, prompt, true); err != nil {
		return err
	}

	for i := 0; i < maxTokens; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		logits, err := e.backend.Logits()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}

		tok := sampler.Sample(logits)
		sampler.Accept(tok)

		if e.backend.IsEOG(tok) {
			return nil
		}

		emit(e.backend.Piece(tok))

		if err := e.sess.appendToken(tok); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) seed() uint64 {
	if e.cfg.Seed != 0 {
		return e.cfg.Seed
	}

	return rand.Uint64()
}
