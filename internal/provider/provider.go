// Package provider supplies text generators to the agent loop: the
// in-process engine, a supervised local llama-server, and the cloud model
// used for requests the privacy classifier routes off device.
package provider

import (
	"context"
	"fmt"

	"github.com/castor-ai/castor/internal/core"
)

// Generator produces a completion from a fully rendered prompt. The
// in-process engine and the llama-server provider both satisfy it.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts core.Sampling) (string, error)
}

// CloudProvider is the off-device model contract. It is only invoked when
// the privacy classifier selects the cloud or anonymized tier. Failures
// surface as *CloudError, never as silently empty text.
type CloudProvider interface {
	GenerateText(ctx context.Context, prompt, systemPrompt string, maxTokens int, temperature float64) (string, error)
	GenerateTextStream(ctx context.Context, prompt, systemPrompt string, maxTokens int, temperature float64, onDelta func(string)) (string, error)
}

// CloudError distinguishes cloud-provider failures from local ones so the
// loop can degrade gracefully.
type CloudError struct {
	Provider string
	Err      error
}

func (e *CloudError) Error() string {
	return fmt.Sprintf("cloud provider %s: %v", e.Provider, e.Err)
}

func (e *CloudError) Unwrap() error { return e.Err }
