package provider

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
)

const (
	defaultCloudModel = "claude-sonnet-4-20250514"

	retryInitialInterval = time.Second
	retryMaxInterval     = 30 * time.Second
	maxRetries           = 3
)

// AnthropicProvider implements CloudProvider against the Anthropic Messages
// API. Transient API errors are retried with exponential backoff and
// jitter; exhausted retries surface as *CloudError.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = defaultCloudModel
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *AnthropicProvider) GenerateText(ctx context.Context, prompt, systemPrompt string, maxTokens int, temperature float64) (string, error) {
	params := p.buildParams(prompt, systemPrompt, maxTokens, temperature)

	var text string

	operation := func() error {
		message, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return err
		}

		text = collectText(message)
		if text == "" {
			return backoff.Permanent(errors.New("empty completion"))
		}

		return nil
	}

	if err := backoff.Retry(operation, p.newBackoff(ctx)); err != nil {
		return "", &CloudError{Provider: "anthropic", Err: err}
	}

	return text, nil
}

func (p *AnthropicProvider) GenerateTextStream(ctx context.Context, prompt, systemPrompt string, maxTokens int, temperature float64, onDelta func(string)) (string, error) {
	params := p.buildParams(prompt, systemPrompt, maxTokens, temperature)

	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var full string

	for stream.Next() {
		event := stream.Current()

		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok {
				full += delta.Text
				if onDelta != nil {
					onDelta(delta.Text)
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return "", &CloudError{Provider: "anthropic", Err: err}
	}

	if full == "" {
		return "", &CloudError{Provider: "anthropic", Err: errors.New("empty completion")}
	}

	return full, nil
}

func (p *AnthropicProvider) buildParams(prompt, systemPrompt string, maxTokens int, temperature float64) anthropic.MessageNewParams {
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	return params
}

func (p *AnthropicProvider) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval

	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

func collectText(message *anthropic.Message) string {
	var out string

	for _, block := range message.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}

	return out
}
