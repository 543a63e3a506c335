// Package agent runs the turn loop: classify, compress, render, generate,
// dispatch tools, repeat until the model answers in plain text or the turn
// budget runs out.
package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/castor-ai/castor/internal/conversation"
	"github.com/castor-ai/castor/internal/core"
	"github.com/castor-ai/castor/internal/memory"
	"github.com/castor-ai/castor/internal/privacy"
	"github.com/castor-ai/castor/internal/prompt"
	"github.com/castor-ai/castor/internal/provider"
	"github.com/castor-ai/castor/internal/tool"
)

// State is the terminal state of a loop run.
type State string

const (
	StateCompleted State = "completed"
	StateExhausted State = "exhausted"
)

const (
	defaultMaxTurns         = 5
	defaultMaxTokensPerTurn = 1024
	defaultContextTokens    = 4096

	// memoryPromptBudget caps the character length of the remembered-facts
	// block injected into the system prompt.
	memoryPromptBudget = 800

	// Temperature favors fluency on a first plain-text reply and precision
	// once tool calling is in play.
	textTemperature = 0.7
	toolTemperature = 0.3

	failureMessage   = "I'm having trouble generating a response right now. Please try again."
	exhaustedMessage = "I ran out of steps while working on this."
)

const systemPrompt = "You are Castor, a helpful on-device assistant. " +
	"Answer concisely. Use the available tools when they help, " +
	"and answer directly when they do not."

// Options bound a run. The turn and token budgets are runtime configuration,
// not caller inputs: they cap worst-case latency even against a model that
// keeps emitting tool calls.
type Options struct {
	MaxTurns         int
	MaxTokensPerTurn int
	ContextTokens    int
}

func (o Options) withDefaults() Options {
	if o.MaxTurns <= 0 {
		o.MaxTurns = defaultMaxTurns
	}
	if o.MaxTokensPerTurn <= 0 {
		o.MaxTokensPerTurn = defaultMaxTokensPerTurn
	}
	if o.ContextTokens <= 0 {
		o.ContextTokens = defaultContextTokens
	}
	return o
}

// Result is what a run produces, terminal state included. TurnsUsed is
// accurate even when generation fails partway.
type Result struct {
	Response      string
	State         State
	Tier          privacy.Tier
	TurnsUsed     int
	ToolCallsMade int
}

// Loop orchestrates one request at a time. The local generator serializes
// model access internally; the loop itself holds no mutable state between
// runs.
type Loop struct {
	local      provider.Generator
	cloud      provider.CloudProvider
	registry   *tool.Registry
	classifier *privacy.Classifier
	memories   memory.Store
	opts       Options
	logger     *slog.Logger
}

func NewLoop(local provider.Generator, registry *tool.Registry, opts Options, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		local:      local,
		registry:   registry,
		classifier: privacy.NewClassifier(),
		opts:       opts.withDefaults(),
		logger:     logger,
	}
}

// WithCloud enables the cloud tier. Without it every request runs locally
// regardless of classification.
func (l *Loop) WithCloud(cloud provider.CloudProvider) *Loop {
	l.cloud = cloud
	return l
}

// WithMemories injects the persistent store consumed during system prompt
// construction.
func (l *Loop) WithMemories(store memory.Store) *Loop {
	l.memories = store
	return l
}

// Run processes one user input against prior history. System turns in the
// incoming history are dropped; the loop always builds its own.
func (l *Loop) Run(ctx context.Context, input string, history []core.Turn) (Result, error) {
	tier := l.classifier.Classify(input)

	l.logger.Debug("request classified", "tier", tier)

	turns := make([]core.Turn, 0, len(history)+2)
	turns = append(turns, core.Turn{Role: core.RoleSystem, Content: l.buildSystemPrompt()})
	turns = append(turns, conversation.StripSystemTurns(history)...)
	turns = append(turns, core.Turn{Role: core.RoleUser, Content: input})

	result := Result{Tier: tier}

	toolsBlock := l.registry.PromptBlock()
	budget := l.opts.ContextTokens - l.opts.MaxTokensPerTurn - conversation.EstimateTokens(toolsBlock)

	lastResponse := ""

	for turn := 0; turn < l.opts.MaxTurns; turn++ {
		result.TurnsUsed = turn + 1

		compressed := conversation.Compress(turns, budget)

		temperature := toolTemperature
		if turn == 0 && result.ToolCallsMade == 0 {
			temperature = textTemperature
		}

		raw, err := l.generate(ctx, tier, compressed, toolsBlock, temperature)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}

			l.logger.Error("generation failed", "turn", turn, "error", err)

			result.Response = failureMessage
			result.State = StateCompleted
			return result, nil
		}

		lastResponse = raw

		calls := tool.ParseCalls(raw)
		if len(calls) == 0 {
			result.Response = strings.TrimSpace(tool.StripCallMarkup(raw))
			result.State = StateCompleted
			return result, nil
		}

		turns = append(turns, core.Turn{Role: core.RoleAssistant, Content: raw})

		for _, call := range calls {
			result.ToolCallsMade++

			toolResult := l.registry.Dispatch(ctx, call)
			if !toolResult.Success {
				l.logger.Warn("tool call failed", "tool", call.Name, "error", toolResult.Error)
			}

			turns = append(turns, core.Turn{
				Role:    core.RoleTool,
				Content: prompt.RenderToolResult(toolResult),
			})
		}
	}

	stripped := strings.TrimSpace(tool.StripCallMarkup(lastResponse))

	result.State = StateExhausted
	result.Response = exhaustedMessage
	if stripped != "" {
		result.Response = exhaustedMessage + " " + stripped
	}

	return result, nil
}

func (l *Loop) generate(ctx context.Context, tier privacy.Tier, turns []core.Turn, toolsBlock string, temperature float64) (string, error) {
	if l.cloud != nil && tier != privacy.TierLocal {
		text, err := l.generateCloud(ctx, tier, turns, temperature)
		if err == nil {
			return text, nil
		}

		l.logger.Warn("cloud generation failed, falling back to local", "error", err)
	}

	opts := core.DefaultSampling()
	opts.Temperature = temperature
	opts.MaxTokens = l.opts.MaxTokensPerTurn

	return l.local.Generate(ctx, prompt.Render(turns, toolsBlock), opts)
}

func (l *Loop) generateCloud(ctx context.Context, tier privacy.Tier, turns []core.Turn, temperature float64) (string, error) {
	transcript := prompt.Transcript(turns)
	if tier == privacy.TierAnonymized {
		transcript = l.classifier.Redact(transcript)
	}

	text, err := l.cloud.GenerateText(ctx, transcript, l.buildSystemPrompt(), l.opts.MaxTokensPerTurn, temperature)
	if err != nil {
		return "", err
	}

	if tier == privacy.TierAnonymized && !l.classifier.AuditResponse(text) {
		return "", &provider.CloudError{Provider: "audit", Err: errRedactedLeak}
	}

	return text, nil
}

func (l *Loop) buildSystemPrompt() string {
	sb := strings.Builder{}
	sb.WriteString(systemPrompt)

	if l.memories != nil {
		if block := memory.PromptBlock(l.memories, memoryPromptBudget); block != "" {
			sb.WriteString("\n\n")
			sb.WriteString(block)
		}
	}

	return sb.String()
}
