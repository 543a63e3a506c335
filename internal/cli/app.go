package cli

import (
	"log/slog"

	"github.com/castor-ai/castor/internal/agent"
	"github.com/castor-ai/castor/internal/config"
	"github.com/castor-ai/castor/internal/engine"
	"github.com/castor-ai/castor/internal/memory"
	"github.com/castor-ai/castor/internal/provider"
	"github.com/castor-ai/castor/internal/tool"
	"github.com/castor-ai/castor/internal/tool/builtin"
)

// app holds the wired runtime shared by the run and serve commands.
type app struct {
	cfg   config.Config
	loop  *agent.Loop
	llama *provider.LlamaServer
}

func buildApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	store, err := memory.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	registry := tool.NewRegistry()
	builtin.RegisterAll(registry, store)

	llama := provider.NewLlamaServer(cfg.Llama)

	generator, contextTokens, err := buildGenerator(cfg, llama, logger)
	if err != nil {
		return nil, err
	}

	opts := agent.Options{
		MaxTurns:         cfg.Agent.MaxTurns,
		MaxTokensPerTurn: cfg.Agent.MaxTokensPerTurn,
		ContextTokens:    contextTokens,
	}

	loop := agent.NewLoop(generator, registry, opts, logger).WithMemories(store)

	if key := cfg.CloudAPIKey(); key != "" {
		loop.WithCloud(provider.NewAnthropicProvider(key, cfg.Cloud.Model))
		logger.Debug("cloud tier enabled", "model", cfg.Cloud.Model)
	}

	return &app{cfg: cfg, loop: loop, llama: llama}, nil
}

// buildGenerator picks the local tier: the in-process engine when a model
// path is configured and a backend is linked in, the llama-server provider
// otherwise.
func buildGenerator(cfg config.Config, llama *provider.LlamaServer, logger *slog.Logger) (provider.Generator, int, error) {
	if cfg.Engine.ModelPath != "" {
		if loader := backendLoader(); loader != nil {
			eng, err := engine.NewFromConfig(loader, cfg.Engine, logger)
			if err != nil {
				return nil, 0, err
			}

			logger.Debug("in-process engine loaded", "model", cfg.Engine.ModelPath)
			return eng, cfg.Engine.ContextSize, nil
		}

		logger.Warn("engine.model_path is set but no in-process backend is linked in, using llama-server")
	}

	return llama, cfg.Llama.ContextSize, nil
}

func (a *app) close() {
	a.llama.Stop()
}
