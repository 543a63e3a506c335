package cli

import (
	"log/slog"
	"testing"

	"github.com/castor-ai/castor/internal/config"
	"github.com/castor-ai/castor/internal/provider"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestBuildGeneratorDefaultsToLlamaServer(t *testing.T) {
	cfg := config.Default()
	llama := provider.NewLlamaServer(cfg.Llama)

	generator, contextTokens, err := buildGenerator(cfg, llama, quietLogger())
	if err != nil {
		t.Fatalf("buildGenerator: %v", err)
	}

	if generator != provider.Generator(llama) {
		t.Error("expected the llama-server provider")
	}
	if contextTokens != cfg.Llama.ContextSize {
		t.Errorf("context tokens = %d, want %d", contextTokens, cfg.Llama.ContextSize)
	}
}

func TestBuildGeneratorFallsBackWithoutBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.ModelPath = "/models/test.gguf"
	llama := provider.NewLlamaServer(cfg.Llama)

	generator, contextTokens, err := buildGenerator(cfg, llama, quietLogger())
	if err != nil {
		t.Fatalf("buildGenerator: %v", err)
	}

	if generator != provider.Generator(llama) {
		t.Error("without a linked backend the llama-server provider should serve")
	}
	if contextTokens != cfg.Llama.ContextSize {
		t.Errorf("context tokens = %d, want %d", contextTokens, cfg.Llama.ContextSize)
	}
}
