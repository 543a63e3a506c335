package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/castor-ai/castor/internal/config"
)

func TestNewFromConfig(t *testing.T) {
	backend := newFakeBackend([]string{"", "4", "2", "<eog>"}, []Token{1, 2})
	loader := &fakeLoader{backend: backend}

	cfg := config.EngineConfig{
		ModelPath:      "model.gguf",
		ContextSize:    2048,
		Threads:        4,
		GPULayers:      8,
		UseMmap:        true,
		FlashAttention: true,
		BatchSize:      256,
		ShiftMargin:    4,
	}

	eng, err := NewFromConfig(loader, cfg, quietLogger())
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}

	if !eng.Loaded() {
		t.Fatal("engine should have a loaded model")
	}

	want := ModelParams{
		Path:           "model.gguf",
		ContextSize:    2048,
		Threads:        4,
		GPULayers:      8,
		UseMmap:        true,
		FlashAttention: true,
	}
	if loader.params != want {
		t.Errorf("load params = %+v, want %+v", loader.params, want)
	}

	out, err := eng.Generate(context.Background(), "p", greedy(8))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "42" {
		t.Errorf("output = %q, want %q", out, "42")
	}
}

func TestNewFromConfig_LoadFailure(t *testing.T) {
	loader := &fakeLoader{err: errors.New("bad model file")}

	if _, err := NewFromConfig(loader, config.EngineConfig{ModelPath: "x.gguf"}, quietLogger()); err == nil {
		t.Fatal("expected load error")
	}
}
