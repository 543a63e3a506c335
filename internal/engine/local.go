package engine

import (
	"log/slog"

	"github.com/castor-ai/castor/internal/config"
)

// NewFromConfig builds an engine from the engine config section and loads
// the configured model through the given loader.
func NewFromConfig(loader Loader, cfg config.EngineConfig, logger *slog.Logger) (*Engine, error) {
	eng := New(loader, Config{
		BatchSize:   cfg.BatchSize,
		ShiftMargin: cfg.ShiftMargin,
	}, logger)

	params := ModelParams{
		Path:           cfg.ModelPath,
		ContextSize:    cfg.ContextSize,
		Threads:        cfg.Threads,
		GPULayers:      cfg.GPULayers,
		UseMmap:        cfg.UseMmap,
		FlashAttention: cfg.FlashAttention,
	}

	if err := eng.LoadModel(params); err != nil {
		return nil, err
	}

	return eng, nil
}
