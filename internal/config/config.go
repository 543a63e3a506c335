package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EngineConfig drives the in-process inference backend when one is
// linked in. ModelPath left empty means the llama-server provider
// handles the local tier instead.
type EngineConfig struct {
	ModelPath      string `toml:"model_path"`
	ContextSize    int    `toml:"context_size"`
	Threads        int    `toml:"threads"`
	GPULayers      int    `toml:"gpu_layers"`
	UseMmap        bool   `toml:"use_mmap"`
	FlashAttention bool   `toml:"flash_attention"`
	BatchSize      int    `toml:"batch_size"`
	ShiftMargin    int    `toml:"shift_margin"`
}

type LlamaServerConfig struct {
	Endpoint     string        `toml:"endpoint"`
	BinPath      string        `toml:"bin_path"`
	AutoStart    bool          `toml:"auto_start"`
	InheritStdio bool          `toml:"inherit_stdio"`
	ModelPath    string        `toml:"model_path"`
	ContextSize  int           `toml:"context_size"`
	GPULayers    int           `toml:"gpu_layers"`
	StartupWait  time.Duration `toml:"startup_wait"`
	HTTPTimeout  time.Duration `toml:"http_timeout"`
}

type AgentConfig struct {
	MaxTurns         int `toml:"max_turns"`
	MaxTokensPerTurn int `toml:"max_tokens_per_turn"`
}

type CloudConfig struct {
	Enabled   bool   `toml:"enabled"`
	APIKeyEnv string `toml:"api_key_env"`
	Model     string `toml:"model"`
}

type Config struct {
	Bind    string            `toml:"bind"`
	DataDir string            `toml:"data_dir"`
	Engine  EngineConfig      `toml:"engine"`
	Llama   LlamaServerConfig `toml:"llama_server"`
	Agent   AgentConfig       `toml:"agent"`
	Cloud   CloudConfig       `toml:"cloud"`
}

func Default() Config {
	return Config{
		Bind:    ":8090",
		DataDir: defaultDataDir(),
		Engine: EngineConfig{
			ContextSize:    4096,
			Threads:        4,
			GPULayers:      0,
			UseMmap:        true,
			FlashAttention: false,
			BatchSize:      512,
			ShiftMargin:    4,
		},
		Llama: LlamaServerConfig{
			Endpoint:    "http://127.0.0.1:8080",
			AutoStart:   false,
			ContextSize: 4096,
			StartupWait: 10 * time.Second,
			HTTPTimeout: 300 * time.Second,
		},
		Agent: AgentConfig{
			MaxTurns:         5,
			MaxTokensPerTurn: 1024,
		},
		Cloud: CloudConfig{
			Enabled:   false,
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
	}
}

// DefaultPath returns the config file location under the user's data dir.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.toml")
}

// LoadOrCreate reads the config at path, writing the defaults there
// first if no file exists yet.
func LoadOrCreate(path string) (Config, error) {
	config := Default()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return config, err
			}

			configData, err := toml.Marshal(config)
			if err != nil {
				return config, err
			}

			if err := os.WriteFile(path, configData, 0o644); err != nil {
				return config, err
			}

			return config, nil
		}

		return config, err
	}

	configData, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := toml.Unmarshal(configData, &config); err != nil {
		return config, err
	}

	config.DataDir = expandPath(config.DataDir)
	config.Engine.ModelPath = expandPath(config.Engine.ModelPath)
	config.Llama.ModelPath = expandPath(config.Llama.ModelPath)
	config.Llama.Endpoint = strings.TrimSpace(config.Llama.Endpoint)
	config.Bind = strings.TrimSpace(config.Bind)

	if config.Llama.Endpoint == "" {
		return config, errors.New("llama_server.endpoint is required")
	}

	if config.Bind == "" {
		config.Bind = ":8090"
	}

	if config.Agent.MaxTurns <= 0 {
		config.Agent.MaxTurns = 5
	}

	if config.Agent.MaxTokensPerTurn <= 0 {
		config.Agent.MaxTokensPerTurn = 1024
	}

	return config, nil
}

// CloudAPIKey resolves the cloud API key from the configured
// environment variable. Empty when the cloud tier is unavailable.
func (c Config) CloudAPIKey() string {
	if !c.Cloud.Enabled {
		return ""
	}

	env := c.Cloud.APIKeyEnv
	if env == "" {
		env = "ANTHROPIC_API_KEY"
	}

	return os.Getenv(env)
}

func defaultDataDir() string {
	homeDir, _ := os.UserHomeDir()

	if homeDir == "" {
		return ".castor"
	}

	return filepath.Join(homeDir, ".castor")
}

func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()

		if homeDir != "" {
			trimmed := strings.TrimPrefix(path, "~")
			trimmed = strings.TrimPrefix(trimmed, string(os.PathSeparator))

			return filepath.Join(homeDir, trimmed)
		}
	}

	return path
}
