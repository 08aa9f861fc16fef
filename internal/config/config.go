package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harunnryd/biwa/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Agent    AgentConfig    `koanf:"agent"`
	Llama    LlamaConfig    `koanf:"llama"`
	Sampling SamplingConfig `koanf:"sampling"`
	Prompts  PromptsConfig  `koanf:"prompts"`
	Store    StoreConfig    `koanf:"store"`
	Tools    ToolsConfig    `koanf:"tools"`
	Memory   MemoryConfig   `koanf:"memory"`
}

type AgentConfig struct {
	LogLevel        string `koanf:"log_level"`
	MaxTurns        int    `koanf:"max_turns"`
	MaxToolsPerTurn int    `koanf:"max_tools_per_turn"`
	HistoryLimit    int    `koanf:"history_limit"`
}

// LlamaConfig describes the local GGUF model and the llama.cpp server that
// serves it. When Manage is true the runtime spawns and supervises the
// server; otherwise it attaches to BaseURL.
type LlamaConfig struct {
	ModelPath      string `koanf:"model_path"`
	ServerBinary   string `koanf:"server_binary"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	ContextSize    int    `koanf:"context_size"`
	Threads        int    `koanf:"threads"`
	GPULayers      int    `koanf:"gpu_layers"`
	Manage         bool   `koanf:"manage"`
	Embeddings     bool   `koanf:"embeddings"`
	StartupTimeout string `koanf:"startup_timeout"`
	ExtraArgs      string `koanf:"extra_args"`
}

type SamplingConfig struct {
	MaxTokens     int      `koanf:"max_tokens"`
	Temperature   float64  `koanf:"temperature"`
	TopP          float64  `koanf:"top_p"`
	RepeatPenalty float64  `koanf:"repeat_penalty"`
	Stop          []string `koanf:"stop"`
}

type PromptsConfig struct {
	System string `koanf:"system"`
}

type StoreConfig struct {
	WorkspaceID              string `koanf:"workspace_id"`
	WorkspacePath            string `koanf:"workspace_path"`
	LockTimeout              string `koanf:"lock_timeout"`
	LockRetry                string `koanf:"lock_retry"`
	LockMaxRetry             int    `koanf:"lock_max_retry"`
	InboxSize                int    `koanf:"inbox_size"`
	TranscriptRotateMaxBytes int64  `koanf:"transcript_rotate_max_bytes"`
}

type ToolsConfig struct {
	Weather WeatherToolConfig `koanf:"weather"`
	Recall  RecallToolConfig  `koanf:"recall"`
}

type WeatherToolConfig struct {
	BaseURL string `koanf:"base_url"`
	Timeout string `koanf:"timeout"`
}

type RecallToolConfig struct {
	Limit         int     `koanf:"limit"`
	MinSimilarity float64 `koanf:"min_similarity"`
}

type MemoryConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Collection string `koanf:"collection"`
}

const (
	DefaultWorkspaceID     = "default"
	DefaultAgentLogLevel   = "info"
	DefaultAgentMaxTurns   = 20
	DefaultMaxToolsPerTurn = 8
	DefaultHistoryLimit    = 20

	DefaultLlamaModelPath      = "models/llama-3.1-8b-instruct-q4_k_m.gguf"
	DefaultLlamaServerBinary   = "llama-server"
	DefaultLlamaHost           = "127.0.0.1"
	DefaultLlamaPort           = 8012
	DefaultLlamaAPIKey         = "biwa"
	DefaultLlamaContextSize    = 8192
	DefaultLlamaThreads        = 12
	DefaultLlamaGPULayers      = 28
	DefaultLlamaStartupTimeout = "120s"

	DefaultSamplingMaxTokens     = 1024
	DefaultSamplingTemperature   = 0.7
	DefaultSamplingTopP          = 0.9
	DefaultSamplingRepeatPenalty = 1.1

	DefaultSystemPrompt = "You are a helpful assistant with access to tools."

	DefaultStoreLockTimeout              = "30s"
	DefaultStoreLockRetry                = "100ms"
	DefaultStoreLockMaxRetry             = 300
	DefaultStoreInboxSize                = 100
	DefaultStoreTranscriptRotateMaxBytes = 10 * 1024 * 1024

	DefaultWeatherToolBaseURL = "https://wttr.in"
	DefaultWeatherToolTimeout = "10s"
	DefaultRecallLimit        = 5
	DefaultRecallMinScore     = 0.2

	DefaultMemoryEnabled    = true
	DefaultMemoryCollection = "turns"
)

// DefaultStopTokens terminate llama3-format generations.
func DefaultStopTokens() []string {
	return []string{"<|eot_id|>", "<|end_of_text|>"}
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"agent.log_level":                   DefaultAgentLogLevel,
		"agent.max_turns":                   DefaultAgentMaxTurns,
		"agent.max_tools_per_turn":          DefaultMaxToolsPerTurn,
		"agent.history_limit":               DefaultHistoryLimit,
		"llama.model_path":                  DefaultLlamaModelPath,
		"llama.server_binary":               DefaultLlamaServerBinary,
		"llama.host":                        DefaultLlamaHost,
		"llama.port":                        DefaultLlamaPort,
		"llama.api_key":                     DefaultLlamaAPIKey,
		"llama.context_size":                DefaultLlamaContextSize,
		"llama.threads":                     DefaultLlamaThreads,
		"llama.gpu_layers":                  DefaultLlamaGPULayers,
		"llama.manage":                      true,
		"llama.embeddings":                  true,
		"llama.startup_timeout":             DefaultLlamaStartupTimeout,
		"sampling.max_tokens":               DefaultSamplingMaxTokens,
		"sampling.temperature":              DefaultSamplingTemperature,
		"sampling.top_p":                    DefaultSamplingTopP,
		"sampling.repeat_penalty":           DefaultSamplingRepeatPenalty,
		"sampling.stop":                     DefaultStopTokens(),
		"prompts.system":                    DefaultSystemPrompt,
		"store.workspace_id":                DefaultWorkspaceID,
		"store.workspace_path":              filepath.Join(os.Getenv("HOME"), ".biwa", "workspaces"),
		"store.lock_timeout":                DefaultStoreLockTimeout,
		"store.lock_retry":                  DefaultStoreLockRetry,
		"store.lock_max_retry":              DefaultStoreLockMaxRetry,
		"store.inbox_size":                  DefaultStoreInboxSize,
		"store.transcript_rotate_max_bytes": DefaultStoreTranscriptRotateMaxBytes,
		"tools.weather.base_url":            DefaultWeatherToolBaseURL,
		"tools.weather.timeout":             DefaultWeatherToolTimeout,
		"tools.recall.limit":                DefaultRecallLimit,
		"tools.recall.min_similarity":       DefaultRecallMinScore,
		"memory.enabled":                    DefaultMemoryEnabled,
		"memory.collection":                 DefaultMemoryCollection,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".biwa", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment Variables. Double underscore separates sections so keys
	// with underscores survive: BIWA_AGENT__MAX_TURNS -> agent.max_turns.
	k.Load(env.Provider("BIWA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "BIWA_")), "__", ".", -1)
	}), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	if cfg.Llama.BaseURL == "" {
		cfg.Llama.BaseURL = fmt.Sprintf("http://%s:%d/v1", cfg.Llama.Host, cfg.Llama.Port)
	}
	cfg.Llama.BaseURL = strings.TrimSuffix(cfg.Llama.BaseURL, "/")

	return &cfg, nil
}

// Durations live in config as strings ("30s", "100ms") so an unset field is
// distinguishable from an explicit zero. DurationOrDefault parses value,
// falling back to defaultValue when value is blank.
func DurationOrDefault(value string, defaultValue string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		raw = strings.TrimSpace(defaultValue)
	}
	if raw == "" {
		return 0, fmt.Errorf("empty duration")
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	return d, nil
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	modelPath, err := pathutil.Expand(cfg.Llama.ModelPath)
	if err != nil {
		return err
	}
	if modelPath != "" {
		cfg.Llama.ModelPath = modelPath
	}

	workspacePath, err := pathutil.Expand(cfg.Store.WorkspacePath)
	if err != nil {
		return err
	}
	if workspacePath != "" {
		cfg.Store.WorkspacePath = workspacePath
	}

	return nil
}
