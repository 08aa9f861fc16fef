package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/biwa/internal/agent"
	"github.com/harunnryd/biwa/internal/config"
	"github.com/harunnryd/biwa/internal/llama"
	"github.com/harunnryd/biwa/internal/memory"
	"github.com/harunnryd/biwa/internal/model"
	"github.com/harunnryd/biwa/internal/model/providers/llamacpp"
	"github.com/harunnryd/biwa/internal/store"
	"github.com/harunnryd/biwa/internal/tool"
	_ "github.com/harunnryd/biwa/internal/tool/builtin"
)

const localModelName = "local"

// routerEmbedder sends embedding requests through the model router so memory
// honors the same model resolution and error wrapping as generation.
type routerEmbedder struct {
	router *model.DefaultRouter
	model  string
}

func (r routerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return r.router.RouteEmbedding(ctx, r.model, text)
}

type BuildOptions struct {
	WorkspaceID string
	SessionID   string
}

// Components wires the whole runtime: store worker, model provider behind
// the router, tool registry/runner, the agent engine, and the llama server
// supervisor.
type Components struct {
	Ctx    context.Context
	Cancel context.CancelFunc

	Config      *config.Config
	WorkspaceID string
	SessionID   string

	StoreWorker  *store.Worker
	Router       *model.DefaultRouter
	ToolRegistry *tool.Registry
	ToolRunner   *tool.Runner
	Engine       *agent.Engine
	Supervisor   *llama.Supervisor
}

func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.WorkspaceID == "" {
		opts.WorkspaceID = config.DefaultWorkspaceID
	}
	if opts.SessionID == "" {
		opts.SessionID = DefaultSessionID
	}
	ctx, cancel := context.WithCancel(ctx)

	c := &Components{
		Ctx:         ctx,
		Cancel:      cancel,
		Config:      cfg,
		WorkspaceID: opts.WorkspaceID,
		SessionID:   opts.SessionID,
	}

	lockTimeout, err := config.DurationOrDefault(cfg.Store.LockTimeout, config.DefaultStoreLockTimeout)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("parse store.lock_timeout: %w", err)
	}
	lockRetry, err := config.DurationOrDefault(cfg.Store.LockRetry, config.DefaultStoreLockRetry)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("parse store.lock_retry: %w", err)
	}

	worker, err := store.NewWorker(opts.WorkspaceID, cfg.Store.WorkspacePath, store.RuntimeConfig{
		LockTimeout:              lockTimeout,
		LockRetry:                lockRetry,
		LockMaxRetry:             cfg.Store.LockMaxRetry,
		InboxSize:                cfg.Store.InboxSize,
		TranscriptRotateMaxBytes: cfg.Store.TranscriptRotateMaxBytes,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("init store worker: %w", err)
	}
	c.StoreWorker = worker
	worker.Start()

	provider := llamacpp.New(llamacpp.Options{
		BaseURL:       cfg.Llama.BaseURL,
		APIKey:        cfg.Llama.APIKey,
		Model:         localModelName,
		SystemPrompt:  cfg.Prompts.System,
		MaxTokens:     cfg.Sampling.MaxTokens,
		Temperature:   cfg.Sampling.Temperature,
		TopP:          cfg.Sampling.TopP,
		RepeatPenalty: cfg.Sampling.RepeatPenalty,
		Stop:          cfg.Sampling.Stop,
	})

	router := model.NewRouter(localModelName)
	router.Register(localModelName, provider)
	c.Router = router

	var mem agent.Memory
	var toolMemory tool.MemoryStore
	if cfg.Memory.Enabled && cfg.Llama.Embeddings {
		m := memory.New(worker, routerEmbedder{router: router, model: localModelName}, cfg.Memory.Collection)
		mem = m
		toolMemory = m
	}

	weatherTimeout, err := config.DurationOrDefault(cfg.Tools.Weather.Timeout, config.DefaultWeatherToolTimeout)
	if err != nil {
		c.Stop()
		return nil, fmt.Errorf("parse tools.weather.timeout: %w", err)
	}

	builtins, err := tool.InstantiateBuiltins(tool.BuiltinOptions{
		WeatherBaseURL: cfg.Tools.Weather.BaseURL,
		WeatherTimeout: weatherTimeout,
		Memory:         toolMemory,
		RecallLimit:    cfg.Tools.Recall.Limit,
		RecallMinSim:   cfg.Tools.Recall.MinSimilarity,
	})
	if err != nil {
		c.Stop()
		return nil, fmt.Errorf("init built-in tools: %w", err)
	}

	registry := tool.NewRegistry()
	for _, t := range builtins {
		registry.Register(t)
	}
	c.ToolRegistry = registry
	c.ToolRunner = tool.NewRunner(registry)

	engine, err := agent.New(router, c.ToolRunner, registry.Definitions(), agent.Options{
		Model:           localModelName,
		MaxTurns:        cfg.Agent.MaxTurns,
		MaxToolsPerTurn: cfg.Agent.MaxToolsPerTurn,
		SessionID:       opts.SessionID,
		Transcript:      worker,
		Memory:          mem,
	})
	if err != nil {
		c.Stop()
		return nil, fmt.Errorf("init agent engine: %w", err)
	}
	c.Engine = engine

	startupTimeout, err := config.DurationOrDefault(cfg.Llama.StartupTimeout, config.DefaultLlamaStartupTimeout)
	if err != nil {
		c.Stop()
		return nil, fmt.Errorf("parse llama.startup_timeout: %w", err)
	}
	c.Supervisor = llama.NewSupervisor(llama.Options{
		Binary:         cfg.Llama.ServerBinary,
		ModelPath:      cfg.Llama.ModelPath,
		Host:           cfg.Llama.Host,
		Port:           cfg.Llama.Port,
		ContextSize:    cfg.Llama.ContextSize,
		Threads:        cfg.Llama.Threads,
		GPULayers:      cfg.Llama.GPULayers,
		Embeddings:     cfg.Llama.Embeddings,
		ExtraArgs:      cfg.Llama.ExtraArgs,
		StartupTimeout: startupTimeout,
		HealthURL:      strings.TrimSuffix(cfg.Llama.BaseURL, "/v1") + "/health",
	})

	slog.Info("Runtime initialized", "workspace", opts.WorkspaceID, "session", opts.SessionID, "tools", registry.Names())
	return c, nil
}

// Start brings the model server up. A managed server that cannot start, or
// an unmanaged one that is not healthy, is fatal.
func (c *Components) Start() error {
	if c.Config.Llama.Manage {
		if err := c.Supervisor.Start(c.Ctx); err != nil {
			return fmt.Errorf("start llama server: %w", err)
		}
		return nil
	}

	if err := c.Supervisor.Health(c.Ctx); err != nil {
		return fmt.Errorf("llama server at %s not reachable: %w", c.Config.Llama.BaseURL, err)
	}
	return nil
}

func (c *Components) Stop() {
	c.Cancel()

	if c.Supervisor != nil && c.Config.Llama.Manage {
		c.Supervisor.Stop()
	}
	if c.StoreWorker != nil {
		c.StoreWorker.Stop()
	}
}
