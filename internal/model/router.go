package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	biwaErrors "github.com/harunnryd/biwa/internal/errors"
	"github.com/harunnryd/biwa/internal/logger"
	"github.com/harunnryd/biwa/internal/model/contract"
)

// DefaultRouter resolves model names to providers. A single local backend
// ships today; the indirection keeps generation callers ignorant of how the
// model is actually served.
type DefaultRouter struct {
	defaultModel string
	providers    map[string]Provider
	mu           sync.RWMutex
}

func NewRouter(defaultModel string) *DefaultRouter {
	return &DefaultRouter{
		defaultModel: defaultModel,
		providers:    make(map[string]Provider),
	}
}

// Register adds a provider under a model name. Registration happens at
// startup, before any Route call.
func (r *DefaultRouter) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
}

func (r *DefaultRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	provider, err := r.resolve(ctx, model)
	if err != nil {
		return nil, err
	}

	resp, err := provider.Generate(ctx, req)
	if err != nil {
		slog.Error("Provider request failed",
			"model", model,
			"provider", provider.Name(),
			"category", biwaErrors.Category(err),
			"error", err,
			"turn_id", logger.GetTurnID(ctx),
		)
		return nil, biwaErrors.Wrap(err, "provider request failed")
	}
	return resp, nil
}

func (r *DefaultRouter) RouteEmbedding(ctx context.Context, model string, text string) ([]float32, error) {
	provider, err := r.resolve(ctx, model)
	if err != nil {
		return nil, err
	}

	embedding, err := provider.Embed(ctx, text)
	if err != nil {
		return nil, biwaErrors.Wrap(err, "embedding failed")
	}
	return embedding, nil
}

func (r *DefaultRouter) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.providers))
	for name := range r.providers {
		models = append(models, name)
	}
	sort.Strings(models)
	return models
}

func (r *DefaultRouter) Health(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, provider := range r.providers {
		if err := provider.Health(ctx); err != nil {
			slog.Warn("Provider unhealthy", "provider", name, "error", err)
			return biwaErrors.Transient(fmt.Sprintf("model %s unhealthy", name))
		}
	}
	return nil
}

func (r *DefaultRouter) resolve(ctx context.Context, model string) (Provider, error) {
	select {
	case <-ctx.Done():
		return nil, biwaErrors.Wrap(ctx.Err(), "provider resolution cancelled")
	default:
	}

	if model == "" {
		model = r.defaultModel
	}

	r.mu.RLock()
	provider, exists := r.providers[model]
	if !exists && model != r.defaultModel {
		provider, exists = r.providers[r.defaultModel]
		if exists {
			slog.Warn("Model not found, using default", "model", model, "default", r.defaultModel)
		}
	}
	r.mu.RUnlock()

	if !exists {
		return nil, biwaErrors.NotFound(fmt.Sprintf("model %s not found", model))
	}
	return provider, nil
}
