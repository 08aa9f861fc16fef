// Package llamacpp drives a local GGUF model through the OpenAI-compatible
// API of a llama.cpp server. Generation runs in raw completion mode with a
// llama3-format prompt; tool calls are parsed back out of the returned text
// because local models have no structured tool-use channel.
package llamacpp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	biwaErrors "github.com/harunnryd/biwa/internal/errors"
	"github.com/harunnryd/biwa/internal/model/contract"
	"github.com/harunnryd/biwa/internal/model/toolparse"

	"github.com/sashabaranov/go-openai"
)

type Options struct {
	BaseURL       string
	APIKey        string
	Model         string
	SystemPrompt  string
	MaxTokens     int
	Temperature   float64
	TopP          float64
	RepeatPenalty float64
	Stop          []string
}

type Provider struct {
	client    *openai.Client
	httpc     *http.Client
	healthURL string
	opts      Options
}

func New(opts Options) *Provider {
	if opts.Model == "" {
		opts.Model = "local"
	}
	if opts.APIKey == "" {
		// llama-server ignores the key but the client requires one.
		opts.APIKey = "biwa"
	}

	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = baseURL

	return &Provider{
		client:    openai.NewClientWithConfig(cfg),
		httpc:     &http.Client{Timeout: 5 * time.Second},
		healthURL: strings.TrimSuffix(baseURL, "/v1") + "/health",
		opts:      opts,
	}
}

func (p *Provider) Name() string {
	return "llamacpp"
}

func (p *Provider) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	prompt, err := RenderPrompt(req, p.opts.SystemPrompt)
	if err != nil {
		return nil, err
	}

	// The OpenAI completion surface has no repeat_penalty; llama.cpp maps
	// frequency_penalty onto an equivalent repetition control, offset by 1.
	frequencyPenalty := float32(p.opts.RepeatPenalty - 1.0)
	if frequencyPenalty < 0 {
		frequencyPenalty = 0
	}

	resp, err := p.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:            p.opts.Model,
		Prompt:           prompt,
		MaxTokens:        p.opts.MaxTokens,
		Temperature:      float32(p.opts.Temperature),
		TopP:             float32(p.opts.TopP),
		FrequencyPenalty: frequencyPenalty,
		Stop:             p.opts.Stop,
	})
	if err != nil {
		return nil, biwaErrors.Wrap(biwaErrors.MapError(err), "llamacpp request failed")
	}
	if len(resp.Choices) == 0 {
		return nil, biwaErrors.InvalidModelOutput("no choices returned")
	}

	content := strings.TrimSpace(resp.Choices[0].Text)
	result := &contract.CompletionResponse{Content: content}

	for i, call := range toolparse.Extract(content) {
		result.ToolCalls = append(result.ToolCalls, &contract.ToolCall{
			ID:    toolparse.FormatCallID(call.Name, i),
			Name:  call.Name,
			Input: call.Arguments,
		})
	}

	return result, nil
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.opts.Model),
	})
	if err != nil {
		return nil, biwaErrors.Wrap(biwaErrors.MapError(err), "llamacpp embedding failed")
	}
	if len(resp.Data) == 0 {
		return nil, biwaErrors.InvalidModelOutput("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// Health probes the server's /health endpoint, which reports 503 while the
// model is still loading.
func (p *Provider) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthURL, nil)
	if err != nil {
		return err
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		return biwaErrors.Wrap(biwaErrors.MapError(err), "health check failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return biwaErrors.Transient(fmt.Sprintf("server not ready: status %d", resp.StatusCode))
	}
	return nil
}
