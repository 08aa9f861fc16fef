package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	toolcore "github.com/harunnryd/biwa/internal/tool"
)

const (
	defaultRecallLimit  = 5
	defaultRecallMinSim = 0.3
)

func init() {
	toolcore.RegisterBuiltin("remember", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		if options.Memory == nil {
			return nil, nil
		}
		return &RememberTool{store: options.Memory}, nil
	})

	toolcore.RegisterBuiltin("recall", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		if options.Memory == nil {
			return nil, nil
		}

		limit := options.RecallLimit
		if limit <= 0 {
			limit = defaultRecallLimit
		}
		minSim := options.RecallMinSim
		if minSim <= 0 {
			minSim = defaultRecallMinSim
		}
		return &RecallTool{store: options.Memory, limit: limit, minSimilarity: minSim}, nil
	})
}

// RememberTool stores a fact in long-term vector memory.
type RememberTool struct {
	store toolcore.MemoryStore
}

func (t *RememberTool) Name() string { return "remember" }

func (t *RememberTool) Description() string {
	return "Store a fact in long-term memory for later recall."
}

func (t *RememberTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "The fact to remember, phrased as a standalone sentence",
			},
		},
		"required": []string{"text"},
	}
}

func (t *RememberTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	text := strings.TrimSpace(args.Text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	id, err := t.store.Remember(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("store memory: %w", err)
	}

	return json.Marshal(map[string]string{
		"id":     id,
		"status": "stored",
	})
}

// RecallTool retrieves the memories most similar to a query.
type RecallTool struct {
	store         toolcore.MemoryStore
	limit         int
	minSimilarity float64
}

func (t *RecallTool) Name() string { return "recall" }

func (t *RecallTool) Description() string {
	return "Search long-term memory for facts related to a query."
}

func (t *RecallTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "What to look for in memory",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of memories to return (optional)",
			},
		},
		"required": []string{"query"},
	}
}

func (t *RecallTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	limit := args.Limit
	if limit <= 0 || limit > t.limit {
		limit = t.limit
	}

	hits, err := t.store.Recall(ctx, query, limit, t.minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("search memory: %w", err)
	}
	if hits == nil {
		hits = []toolcore.MemoryHit{}
	}

	return json.Marshal(map[string]interface{}{
		"memories": hits,
	})
}
