package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	biwaErrors "github.com/harunnryd/biwa/internal/errors"
	"github.com/harunnryd/biwa/internal/logger"
)

// Runner executes tool calls against a registry: lookup, input validation,
// then execution with timing logs.
type Runner struct {
	registry *Registry
}

func NewRunner(registry *Registry) *Runner {
	return &Runner{registry: registry}
}

// Run executes a single tool call. Unknown tools and invalid input come back
// as categorized errors so the caller can surface them to the model as tool
// results instead of aborting the turn.
func (r *Runner) Run(ctx context.Context, toolName string, input json.RawMessage) (json.RawMessage, error) {
	t, ok := r.registry.Get(toolName)
	if !ok {
		return nil, biwaErrors.NotFound("unknown tool: " + NormalizeToolName(toolName))
	}
	name := NormalizeToolName(t.Name())

	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	if err := ValidateArguments(t.Parameters(), input); err != nil {
		slog.Warn("Tool input rejected", "tool", name, "error", err)
		return nil, biwaErrors.WrapWithCategory(err, "invalid tool input", biwaErrors.ErrInvalidInput)
	}

	start := time.Now()
	turnID := logger.GetTurnID(ctx)
	slog.Info("Executing tool", "tool", name, "turn_id", turnID)

	result, err := t.Execute(ctx, input)

	duration := time.Since(start)
	if err != nil {
		slog.Error("Tool execution failed", "tool", name, "error", err, "duration", duration, "turn_id", turnID)
		return nil, biwaErrors.Wrap(err, "tool execution")
	}

	slog.Info("Tool execution success", "tool", name, "duration", duration, "turn_id", turnID)
	return result, nil
}
