package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	toolcore "github.com/harunnryd/biwa/internal/tool"
)

func init() {
	register := func(name, description string, fn func(a, b float64) (float64, error)) {
		toolcore.RegisterBuiltin(name, func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
			return &MathTool{name: name, description: description, fn: fn}, nil
		})
	}

	register("add_numbers", "Add two floating point numbers and return the result.",
		func(a, b float64) (float64, error) { return a + b, nil })
	register("subtract_numbers", "Subtract two floating point numbers and return the result.",
		func(a, b float64) (float64, error) { return a - b, nil })
	register("multiply_numbers", "Multiply two floating point numbers and return the result.",
		func(a, b float64) (float64, error) { return a * b, nil })
	register("divide_numbers", "Divide two floating point numbers and return the result.",
		func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return a / b, nil
		})
}

// MathTool is a binary arithmetic operation over two floats.
type MathTool struct {
	name        string
	description string
	fn          func(a, b float64) (float64, error)
}

func (t *MathTool) Name() string        { return t.name }
func (t *MathTool) Description() string { return t.description }

func (t *MathTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"a": map[string]interface{}{
				"type":        "number",
				"description": "The first floating point number.",
			},
			"b": map[string]interface{}{
				"type":        "number",
				"description": "The second floating point number.",
			},
		},
		"required": []string{"a", "b"},
	}
}

func (t *MathTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	_ = ctx

	var args struct {
		A float64 `json:"a"`
		B float64 `json:"b"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	result, err := t.fn(args.A, args.B)
	if err != nil {
		// Arithmetic errors go back to the model as data, not as a failed
		// tool call, so it can correct itself in the next turn.
		return json.Marshal(map[string]string{"error": err.Error()})
	}
	return json.Marshal(map[string]float64{"result": result})
}
