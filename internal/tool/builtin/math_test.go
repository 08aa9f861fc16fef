package builtin

import (
	"context"
	"encoding/json"
	"testing"

	toolcore "github.com/harunnryd/biwa/internal/tool"

	"github.com/stretchr/testify/require"
)

func instantiate(t *testing.T, name string, options toolcore.BuiltinOptions) toolcore.Tool {
	t.Helper()
	tools, err := toolcore.InstantiateBuiltins(options)
	require.NoError(t, err)
	for _, tl := range tools {
		if tl.Name() == name {
			return tl
		}
	}
	t.Fatalf("built-in %q not registered", name)
	return nil
}

func TestMathTools(t *testing.T) {
	cases := []struct {
		tool  string
		input string
		want  float64
	}{
		{"add_numbers", `{"a": 2, "b": 3}`, 5},
		{"subtract_numbers", `{"a": 2, "b": 3}`, -1},
		{"multiply_numbers", `{"a": 2, "b": 3}`, 6},
		{"divide_numbers", `{"a": 6, "b": 3}`, 2},
	}

	for _, tc := range cases {
		t.Run(tc.tool, func(t *testing.T) {
			tl := instantiate(t, tc.tool, toolcore.BuiltinOptions{})

			out, err := tl.Execute(context.Background(), json.RawMessage(tc.input))
			require.NoError(t, err)

			var result struct {
				Result float64 `json:"result"`
			}
			require.NoError(t, json.Unmarshal(out, &result))
			require.Equal(t, tc.want, result.Result)
		})
	}
}

func TestDivideByZeroReturnsErrorPayload(t *testing.T) {
	tl := instantiate(t, "divide_numbers", toolcore.BuiltinOptions{})

	out, err := tl.Execute(context.Background(), json.RawMessage(`{"a": 1, "b": 0}`))
	require.NoError(t, err)

	var result struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out, &result))
	require.Equal(t, "division by zero", result.Error)
}
