package llamacpp

import (
	"strings"
	"testing"

	"github.com/harunnryd/biwa/internal/model/contract"

	"github.com/stretchr/testify/require"
)

func TestRenderPrompt_RolesAndTrailingHeader(t *testing.T) {
	req := contract.CompletionRequest{
		Messages: []contract.Message{
			{Role: contract.RoleUser, Content: "hi"},
			{Role: contract.RoleAssistant, Content: "hello"},
			{Role: contract.RoleTool, Content: `{"result": 3}`},
		},
	}

	prompt, err := RenderPrompt(req, "")
	require.NoError(t, err)

	require.Contains(t, prompt, "<|start_header_id|>user<|end_header_id|>\n\nhi<|eot_id|>")
	require.Contains(t, prompt, "<|start_header_id|>assistant<|end_header_id|>\n\nhello<|eot_id|>")
	require.Contains(t, prompt, "<|start_header_id|>tool<|end_header_id|>\n\n{\"result\": 3}<|eot_id|>")
	require.True(t, strings.HasSuffix(prompt, "<|start_header_id|>assistant<|end_header_id|>\n\n"))

	// No tools, no system prompt: no system turn at all.
	require.NotContains(t, prompt, "<|start_header_id|>system<|end_header_id|>")
}

func TestRenderPrompt_ToolCatalogInSystemTurn(t *testing.T) {
	req := contract.CompletionRequest{
		Messages: []contract.Message{{Role: contract.RoleUser, Content: "add 1 and 2"}},
		Tools: []contract.ToolDef{
			{
				Name:        "add_numbers",
				Description: "Add two floating point numbers.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"a": map[string]interface{}{"type": "number"},
						"b": map[string]interface{}{"type": "number"},
					},
					"required": []string{"a", "b"},
				},
			},
		},
	}

	prompt, err := RenderPrompt(req, "You are a helpful assistant with access to tools.")
	require.NoError(t, err)

	require.Contains(t, prompt, "<|start_header_id|>system<|end_header_id|>")
	require.Contains(t, prompt, `"name": "add_numbers"`)
	require.Contains(t, prompt, "Only use tools when necessary")
	// System turn comes before the conversation.
	require.Less(t, strings.Index(prompt, "system"), strings.Index(prompt, "add 1 and 2"))
}

func TestToolSchemaJSON_NilParameters(t *testing.T) {
	out, err := ToolSchemaJSON([]contract.ToolDef{{Name: "time", Description: "Get the current time."}})
	require.NoError(t, err)
	require.Contains(t, out, `"type": "object"`)
	require.Contains(t, out, `"name": "time"`)
}
