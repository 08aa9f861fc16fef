package llamacpp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harunnryd/biwa/internal/model/contract"
)

// The llama3 instruct chat template. The server runs in raw completion mode
// so the prompt carries the headers itself, mirroring what the chat template
// would produce.
const (
	headerStart = "<|start_header_id|>"
	headerEnd   = "<|end_header_id|>"
	eotToken    = "<|eot_id|>"
)

const toolInstructions = `When you need to use a tool, respond with a JSON object in this exact format:
` + "```json" + `
{
  "tool_calls": [
    {
      "name": "tool_name",
      "arguments": {"param1": "value1", "param2": "value2"}
    }
  ]
}
` + "```" + `
Available tools:
%s

Important rules:
1. Only use tools when necessary
2. Use proper JSON formatting
3. Include all required parameters
4. You can call multiple tools in one response
5. After tool results, provide a natural language response

For simple questions that don't require tools, respond normally without JSON.`

// RenderPrompt converts the conversation into a llama3 header-format prompt.
// When tools are present, the system turn embeds the tool catalog and the
// JSON calling convention.
func RenderPrompt(req contract.CompletionRequest, systemPrompt string) (string, error) {
	var sb strings.Builder

	system := strings.TrimSpace(systemPrompt)
	if len(req.Tools) > 0 {
		schema, err := ToolSchemaJSON(req.Tools)
		if err != nil {
			return "", fmt.Errorf("render tool schema: %w", err)
		}
		system = system + "\n" + fmt.Sprintf(toolInstructions, schema)
	}
	if system != "" {
		writeTurn(&sb, "system", system)
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case contract.RoleSystem:
			writeTurn(&sb, "system", msg.Content)
		case contract.RoleTool:
			writeTurn(&sb, "tool", msg.Content)
		case contract.RoleAssistant:
			writeTurn(&sb, "assistant", msg.Content)
		default:
			writeTurn(&sb, "user", msg.Content)
		}
	}

	// Open the assistant turn for the model to complete.
	sb.WriteString(headerStart + "assistant" + headerEnd + "\n\n")
	return sb.String(), nil
}

func writeTurn(sb *strings.Builder, role, content string) {
	sb.WriteString(headerStart)
	sb.WriteString(role)
	sb.WriteString(headerEnd)
	sb.WriteString("\n\n")
	sb.WriteString(content)
	sb.WriteString(eotToken)
}

type toolSchemaEntry struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolSchemaJSON serializes the tool catalog for embedding into the system
// prompt.
func ToolSchemaJSON(tools []contract.ToolDef) (string, error) {
	entries := make([]toolSchemaEntry, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if params == nil {
			params = map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			}
		}
		entries = append(entries, toolSchemaEntry{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
