// Package toolparse extracts JSON tool-call requests from raw model text.
//
// Local instruction-tuned models have no native tool-use channel, so the
// runtime asks them to emit a payload of the shape
//
//	{"tool_calls": [{"name": "...", "arguments": {...}}]}
//
// either inside a ```json fence or as bare JSON. Extraction fails open:
// malformed JSON or a payload without tool_calls simply yields no calls,
// and the text is treated as a direct answer.
package toolparse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

type payload struct {
	ToolCalls []callPayload `json:"tool_calls"`
}

type callPayload struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Call is one parsed tool invocation request.
type Call struct {
	Name      string
	Arguments string // raw JSON object text, "{}" when absent
}

// Extract returns all tool calls found in the model output, in order.
func Extract(raw string) []Call {
	var calls []Call

	for _, match := range fencedJSON.FindAllStringSubmatch(raw, -1) {
		calls = append(calls, parsePayload(match[1])...)
	}
	if len(calls) > 0 {
		return calls
	}

	// No fenced block produced calls; try the whole text as JSON.
	if calls = parsePayload(strings.TrimSpace(raw)); len(calls) > 0 {
		return calls
	}

	// Last resort: first balanced object anywhere in the text.
	if extracted := firstBalancedObject(raw); extracted != "" {
		return parsePayload(extracted)
	}
	return nil
}

// HasCalls reports whether the text contains at least one tool call.
func HasCalls(raw string) bool {
	return len(Extract(raw)) > 0
}

func parsePayload(raw string) []Call {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil
	}

	calls := make([]Call, 0, len(p.ToolCalls))
	for _, c := range p.ToolCalls {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		args := "{}"
		if len(c.Arguments) > 0 {
			var obj map[string]interface{}
			if err := json.Unmarshal(c.Arguments, &obj); err != nil {
				// Arguments present but not an object; skip this call rather
				// than feed garbage to a tool.
				continue
			}
			args = string(c.Arguments)
		}
		calls = append(calls, Call{Name: name, Arguments: args})
	}
	return calls
}

// firstBalancedObject scans for the first top-level {...} group, respecting
// strings and escapes.
func firstBalancedObject(input string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return strings.TrimSpace(input[start : i+1])
			}
		}
	}
	return ""
}

var toolCallsField = regexp.MustCompile(`(?s)"tool_calls"\s*:\s*\[.*?\]`)
var loneBrace = regexp.MustCompile(`(?m)^\s*[{}]\s*$`)

// StripCalls removes tool-call syntax from text. Unlike CleanResponse it
// returns "" when the text was nothing but plumbing.
func StripCalls(content string) string {
	cleaned := strings.TrimSpace(fencedJSON.ReplaceAllString(content, ""))
	cleaned = strings.TrimSpace(toolCallsField.ReplaceAllString(cleaned, ""))
	return strings.TrimSpace(loneBrace.ReplaceAllString(cleaned, ""))
}

// CleanResponse strips tool-call syntax from a final answer so the user
// never sees raw JSON plumbing. If stripping would leave nothing, the
// original text is returned unchanged.
func CleanResponse(content string) string {
	cleaned := StripCalls(content)
	if cleaned == "" {
		return content
	}
	return cleaned
}

// FormatCallID builds a stable per-turn identifier for a parsed call.
func FormatCallID(name string, index int) string {
	return fmt.Sprintf("%s_%d", name, index)
}
