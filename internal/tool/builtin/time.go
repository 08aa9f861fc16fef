package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	toolcore "github.com/harunnryd/biwa/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("get_current_time", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &TimeTool{now: time.Now}, nil
	})
}

// TimeTool reports the current time, optionally in a named timezone.
type TimeTool struct {
	now func() time.Time
}

func (t *TimeTool) Name() string { return "get_current_time" }

func (t *TimeTool) Description() string {
	return "Get the current date and time."
}

func (t *TimeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"timezone": map[string]interface{}{
				"type":        "string",
				"description": "IANA timezone name like Asia/Jakarta (optional, defaults to UTC)",
			},
		},
	}
}

func (t *TimeTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	_ = ctx

	var args struct {
		Timezone string `json:"timezone"`
	}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
	}

	loc := time.UTC
	tz := strings.TrimSpace(args.Timezone)
	if tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("unknown timezone %q", tz)
		}
		loc = parsed
	}

	now := t.now().In(loc)
	return json.Marshal(map[string]string{
		"time":     now.Format(time.RFC3339),
		"timezone": loc.String(),
	})
}
