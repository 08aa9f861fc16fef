package logger

import "context"

type contextKey string

const TurnIDKey contextKey = "turn_id"
const SessionIDKey contextKey = "session_id"

// WithTurnID tags a context with the current conversation turn.
func WithTurnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TurnIDKey, id)
}

func GetTurnID(ctx context.Context) string {
	if id, ok := ctx.Value(TurnIDKey).(string); ok {
		return id
	}
	return ""
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}
