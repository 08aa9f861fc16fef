package store

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// --- Session index (sessions/index.json) ---

type SessionMeta struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Status    string            `json:"status"` // "active", "archived"
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type SessionIndex struct {
	Sessions map[string]SessionMeta `json:"sessions"`
}

// --- Transcript (sessions/<id>.jsonl) ---

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

type TranscriptEntry struct {
	ID         string         `json:"id"` // ULID
	Timestamp  time.Time      `json:"ts"`
	Role       Role           `json:"role"`
	Content    string         `json:"content"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Metadata   map[string]any `json:"meta,omitempty"`
}

// NewEntryID returns a fresh lexically sortable entry ID.
func NewEntryID() string {
	return ulid.Make().String()
}

// NewTranscriptEntry stamps an entry with an ID and the current time.
func NewTranscriptEntry(role Role, content string) TranscriptEntry {
	return TranscriptEntry{
		ID:        NewEntryID(),
		Timestamp: time.Now().UTC(),
		Role:      role,
		Content:   content,
	}
}
