// Package agent drives the conversational loop: generate a completion,
// execute any tool calls the model asked for, feed the results back, repeat
// until the model answers in plain text or the turn budget runs out.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/biwa/internal/graph"
	"github.com/harunnryd/biwa/internal/logger"
	"github.com/harunnryd/biwa/internal/model/contract"
	"github.com/harunnryd/biwa/internal/model/toolparse"
	"github.com/harunnryd/biwa/internal/store"
)

const (
	nodeGenerate = "generate"
	nodeTools    = "tools"

	routeTools = "tools"
	routeEnd   = "end"

	// TruncationNotice is appended to the reply when the loop hits the
	// turn budget while the model is still requesting tools.
	TruncationNotice = "[stopped: tool-call turn limit reached]"
)

// ModelRouter resolves a completion request to a provider response.
type ModelRouter interface {
	Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

// ToolRunner executes one tool call.
type ToolRunner interface {
	Run(ctx context.Context, toolName string, input json.RawMessage) (json.RawMessage, error)
}

// Transcript receives every message the loop produces. Optional.
type Transcript interface {
	AppendEntry(sessionID string, entry store.TranscriptEntry) error
}

// Memory receives a summary of each completed exchange. Optional.
type Memory interface {
	Remember(ctx context.Context, text string) (string, error)
}

type Options struct {
	Model           string
	MaxTurns        int
	MaxToolsPerTurn int
	SessionID       string
	Transcript      Transcript
	Memory          Memory
}

type state struct {
	messages  []contract.Message
	last      *contract.CompletionResponse
	turns     int
	truncated bool
}

// Engine owns the compiled two-node conversation graph.
type Engine struct {
	router   ModelRouter
	runner   ToolRunner
	tools    []contract.ToolDef
	opts     Options
	runnable *graph.Runnable[*state]
}

func New(router ModelRouter, runner ToolRunner, tools []contract.ToolDef, opts Options) (*Engine, error) {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 20
	}
	if opts.MaxToolsPerTurn <= 0 {
		opts.MaxToolsPerTurn = 8
	}
	if opts.SessionID == "" {
		opts.SessionID = "default"
	}

	e := &Engine{
		router: router,
		runner: runner,
		tools:  tools,
		opts:   opts,
	}

	g := graph.NewStateGraph[*state]()
	g.AddNode(nodeGenerate, e.generate)
	g.AddNode(nodeTools, e.executeTools)
	g.AddEdge(graph.Start, nodeGenerate)
	g.AddConditionalEdges(nodeGenerate, routeAfterGenerate, map[string]string{
		routeTools: nodeTools,
		routeEnd:   graph.End,
	})
	g.AddEdge(nodeTools, nodeGenerate)

	runnable, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile agent graph: %w", err)
	}
	e.runnable = runnable
	return e, nil
}

// Respond runs one user turn to completion. It returns the final assistant
// text (cleaned of tool-call JSON) and the updated conversation history.
func (e *Engine) Respond(ctx context.Context, history []contract.Message, userInput string) (string, []contract.Message, error) {
	ctx = logger.WithTurnID(ctx, store.NewEntryID())

	s := &state{
		messages: append(append([]contract.Message{}, history...), contract.Message{
			Role:    contract.RoleUser,
			Content: userInput,
		}),
	}
	e.record(store.RoleUser, userInput, "", "")

	// Each loop iteration is at most two node executions; the generate
	// node enforces the soft turn budget itself, so the hard graph bound
	// only guards against wiring bugs.
	s, err := e.runnable.Invoke(ctx, s, 2*e.opts.MaxTurns+2)
	if err != nil {
		return "", history, err
	}

	reply := e.finalText(s)
	e.remember(ctx, userInput, reply)
	return reply, s.messages, nil
}

func (e *Engine) generate(ctx context.Context, s *state) (*state, error) {
	if s.turns >= e.opts.MaxTurns {
		slog.Warn("Turn budget exhausted, ending loop", "max_turns", e.opts.MaxTurns)
		s.truncated = true
		return s, nil
	}
	s.turns++

	resp, err := e.router.Route(ctx, e.opts.Model, contract.CompletionRequest{
		Messages: s.messages,
		Tools:    e.tools,
	})
	if err != nil {
		return s, fmt.Errorf("generate: %w", err)
	}

	s.last = resp
	s.messages = append(s.messages, contract.Message{
		Role:      contract.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})
	e.record(store.RoleAssistant, resp.Content, "", "")
	return s, nil
}

func (e *Engine) executeTools(ctx context.Context, s *state) (*state, error) {
	calls := s.last.ToolCalls
	if len(calls) > e.opts.MaxToolsPerTurn {
		slog.Warn("Dropping excess tool calls", "requested", len(calls), "max", e.opts.MaxToolsPerTurn)
		calls = calls[:e.opts.MaxToolsPerTurn]
	}

	for _, call := range calls {
		content := e.runTool(ctx, call)
		s.messages = append(s.messages, contract.Message{
			Role:       contract.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
			ToolName:   call.Name,
		})
		e.record(store.RoleTool, content, call.Name, call.ID)
	}
	return s, nil
}

// runTool converts execution failures into error payloads the model can
// read; the loop itself never fails on a bad tool call.
func (e *Engine) runTool(ctx context.Context, call *contract.ToolCall) string {
	result, err := e.runner.Run(ctx, call.Name, json.RawMessage(call.Input))
	if err != nil {
		payload, merr := json.Marshal(map[string]string{"error": err.Error()})
		if merr != nil {
			return `{"error": "tool failed"}`
		}
		return string(payload)
	}
	return string(result)
}

func routeAfterGenerate(s *state) string {
	if s.truncated {
		return routeEnd
	}
	if s.last != nil && len(s.last.ToolCalls) > 0 {
		return routeTools
	}
	return routeEnd
}

func (e *Engine) finalText(s *state) string {
	if s.truncated {
		// The budget usually runs out on a bare tool-call payload, where
		// CleanResponse would echo the original JSON back. Walk back to the
		// last assistant prose instead.
		if text := lastAssistantProse(s.messages); text != "" {
			return text + "\n" + TruncationNotice
		}
		return TruncationNotice
	}
	if s.last == nil {
		return ""
	}
	return strings.TrimSpace(toolparse.CleanResponse(s.last.Content))
}

func lastAssistantProse(messages []contract.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != contract.RoleAssistant {
			continue
		}
		if text := toolparse.StripCalls(messages[i].Content); text != "" {
			return text
		}
	}
	return ""
}

func (e *Engine) record(role store.Role, content, toolName, toolCallID string) {
	if e.opts.Transcript == nil {
		return
	}

	entry := store.NewTranscriptEntry(role, content)
	entry.ToolName = toolName
	entry.ToolCallID = toolCallID
	if err := e.opts.Transcript.AppendEntry(e.opts.SessionID, entry); err != nil {
		slog.Warn("Failed to append transcript entry", "session", e.opts.SessionID, "error", err)
	}
}

// remember stores a compact summary of the exchange. Embedding failures are
// logged and dropped; memory is best effort.
func (e *Engine) remember(ctx context.Context, userInput, reply string) {
	if e.opts.Memory == nil || strings.TrimSpace(reply) == "" {
		return
	}

	summary := fmt.Sprintf("user: %s\nassistant: %s", userInput, reply)
	if _, err := e.opts.Memory.Remember(ctx, summary); err != nil {
		slog.Warn("Failed to store exchange in memory", "error", err)
	}
}
