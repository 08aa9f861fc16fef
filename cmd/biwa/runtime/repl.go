package runtime

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	biwaErrors "github.com/harunnryd/biwa/internal/errors"
	"github.com/harunnryd/biwa/internal/model/contract"
	"github.com/harunnryd/biwa/internal/store"

	"charm.land/lipgloss/v2"
)

var (
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// REPL is the interactive loop: read a line, run it through the agent
// engine, print the reply. Conversation history lives in memory for the
// process lifetime and is seeded from the session transcript on startup.
type REPL struct {
	components *Components
	in         io.Reader
	out        io.Writer
	history    []contract.Message
}

func NewREPL(c *Components) *REPL {
	return &REPL{
		components: c,
		in:         os.Stdin,
		out:        os.Stdout,
	}
}

func (r *REPL) Start() error {
	r.history = r.replayHistory()

	fmt.Fprintln(r.out, bannerStyle.Render("biwa")+" — local model, tool-calling chat")
	fmt.Fprintln(r.out, hintStyle.Render(fmt.Sprintf("workspace: %s  session: %s", r.components.WorkspaceID, r.components.SessionID)))
	if len(r.history) > 0 {
		fmt.Fprintln(r.out, hintStyle.Render(fmt.Sprintf("restored %d messages from transcript", len(r.history))))
	}
	fmt.Fprintln(r.out, hintStyle.Render("type a message, 'clear' to reset the session, or 'quit' to exit"))
	fmt.Fprintln(r.out)

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(r.out, promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "quit", "exit", "q":
			fmt.Fprintln(r.out, hintStyle.Render("bye"))
			return nil
		case "clear":
			if err := r.components.StoreWorker.ResetSession(r.components.SessionID); err != nil {
				fmt.Fprintln(r.out, errorStyle.Render("failed to reset session: "+err.Error()))
				continue
			}
			r.history = nil
			fmt.Fprintln(r.out, hintStyle.Render("session cleared"))
			continue
		}

		reply, updated, err := r.components.Engine.Respond(r.components.Ctx, r.history, input)
		if err != nil {
			msg := "error: " + err.Error()
			if biwaErrors.IsRetryable(err) {
				msg += " (transient, try again)"
			}
			fmt.Fprintln(r.out, errorStyle.Render(msg))
			continue
		}
		r.history = updated
		touchSession(r.components.StoreWorker, r.components.SessionID, input)

		fmt.Fprintln(r.out, reply)
		fmt.Fprintln(r.out)
	}
}

// touchSession keeps sessions/index.json current: the first exchange titles
// the session from its opening input, later ones bump the timestamp.
func touchSession(w *store.Worker, sessionID, input string) {
	meta, err := w.GetSession(sessionID)
	if err != nil {
		slog.Warn("Failed to load session meta", "session", sessionID, "error", err)
		return
	}

	now := time.Now().UTC()
	if meta == nil {
		meta = &store.SessionMeta{
			ID:        sessionID,
			Title:     sessionTitle(input),
			Status:    "active",
			CreatedAt: now,
		}
	}
	meta.UpdatedAt = now

	if err := w.SaveSession(meta); err != nil {
		slog.Warn("Failed to save session meta", "session", sessionID, "error", err)
	}
}

func sessionTitle(input string) string {
	title := strings.TrimSpace(input)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if runes := []rune(title); len(runes) > 48 {
		title = string(runes[:48])
	}
	return title
}

// replayHistory rebuilds conversation context from the persisted transcript
// so a restarted session picks up where it left off. Tool entries are
// skipped: replaying them without their paired assistant tool-call messages
// would confuse the prompt renderer.
func (r *REPL) replayHistory() []contract.Message {
	limit := r.components.Config.Agent.HistoryLimit
	entries, err := r.components.StoreWorker.ReadEntries(r.components.SessionID, limit)
	if err != nil {
		fmt.Fprintln(r.out, errorStyle.Render("failed to load transcript: "+err.Error()))
		return nil
	}

	messages := make([]contract.Message, 0, len(entries))
	for _, entry := range entries {
		switch entry.Role {
		case store.RoleUser:
			messages = append(messages, contract.Message{Role: contract.RoleUser, Content: entry.Content})
		case store.RoleAssistant:
			if strings.TrimSpace(entry.Content) != "" {
				messages = append(messages, contract.Message{Role: contract.RoleAssistant, Content: entry.Content})
			}
		}
	}
	return messages
}
