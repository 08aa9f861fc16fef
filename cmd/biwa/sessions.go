package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/harunnryd/biwa/cmd/biwa/runtime"
	"github.com/harunnryd/biwa/internal/store"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions in a workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		workspaceID := runtime.ResolveWorkspaceID(cmd, loadedCfg)

		// Listing should fail fast when a running session holds the
		// workspace, not wait out the full lock timeout.
		worker, err := store.NewWorker(workspaceID, loadedCfg.Store.WorkspacePath, store.RuntimeConfig{
			LockTimeout:  2 * time.Second,
			LockRetry:    100 * time.Millisecond,
			LockMaxRetry: 20,
		})
		if err != nil {
			return fmt.Errorf("open workspace %s: %w", workspaceID, err)
		}
		worker.Start()
		defer worker.Stop()

		rows, err := sessionRows(worker)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Printf("No sessions in workspace %s yet. Start one with 'biwa run'.\n", workspaceID)
			return nil
		}

		purple := lipgloss.Color("99")
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(purple)).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return lipgloss.NewStyle().Foreground(purple).Bold(true).Padding(0, 1)
				}
				return lipgloss.NewStyle().Padding(0, 1)
			}).
			Headers("Session", "Title", "Messages", "Updated")

		for _, row := range rows {
			t.Row(row...)
		}

		fmt.Println(t.String())
		return nil
	},
}

// sessionRows joins transcript files with the session index. Sessions that
// predate the index (or whose meta was lost) still list, just untitled.
func sessionRows(w *store.Worker) ([][]string, error) {
	ids, err := w.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		lines, err := w.ReadTranscript(id, 0)
		if err != nil {
			return nil, fmt.Errorf("read session %s: %w", id, err)
		}

		meta, err := w.GetSession(id)
		if err != nil {
			return nil, fmt.Errorf("load session meta %s: %w", id, err)
		}

		title, updated := "", ""
		if meta != nil {
			title = meta.Title
			if !meta.UpdatedAt.IsZero() {
				updated = meta.UpdatedAt.Local().Format("2006-01-02 15:04")
			}
		}
		rows = append(rows, []string{id, title, strconv.Itoa(len(lines)), updated})
	}
	return rows, nil
}

func init() {
	sessionsListCmd.Flags().StringP("workspace", "w", "", "Target workspace ID")
	sessionsCmd.AddCommand(sessionsListCmd)
	rootCmd.AddCommand(sessionsCmd)
}
