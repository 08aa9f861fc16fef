package main

import (
	"fmt"

	"github.com/harunnryd/biwa/cmd/biwa/runtime"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive session with the local model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeWithRuntime(cmd, func(r *runtime.Components) error {
			if err := r.Start(); err != nil {
				return fmt.Errorf("failed to start runtime: %w", err)
			}

			repl := runtime.NewREPL(r)
			return repl.Start()
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("workspace", "w", "", "Target workspace ID")
	runCmd.Flags().StringP("session", "s", "", "Session ID (defaults to \"default\", persisted across runs)")
}
