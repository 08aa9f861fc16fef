package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/biwa/internal/config"
	"github.com/harunnryd/biwa/internal/tool"
	_ "github.com/harunnryd/biwa/internal/tool/builtin"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect available tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all built-in tools the model can call",
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		weatherTimeout, err := config.DurationOrDefault(loadedCfg.Tools.Weather.Timeout, config.DefaultWeatherToolTimeout)
		if err != nil {
			return err
		}

		// catalogMemory stands in for the real memory store so the listing
		// includes remember/recall without spinning up a workspace.
		tools, err := tool.InstantiateBuiltins(tool.BuiltinOptions{
			WeatherBaseURL: loadedCfg.Tools.Weather.BaseURL,
			WeatherTimeout: weatherTimeout,
			Memory:         catalogMemory{},
			RecallLimit:    loadedCfg.Tools.Recall.Limit,
			RecallMinSim:   loadedCfg.Tools.Recall.MinSimilarity,
		})
		if err != nil {
			return err
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
			Headers("Name", "Description")

		for _, tl := range tools {
			t.Row(tl.Name(), tl.Description())
		}

		fmt.Println(t.String())
		if !loadedCfg.Memory.Enabled {
			fmt.Println("note: remember/recall are disabled (memory.enabled: false)")
		}
		return nil
	},
}

type catalogMemory struct{}

func (catalogMemory) Remember(ctx context.Context, text string) (string, error) {
	return "", fmt.Errorf("not available outside a session")
}

func (catalogMemory) Recall(ctx context.Context, query string, limit int, minSimilarity float64) ([]tool.MemoryHit, error) {
	return nil, fmt.Errorf("not available outside a session")
}

func init() {
	toolsCmd.AddCommand(toolsListCmd)
	rootCmd.AddCommand(toolsCmd)
}
