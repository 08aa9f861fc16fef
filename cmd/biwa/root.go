package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/biwa/internal/config"
	"github.com/harunnryd/biwa/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "biwa",
	Short: "Biwa local model agent",
	Long:  `Biwa is a conversational agent backed by a local GGUF model with JSON tool calling.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Agent.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.biwa/config.yaml)")
	rootCmd.PersistentFlags().String("agent.log_level", config.DefaultAgentLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("llama.model_path", config.DefaultLlamaModelPath, "path to the GGUF model file")
	rootCmd.PersistentFlags().String("llama.base_url", "", "attach to an already-running llama server at this base URL")
}
