package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/synzen/prompt-anything-sub000/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "prompta",
	Short: "Prompta runs interactive conversation flows",
	Long: `Prompta walks people through conversation flows defined in YAML files or
loam step directories: on the terminal, over an HTTP chat API, or as an
MCP server for AI agents.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")

	viper.SetEnvPrefix("PROMPTA")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// appLogger builds the process logger from --log-level or PROMPTA_LOG_LEVEL.
func appLogger() *slog.Logger {
	level, err := logging.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return logging.New(level)
}
