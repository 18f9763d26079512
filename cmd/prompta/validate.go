package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synzen/prompt-anything-sub000/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a flow for consistency",
	Long:  `Loads a flow and reports dead transitions, unreachable steps, ambiguous branching and broken templates, without running anything.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Flow is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	def, err := cli.LoadDefinition(context.Background(), path)
	if err != nil {
		return err
	}
	return def.Validate()
}
