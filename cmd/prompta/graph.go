package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synzen/prompt-anything-sub000/internal/cli"
	"github.com/synzen/prompt-anything-sub000/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Export the flow graph visualization",
	Long:  `Loads a flow and outputs a Mermaid diagram (graph TD) representing its steps and branches.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		def, err := cli.LoadDefinition(context.Background(), path)
		if err != nil {
			fmt.Printf("Error loading flow: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(graph.GenerateMermaid(def, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
