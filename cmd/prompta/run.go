package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synzen/prompt-anything-sub000/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Run a conversation flow on the terminal",
	Long: `Runs a flow interactively on the current terminal. The path may be a YAML
flow file or a loam step directory; it defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		watch, _ := cmd.Flags().GetBool("watch")
		plain, _ := cmd.Flags().GetBool("plain")
		debug, _ := cmd.Flags().GetBool("debug")
		data, _ := cmd.Flags().GetString("data")
		printData, _ := cmd.Flags().GetBool("print-data")

		err := cli.Execute(cli.RunOptions{
			Path:      path,
			Watch:     watch,
			Plain:     plain,
			Debug:     debug,
			Data:      data,
			PrintData: printData,
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("watch", "w", false, "Run in development mode with hot-reload")
	runCmd.Flags().Bool("plain", false, "Disable the banner and markdown rendering")
	runCmd.Flags().Bool("debug", false, "Log engine events to stderr")
	runCmd.Flags().String("data", "", "JSON object merged over the flow's default data")
	runCmd.Flags().Bool("print-data", false, "Print the collected data as JSON when the flow finishes")

	// Running `prompta` with no subcommand behaves like `prompta run`.
	rootCmd.Run = runCmd.Run
}
