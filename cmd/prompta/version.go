package main

import (
	"fmt"

	"github.com/spf13/cobra"

	prompta "github.com/synzen/prompt-anything-sub000"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of prompta",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("prompta version %s\n", prompta.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
