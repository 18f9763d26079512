package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/loam"
	"github.com/spf13/cobra"

	loamflow "github.com/synzen/prompt-anything-sub000/pkg/adapters/loam"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold a starter flow directory",
	Long: `Writes a small three-step flow into the given directory (default "flow"),
one markdown file per step, ready for prompta run.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "flow"
		if len(args) > 0 {
			dir = args[0]
		}
		if err := runInit(dir); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Flow scaffolded in %s. Try: prompta run %s\n", dir, dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve flow directory: %w", err)
	}

	// No versioning: this is pure file generation.
	repo, err := loam.Init(absPath, loam.WithVersioning(false))
	if err != nil {
		return fmt.Errorf("failed to initialize loam: %w", err)
	}
	typed := loam.NewTypedRepository[loamflow.StepMeta](repo)
	ctx := context.Background()

	steps := []*loam.DocumentModel[loamflow.StepMeta]{
		{
			ID:      "start",
			Content: "Welcome! This flow was scaffolded by `prompta init`.\nEdit the markdown files, then run them with `prompta run`.",
			Data: loamflow.StepMeta{
				Next: []loamflow.NextMeta{{To: "ask_name"}},
			},
		},
		{
			ID:      "ask_name",
			Content: "What's your name?",
			Data: loamflow.StepMeta{
				Input: &loamflow.InputMeta{Var: "name", Pattern: `\S`, Reject: "A name cannot be empty."},
				Next:  []loamflow.NextMeta{{To: "done"}},
			},
		},
		{
			ID:      "done",
			Content: "Nice to meet you, {{.name}}. Happy building!",
			Data: loamflow.StepMeta{
				Terminal: true,
			},
		},
	}

	for _, doc := range steps {
		if err := typed.Save(ctx, doc); err != nil {
			return fmt.Errorf("save step %s: %w", doc.ID, err)
		}
	}
	return nil
}
