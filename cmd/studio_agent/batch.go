package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/luxury-studio/internal/batch"
)

var batchInput string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process every image in a folder",
	Long:  `Processes each .png, .jpg, .jpeg and .webp file in the input folder and prints one outcome per file.`,
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "Input directory (defaults to INPUT_DIR)")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := *appConfig
	if cmd.Flags().Changed("input") {
		cfg.InputDir = batchInput
	}

	items, err := batch.ScanFolder(cfg.InputDir)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintf(os.Stderr, "No images found in %s\n", cfg.InputDir)
		return nil
	}

	a, err := newApp(ctx, &cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return printBatch(ctx, os.Stdout, a.runner, items)
}

// printBatch processes items and writes the per-file outcomes as JSON.
// It fails only when every file failed.
func printBatch(ctx context.Context, out io.Writer, runner processor, items []batch.Item) error {
	results := runner.Process(ctx, items)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"results": results}); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	failed := 0
	for _, res := range results {
		if res.Status == batch.StatusError {
			failed++
		}
	}
	if failed > 0 && failed == len(results) {
		return fmt.Errorf("all %d files failed", failed)
	}
	return nil
}
