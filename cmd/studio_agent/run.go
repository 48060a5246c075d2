package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/luxury-studio/internal/artifacts"
	"github.com/jonathan/luxury-studio/internal/batch"
	"github.com/jonathan/luxury-studio/internal/observability"
	"github.com/jonathan/luxury-studio/internal/workflow"
)

var (
	runImage   string
	runOutput  string
	runVerbose bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one product image through the pipeline",
	Long: `Runs analyst -> director -> producer -> judge for a single image, retrying on
judge feedback until the score reaches MIN_ACCEPTED_SCORE or MAX_RETRIES is used.
The composite and result record are saved and the record is printed as JSON.`,
	RunE: runSingle,
}

func init() {
	runCmd.Flags().StringVarP(&runImage, "image", "i", "", "Path to the product image (required)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Output directory (defaults to OUTPUT_DIR)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print each stage's output to stderr")
	_ = runCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(runCmd)
}

func runSingle(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := *appConfig
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = runOutput
		cfg.OutputBucket = ""
	}

	var printer *observability.Printer
	var onProgress workflow.ProgressCallback
	if runVerbose {
		printer = observability.NewPrinter(os.Stderr)
		onProgress = printer.OnProgress
	}

	a, err := newApp(ctx, &cfg, onProgress)
	if err != nil {
		return err
	}
	defer a.Close()

	item := batch.Item{File: filepath.Base(runImage), Path: runImage}
	return printRun(ctx, os.Stdout, printer, a.runner, a.store, item)
}

// printRun processes one item and writes its result record, or the batch entry
// when no record was stored. A failed or errored run returns an error.
// A non-nil printer also gets the record summary.
func printRun(ctx context.Context, out io.Writer, printer *observability.Printer, runner processor, store artifacts.Store, item batch.Item) error {
	res := runner.Process(ctx, []batch.Item{item})[0]

	var payload any = res
	if res.ResultRef != "" && store != nil {
		if record, err := store.LoadResult(ctx, item.File); err == nil {
			payload = record
			if printer != nil {
				printer.PrintResult(record)
			}
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if res.Status == batch.StatusError {
		return fmt.Errorf("%s: %s", res.File, res.Error)
	}
	return nil
}

// processor is the part of *batch.Runner the commands use.
type processor interface {
	Process(ctx context.Context, items []batch.Item) []batch.Result
}
