// Package batch runs the pipeline over many product images with per-file isolation.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/luxury-studio/internal/artifacts"
	"github.com/jonathan/luxury-studio/internal/imageutil"
	"github.com/jonathan/luxury-studio/internal/llm"
	"github.com/jonathan/luxury-studio/internal/metrics"
	"github.com/jonathan/luxury-studio/internal/types"
	"github.com/jonathan/luxury-studio/internal/workflow"
)

// Entry statuses.
const (
	StatusProcessed = "processed"
	StatusError     = "error"
)

// Pipeline runs one product. *workflow.Orchestrator satisfies it.
type Pipeline interface {
	Run(ctx context.Context, in workflow.Input) (*types.GraphState, error)
}

// History records finished runs. *db.DB satisfies it.
type History interface {
	SaveRun(ctx context.Context, record *types.ResultRecord) error
}

// Item is one product image. Data is read from Path when empty.
// Key names the item's artifacts and defaults to File; callers set it when
// File alone is not unique, as for uploads.
type Item struct {
	File string
	Key  string
	Path string
	Data []byte
}

func (i Item) artifactKey() string {
	if i.Key != "" {
		return i.Key
	}
	return i.File
}

// Result is the per-file outcome reported to callers.
type Result struct {
	File         string      `json:"file"`
	Key          string      `json:"key,omitempty"`
	Status       string      `json:"status"`
	RunID        string      `json:"run_id,omitempty"`
	Outcome      types.Stage `json:"outcome,omitempty"`
	Score        int         `json:"score"`
	Retries      int         `json:"retries"`
	ResultRef    string      `json:"result_ref,omitempty"`
	CompositeRef string      `json:"composite_ref,omitempty"`
	Error        string      `json:"error,omitempty"`
	StorageError string      `json:"storage_error,omitempty"`
}

// Options configures a Runner.
type Options struct {
	// Concurrency bounds the number of runs in flight; values below 1 mean 1
	Concurrency int
	// MaxImageDimension bounds the longest side of each input image
	MaxImageDimension int
}

// Runner processes batches. It is safe for concurrent use.
type Runner struct {
	pipeline Pipeline
	store    artifacts.Store
	history  History
	opts     Options
	metrics  *metrics.Metrics
}

// NewRunner creates a batch runner. history may be nil.
func NewRunner(pipeline Pipeline, store artifacts.Store, history History, opts Options) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxImageDimension <= 0 {
		opts.MaxImageDimension = imageutil.DefaultMaxDimension
	}
	return &Runner{
		pipeline: pipeline,
		store:    store,
		history:  history,
		opts:     opts,
		metrics:  metrics.Get(),
	}
}

// Process runs every item and returns one result per item in input order.
// A failing file never stops the others; cancellation of ctx is reported per file.
func (r *Runner) Process(ctx context.Context, items []Item) []Result {
	results := make([]Result, len(items))
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = r.processOne(ctx, item)
			r.metrics.BatchFilesTotal.WithLabelValues(results[i].Status).Inc()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Status == StatusError {
			failed++
		}
	}
	log.Info().
		Int("files", len(items)).
		Int("failed", failed).
		Int("concurrency", r.opts.Concurrency).
		Dur("duration", time.Since(start)).
		Msg("Batch finished")
	return results
}

func (r *Runner) processOne(ctx context.Context, item Item) Result {
	result := Result{File: item.File, Key: item.artifactKey()}
	logger := log.With().Str("file", item.File).Logger()

	image, err := r.prepare(item)
	if err != nil {
		logger.Error().Err(err).Msg("Skipping unreadable image")
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	state, runErr := r.pipeline.Run(ctx, workflow.Input{File: item.File, ImagePath: item.Path, Image: image})
	if state == nil {
		if runErr == nil {
			runErr = errors.New("pipeline returned no state")
		}
		result.Status = StatusError
		result.Error = runErr.Error()
		return result
	}

	result.RunID = state.RunID
	result.Outcome = state.Stage
	result.Score = state.Score()
	result.Retries = state.Retries
	result.Status = StatusProcessed
	if runErr != nil {
		result.Status = StatusError
		result.Error = runErr.Error()
	}

	result.CompositeRef, result.ResultRef, err = r.persist(ctx, result.Key, state)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to persist run outputs")
		result.StorageError = err.Error()
	}
	return result
}

// prepare loads and normalizes the product image.
func (r *Runner) prepare(item Item) (llm.Image, error) {
	data := item.Data
	if len(data) == 0 {
		if item.Path == "" {
			return llm.Image{}, fmt.Errorf("no image data for %s", item.File)
		}
		var err error
		data, err = os.ReadFile(item.Path)
		if err != nil {
			return llm.Image{}, fmt.Errorf("failed to read image: %w", err)
		}
	}
	normalized, err := imageutil.Normalize(data, r.opts.MaxImageDimension)
	if err != nil {
		return llm.Image{}, err
	}
	return llm.Image{Data: normalized, MIMEType: "image/png"}, nil
}

// persist saves the composite, the result record and the history row.
// Every step is attempted and failures are joined.
func (r *Runner) persist(ctx context.Context, key string, state *types.GraphState) (compositeRef, resultRef string, err error) {
	var errs []error
	if r.store != nil && state.Generation != nil && len(state.Generation.Image) > 0 {
		ref, saveErr := r.store.SaveCandidate(ctx, key, state.Generation.Image)
		if saveErr != nil {
			errs = append(errs, saveErr)
		} else {
			state.Generation.Ref = ref
			compositeRef = ref
		}
	}

	record := types.NewResultRecord(state)
	if r.store != nil {
		ref, saveErr := r.store.SaveResult(ctx, key, record)
		if saveErr != nil {
			errs = append(errs, saveErr)
		} else {
			resultRef = ref
		}
	}
	if r.history != nil {
		if saveErr := r.history.SaveRun(ctx, record); saveErr != nil {
			errs = append(errs, saveErr)
		}
	}
	return compositeRef, resultRef, errors.Join(errs...)
}

// ScanFolder lists the supported images directly under dir, sorted by name.
func ScanFolder(dir string) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", dir, err)
	}

	var items []Item
	for _, entry := range entries {
		if entry.IsDir() || !imageutil.SupportedExtension(entry.Name()) {
			continue
		}
		items = append(items, Item{File: entry.Name(), Path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].File < items[j].File })
	return items, nil
}
