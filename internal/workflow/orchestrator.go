// Package workflow runs the analyst, director, producer and judge as a fixed
// state machine with a single bounded retry budget.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jonathan/luxury-studio/internal/llm"
	"github.com/jonathan/luxury-studio/internal/metrics"
	"github.com/jonathan/luxury-studio/internal/types"
)

// Defaults for Options.
const (
	DefaultThreshold  = 90
	DefaultMaxRetries = 3
)

// Analyst extracts product specs from the product image.
type Analyst interface {
	Analyse(ctx context.Context, image llm.Image) (*types.ProductSpecs, error)
}

// Director plans the scene and revises it after a rejection.
type Director interface {
	CreateScene(ctx context.Context, specs *types.ProductSpecs) (*types.ScenePlan, error)
	CorrectScene(ctx context.Context, plan *types.ScenePlan, judgement *types.JudgeEvaluation) (*types.ScenePlan, error)
}

// Producer renders one candidate per call.
type Producer interface {
	GenerateFinalCandidate(ctx context.Context, product llm.Image, plan *types.ScenePlan, feedback *types.JudgeEvaluation) (*types.Candidate, error)
}

// Judge scores a candidate against the original.
type Judge interface {
	Evaluate(ctx context.Context, original, candidate llm.Image) (types.JudgeEvaluation, error)
}

// Agents groups the four stage implementations.
type Agents struct {
	Analyst  Analyst
	Director Director
	Producer Producer
	Judge    Judge
}

// Options configures the acceptance rule and retry budget.
type Options struct {
	// Threshold is the minimum accepted score; a tie is accepted
	Threshold int
	// MaxRetries bounds the retries shared by every retryable failure
	MaxRetries int
	OnProgress ProgressCallback
}

// DefaultOptions returns the default acceptance rule and budget.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, MaxRetries: DefaultMaxRetries}
}

// Input identifies the product of one run. Image is loaded from ImagePath when empty.
type Input struct {
	File      string
	ImagePath string
	Image     llm.Image
}

// Orchestrator drives runs through the state machine. It holds no per-run
// state and may serve concurrent runs.
type Orchestrator struct {
	agents  Agents
	opts    Options
	metrics *metrics.Metrics
}

// New creates an orchestrator.
func New(agents Agents, opts Options) (*Orchestrator, error) {
	if agents.Analyst == nil || agents.Director == nil || agents.Producer == nil || agents.Judge == nil {
		return nil, fmt.Errorf("%w: all four agents are required", ErrInvalidOptions)
	}
	if opts.Threshold < types.ScoreMin || opts.Threshold > types.ScoreMax {
		return nil, fmt.Errorf("%w: threshold %d outside %d..%d", ErrInvalidOptions, opts.Threshold, types.ScoreMin, types.ScoreMax)
	}
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: max retries %d is negative", ErrInvalidOptions, opts.MaxRetries)
	}
	return &Orchestrator{agents: agents, opts: opts, metrics: metrics.Get()}, nil
}

// run carries the per-invocation state.
type run struct {
	o      *Orchestrator
	state  *types.GraphState
	image  llm.Image
	logger zerolog.Logger
}

// Run executes one product through the pipeline. Accepted and rejected runs
// return a nil error; failed runs return a *RunError alongside the final state.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*types.GraphState, error) {
	state := types.NewGraphState(uuid.NewString(), types.ProductInput{File: in.File, ImagePath: in.ImagePath})
	r := &run{
		o:      o,
		state:  state,
		image:  in.Image,
		logger: log.With().Str("run_id", state.RunID).Str("file", in.File).Logger(),
	}
	r.logger.Info().Int("threshold", o.opts.Threshold).Int("max_retries", o.opts.MaxRetries).Msg("Run started")

	err := r.execute(ctx)

	o.metrics.RunsTotal.WithLabelValues(string(state.Stage)).Inc()
	o.metrics.RetriesUsed.Observe(float64(state.Retries))
	level := zerolog.InfoLevel
	if err != nil {
		level = zerolog.ErrorLevel
	}
	r.logger.WithLevel(level).
		Err(err).
		Str("stage", string(state.Stage)).
		Int("score", state.Score()).
		Int("retries", state.Retries).
		Dur("duration", state.FinishedAt.Sub(state.StartedAt)).
		Msg("Run finished")
	r.emit(StepComplete, fmt.Sprintf("run %s", state.Stage), state.Score())
	return state, err
}

func (r *run) execute(ctx context.Context) error {
	if len(r.image.Data) == 0 {
		if r.state.Product.ImagePath == "" {
			return r.fail(fmt.Errorf("no product image provided"), false)
		}
		img, err := llm.LoadImage(r.state.Product.ImagePath)
		if err != nil {
			return r.fail(err, false)
		}
		r.image = img
	}

	// start -> analyzed
	var specs *types.ProductSpecs
	err := r.withBudget(ctx, func() error {
		var callErr error
		specs, callErr = r.o.agents.Analyst.Analyse(ctx, r.image)
		return callErr
	}, StepAnalyse)
	if err != nil {
		return err
	}
	r.state.Analysis = specs
	if err := r.advance(types.StageAnalyzed, StepAnalyse, "product analysed", specs); err != nil {
		return err
	}

	// analyzed -> planned
	var plan *types.ScenePlan
	err = r.withBudget(ctx, func() error {
		var callErr error
		plan, callErr = r.o.agents.Director.CreateScene(ctx, specs)
		return callErr
	}, StepPlan)
	if err != nil {
		return err
	}
	r.state.ScenePlan = plan
	if err := r.advance(types.StagePlanned, StepPlan, "scene planned", plan); err != nil {
		return err
	}

	for {
		done, err := r.pass(ctx)
		if done || err != nil {
			return err
		}
	}
}

// pass runs one planned -> produced -> judged cycle and decides what follows.
func (r *run) pass(ctx context.Context) (bool, error) {
	attempt := types.Attempt{Number: len(r.state.Attempts) + 1}

	if err := ctx.Err(); err != nil {
		return true, r.fail(err, false)
	}
	start := time.Now()
	candidate, err := r.o.agents.Producer.GenerateFinalCandidate(ctx, r.image, r.state.ScenePlan, r.state.Judgement)
	r.observeStage(StepProduce, start)
	if err != nil {
		return r.passFailed(ctx, attempt, err)
	}
	r.state.Generation = candidate
	if err := r.advance(types.StageProduced, StepProduce, "candidate produced", nil); err != nil {
		return true, err
	}

	if err := ctx.Err(); err != nil {
		return true, r.fail(err, false)
	}
	start = time.Now()
	eval, err := r.o.agents.Judge.Evaluate(ctx, r.image, llm.Image{Data: candidate.Image, MIMEType: candidate.MIMEType})
	r.observeStage(StepJudge, start)
	if err != nil {
		return r.passFailed(ctx, attempt, err)
	}
	r.state.Judgement = &eval
	attempt.Score = eval.Score
	attempt.Feedback = eval.Feedback
	attempt.Indeterminate = eval.Indeterminate
	r.state.Attempts = append(r.state.Attempts, attempt)
	if !eval.Indeterminate {
		r.o.metrics.JudgeScores.Observe(float64(eval.Score))
	}
	if err := r.advance(types.StageJudged, StepJudge, fmt.Sprintf("scored %d", eval.Score), eval); err != nil {
		return true, err
	}

	if !eval.Indeterminate && eval.Score >= r.o.opts.Threshold {
		return true, r.advance(types.StageAccepted, StepJudge, "candidate accepted", nil)
	}
	if r.state.Retries >= r.o.opts.MaxRetries {
		return true, r.advance(types.StageRejected, StepJudge, "retry budget exhausted", nil)
	}

	r.state.Retries++
	if err := ctx.Err(); err != nil {
		return true, r.fail(err, false)
	}
	start = time.Now()
	next, err := r.o.agents.Director.CorrectScene(ctx, r.state.ScenePlan, r.state.Judgement)
	r.observeStage(StepCorrect, start)
	if err != nil {
		if !llm.IsRetryable(err) || ctx.Err() != nil {
			return true, r.fail(err, false)
		}
		r.logger.Warn().Err(err).Msg("Scene correction failed, keeping current plan")
		next = r.state.ScenePlan.Clone()
	}
	r.state.ScenePlan = next
	return false, r.advance(types.StagePlanned, StepCorrect, "scene corrected", next)
}

// passFailed handles a producer or judge error: retryable failures consume a
// slot and send the run back to planned with the current plan.
func (r *run) passFailed(ctx context.Context, attempt types.Attempt, err error) (bool, error) {
	if ctx.Err() != nil || !retryableInPass(err) {
		return true, r.fail(err, false)
	}

	attempt.Error = err.Error()
	r.state.Attempts = append(r.state.Attempts, attempt)
	if r.state.Retries >= r.o.opts.MaxRetries {
		return true, r.fail(err, true)
	}
	r.state.Retries++
	r.logger.Warn().Err(err).Int("retries", r.state.Retries).Msg("Pass failed, retrying")
	return false, r.advance(types.StagePlanned, StepProduce, "pass failed, retrying", err.Error())
}

// withBudget retries fn on retryable backend errors while the budget allows.
func (r *run) withBudget(ctx context.Context, fn func() error, step string) error {
	for {
		if err := ctx.Err(); err != nil {
			return r.fail(err, false)
		}
		start := time.Now()
		err := fn()
		r.observeStage(step, start)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !llm.IsRetryable(err) {
			return r.fail(err, false)
		}
		if r.state.Retries >= r.o.opts.MaxRetries {
			return r.fail(err, true)
		}
		r.state.Retries++
		r.logger.Warn().Err(err).Str("step", step).Int("retries", r.state.Retries).Msg("Retryable failure, retrying")
	}
}

func (r *run) advance(next types.Stage, step, message string, content any) error {
	if err := r.state.Advance(next); err != nil {
		return r.fail(err, false)
	}
	r.logger.Debug().Str("stage", string(next)).Msg(message)
	r.emit(step, message, content)
	return nil
}

// fail moves the run to failed and wraps cause in a RunError.
func (r *run) fail(cause error, exhausted bool) error {
	var existing *RunError
	if errors.As(cause, &existing) {
		return existing
	}
	runErr := &RunError{
		RunID:     r.state.RunID,
		Stage:     r.state.Stage,
		Retries:   r.state.Retries,
		Exhausted: exhausted,
		Cause:     cause,
	}
	r.state.Error = cause.Error()
	if !r.state.Stage.Terminal() {
		_ = r.state.Advance(types.StageFailed)
	}
	return runErr
}

func (r *run) emit(step, message string, content any) {
	if r.o.opts.OnProgress == nil {
		return
	}
	r.o.opts.OnProgress(ProgressEvent{
		Step:    step,
		Stage:   string(r.state.Stage),
		Message: message,
		RunID:   r.state.RunID,
		File:    r.state.Product.File,
		Content: content,
	})
}

func (r *run) observeStage(step string, start time.Time) {
	r.o.metrics.StageDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}
