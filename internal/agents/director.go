package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/luxury-studio/internal/llm"
	"github.com/jonathan/luxury-studio/internal/prompts"
	"github.com/jonathan/luxury-studio/internal/schemas"
	"github.com/jonathan/luxury-studio/internal/types"
	"github.com/rs/zerolog/log"
)

// RevisionMode selects how the director corrects a rejected plan.
type RevisionMode string

const (
	// RevisionNotes appends the judge feedback as a corrective note without a model call
	RevisionNotes RevisionMode = "notes"
	// RevisionModel asks the model to revise the plan given the feedback
	RevisionModel RevisionMode = "model"
)

// ParseRevisionMode validates a revision mode name.
func ParseRevisionMode(s string) (RevisionMode, error) {
	switch RevisionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RevisionNotes:
		return RevisionNotes, nil
	case RevisionModel:
		return RevisionModel, nil
	default:
		return "", fmt.Errorf("unknown director revision mode %q", s)
	}
}

// placementKeywords mark feedback that concerns where the product sits.
var placementKeywords = []string{
	"placement", "placed", "position", "coordinate", "bounding box",
	"off-center", "off center", "misaligned", "floating", "cropped",
	"too large", "too small", "scale",
}

// MentionsPlacement reports whether feedback criticizes product placement.
func MentionsPlacement(feedback string) bool {
	lower := strings.ToLower(feedback)
	for _, kw := range placementKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DirectorOptions configures a Director.
type DirectorOptions struct {
	Revision RevisionMode
	Width    int
	Height   int
}

// Director turns product specs into a scene plan and revises it after rejection.
type Director struct {
	gateway llm.Gateway
	opts    DirectorOptions
}

// NewDirector creates a director backed by gateway.
func NewDirector(gateway llm.Gateway, opts DirectorOptions) *Director {
	if opts.Revision == "" {
		opts.Revision = RevisionNotes
	}
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 1024
	}
	return &Director{gateway: gateway, opts: opts}
}

// CreateScene makes one text call and decodes the reply into a ScenePlan.
func (d *Director) CreateScene(ctx context.Context, specs *types.ProductSpecs) (plan *types.ScenePlan, err error) {
	if specs == nil {
		return nil, fmt.Errorf("director: product specs are required")
	}

	start := time.Now()
	defer func() { observe(AgentDirector, start, err) }()

	prompt, err := prompts.Render(prompts.Director, "create-scene", map[string]string{
		"Specs":  mustJSON(specs),
		"Width":  strconv.Itoa(d.opts.Width),
		"Height": strconv.Itoa(d.opts.Height),
	})
	if err != nil {
		return nil, fmt.Errorf("director: %w", err)
	}

	plan, err = d.invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("agent", AgentDirector).
		Str("light", plan.LightingMap.SourceDirection).
		Floats64("box", plan.InpaintCoordinates).
		Dur("duration", time.Since(start)).
		Msg("Scene planned")
	return plan, nil
}

// CorrectScene returns a new plan addressing the judge's feedback.
// The given plan is never modified.
func (d *Director) CorrectScene(ctx context.Context, plan *types.ScenePlan, judgement *types.JudgeEvaluation) (*types.ScenePlan, error) {
	if plan == nil {
		return nil, fmt.Errorf("director: scene plan is required")
	}
	if judgement == nil || judgement.Indeterminate || strings.TrimSpace(judgement.Feedback) == "" {
		return plan.Clone(), nil
	}

	if d.opts.Revision != RevisionModel {
		next := plan.WithCorrection(judgement.Feedback)
		log.Debug().
			Str("agent", AgentDirector).
			Int("corrections", len(next.Corrections)).
			Msg("Scene corrected with note")
		return next, nil
	}

	return d.revise(ctx, plan, judgement)
}

func (d *Director) revise(ctx context.Context, plan *types.ScenePlan, judgement *types.JudgeEvaluation) (next *types.ScenePlan, err error) {
	start := time.Now()
	defer func() { observe(AgentDirector, start, err) }()

	base := plan.Clone()
	base.Corrections = nil
	prompt, err := prompts.Render(prompts.Director, "correct-scene", map[string]string{
		"Plan":     mustJSON(base),
		"Score":    strconv.Itoa(judgement.Score),
		"Feedback": judgement.Feedback,
		"Width":    strconv.Itoa(d.opts.Width),
		"Height":   strconv.Itoa(d.opts.Height),
	})
	if err != nil {
		return nil, fmt.Errorf("director: %w", err)
	}

	revised, err := d.invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}

	next = plan.WithCorrection(judgement.Feedback)
	next.Prompt = revised.Prompt
	next.NegativePrompt = revised.NegativePrompt
	next.LightingMap = revised.LightingMap
	moved := MentionsPlacement(judgement.Feedback)
	if moved {
		next.InpaintCoordinates = revised.InpaintCoordinates
	}

	log.Info().
		Str("agent", AgentDirector).
		Bool("moved", moved).
		Int("corrections", len(next.Corrections)).
		Dur("duration", time.Since(start)).
		Msg("Scene revised")
	return next, nil
}

func (d *Director) invoke(ctx context.Context, prompt string) (*types.ScenePlan, error) {
	raw, err := d.gateway.InvokeText(ctx, llm.RoleDirector, prompt, llm.GenerateOptions{
		SystemInstruction: prompts.MustGet(prompts.Director, "system"),
		Temperature:       0.4,
		JSON:              true,
	})
	if err != nil {
		return nil, fmt.Errorf("director: %w", err)
	}

	plan, err := schemas.Decode[types.ScenePlan](schemas.ScenePlan, raw)
	if err != nil {
		log.Warn().Err(err).Str("agent", AgentDirector).Msg("Scene plan failed validation")
		return nil, err
	}
	// corrections are owned by the pipeline, never by the model
	plan.Corrections = nil
	return plan, nil
}
