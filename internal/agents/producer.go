package agents

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/luxury-studio/internal/llm"
	"github.com/jonathan/luxury-studio/internal/prompts"
	"github.com/jonathan/luxury-studio/internal/types"
	"github.com/rs/zerolog/log"
)

// ProducerOptions configures a Producer.
type ProducerOptions struct {
	Width  int
	Height int
}

// Producer renders the composite: an empty base scene, then the product
// inpainted into the planned bounding box.
type Producer struct {
	gateway llm.Gateway
	opts    ProducerOptions
}

// NewProducer creates a producer backed by gateway.
func NewProducer(gateway llm.Gateway, opts ProducerOptions) *Producer {
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 1024
	}
	return &Producer{gateway: gateway, opts: opts}
}

// GenerateFinalCandidate performs one generation pass: base scene then inpaint.
// feedback, when non-nil, is the judgement of the previous candidate.
func (p *Producer) GenerateFinalCandidate(ctx context.Context, product llm.Image, plan *types.ScenePlan, feedback *types.JudgeEvaluation) (candidate *types.Candidate, err error) {
	if plan == nil {
		return nil, fmt.Errorf("producer: scene plan is required")
	}
	if len(product.Data) == 0 {
		return nil, ErrEmptyImage
	}

	start := time.Now()
	defer func() { observe(AgentProducer, start, err) }()

	scene, err := p.GenerateSceneBase(ctx, plan)
	if err != nil {
		return nil, err
	}

	composite, err := p.InpaintProduct(ctx, scene, product, plan, feedback)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("agent", AgentProducer).
		Int("bytes", len(composite)).
		Dur("duration", time.Since(start)).
		Msg("Candidate produced")
	return &types.Candidate{
		Image:    composite,
		MIMEType: http.DetectContentType(composite),
	}, nil
}

// GenerateSceneBase renders the plan's scene with all jewelry excluded.
func (p *Producer) GenerateSceneBase(ctx context.Context, plan *types.ScenePlan) ([]byte, error) {
	prompt, err := prompts.Render(prompts.Producer, "scene-base", map[string]string{
		"Prompt":      plan.RenderPrompt(),
		"Direction":   plan.LightingMap.SourceDirection,
		"Temperature": plan.LightingMap.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("producer: %w", err)
	}
	negative, err := prompts.Render(prompts.Producer, "scene-negative", map[string]string{
		"Negative": strings.TrimSpace(plan.NegativePrompt),
	})
	if err != nil {
		return nil, fmt.Errorf("producer: %w", err)
	}

	scene, err := p.gateway.InvokeImage(ctx, llm.RoleProducer, llm.ImageRequest{
		Prompt:         prompt,
		NegativePrompt: negative,
		Width:          p.opts.Width,
		Height:         p.opts.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("producer: scene base: %w", err)
	}
	if len(scene) == 0 {
		return nil, fmt.Errorf("producer: scene base returned no image")
	}
	return scene, nil
}

// InpaintProduct composites the product into scene within the plan's bounding box.
func (p *Producer) InpaintProduct(ctx context.Context, scene []byte, product llm.Image, plan *types.ScenePlan, feedback *types.JudgeEvaluation) ([]byte, error) {
	x1, y1, x2, y2 := plan.BoundingBox()
	instruction, err := prompts.Render(prompts.Producer, "inpaint", map[string]string{
		"X1":          formatCoord(x1),
		"Y1":          formatCoord(y1),
		"X2":          formatCoord(x2),
		"Y2":          formatCoord(y2),
		"Direction":   plan.LightingMap.SourceDirection,
		"Temperature": plan.LightingMap.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("producer: %w", err)
	}
	if feedback != nil && !feedback.Indeterminate && strings.TrimSpace(feedback.Feedback) != "" {
		instruction += prompts.Format(prompts.MustGet(prompts.Producer, "inpaint-feedback"), map[string]string{
			"Feedback": feedback.Feedback,
		})
	}

	parts := []llm.Part{
		llm.TextPart(instruction),
		llm.ImagePart(llm.Image{Data: scene, MIMEType: http.DetectContentType(scene)}),
		llm.ImagePart(product),
	}
	composite, err := p.gateway.EditImage(ctx, llm.RoleInpaint, parts)
	if err != nil {
		return nil, fmt.Errorf("producer: inpaint: %w", err)
	}
	if len(composite) == 0 {
		return nil, fmt.Errorf("producer: inpaint returned no image")
	}
	return composite, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
