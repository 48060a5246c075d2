package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/luxury-studio/internal/llm"
	"github.com/jonathan/luxury-studio/internal/prompts"
	"github.com/jonathan/luxury-studio/internal/schemas"
	"github.com/jonathan/luxury-studio/internal/types"
	"github.com/rs/zerolog/log"
)

// ErrEmptyImage is returned when an agent receives an image with no data.
var ErrEmptyImage = errors.New("image is empty")

// Analyst extracts ground-truth product specs from a product photo.
type Analyst struct {
	gateway llm.Gateway
}

// NewAnalyst creates an analyst backed by gateway.
func NewAnalyst(gateway llm.Gateway) *Analyst {
	return &Analyst{gateway: gateway}
}

// Analyse makes one vision call and decodes the reply into ProductSpecs.
func (a *Analyst) Analyse(ctx context.Context, image llm.Image) (specs *types.ProductSpecs, err error) {
	if len(image.Data) == 0 {
		return nil, ErrEmptyImage
	}

	start := time.Now()
	defer func() { observe(AgentAnalyst, start, err) }()

	parts := []llm.Part{
		llm.TextPart(prompts.MustGet(prompts.Analyst, "analyse-product")),
		llm.ImagePart(image),
	}
	raw, err := a.gateway.InvokeWithImage(ctx, llm.RoleAnalyst, parts, llm.GenerateOptions{
		SystemInstruction: prompts.MustGet(prompts.Analyst, "system"),
		JSON:              true,
	})
	if err != nil {
		return nil, fmt.Errorf("analyst: %w", err)
	}

	specs, err = schemas.Decode[types.ProductSpecs](schemas.ProductSpecs, raw)
	if err != nil {
		log.Warn().Err(err).Str("agent", AgentAnalyst).Msg("Product specs failed validation")
		return nil, err
	}

	log.Info().
		Str("agent", AgentAnalyst).
		Str("metal", specs.MetalType).
		Str("cut", specs.MainStone.Cut).
		Dur("duration", time.Since(start)).
		Msg("Product analysed")
	return specs, nil
}
