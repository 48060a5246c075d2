package agents

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jonathan/luxury-studio/internal/llm"
	"github.com/jonathan/luxury-studio/internal/prompts"
	"github.com/jonathan/luxury-studio/internal/schemas"
	"github.com/jonathan/luxury-studio/internal/types"
	"github.com/rs/zerolog/log"
)

// Judge scores a candidate composite against the original product photo.
type Judge struct {
	gateway llm.Gateway
}

// NewJudge creates a judge backed by gateway.
func NewJudge(gateway llm.Gateway) *Judge {
	return &Judge{gateway: gateway}
}

// Evaluate makes one vision call with both images and the rubric.
// Output that cannot be parsed yields an indeterminate zero score and a nil
// error; backend failures are returned as errors.
func (j *Judge) Evaluate(ctx context.Context, original, candidate llm.Image) (eval types.JudgeEvaluation, err error) {
	if len(original.Data) == 0 || len(candidate.Data) == 0 {
		return types.JudgeEvaluation{}, ErrEmptyImage
	}

	start := time.Now()
	defer func() { observe(AgentJudge, start, err) }()

	parts := []llm.Part{
		llm.TextPart(prompts.MustGet(prompts.Judge, "evaluate")),
		llm.ImagePart(original),
		llm.ImagePart(candidate),
	}
	raw, err := j.gateway.InvokeWithImage(ctx, llm.RoleJudge, parts, llm.GenerateOptions{
		SystemInstruction: prompts.MustGet(prompts.Judge, "system"),
		JSON:              true,
	})
	if err != nil {
		return types.JudgeEvaluation{}, fmt.Errorf("judge: %w", err)
	}

	decoded, decodeErr := schemas.Decode[types.JudgeEvaluation](schemas.JudgeEvaluation, raw)
	if decodeErr != nil {
		var schemaErr *schemas.SchemaValidationError
		if !errors.As(decodeErr, &schemaErr) {
			return types.JudgeEvaluation{}, fmt.Errorf("judge: %w", decodeErr)
		}
		log.Warn().
			Err(decodeErr).
			Str("agent", AgentJudge).
			Str("raw", truncate(raw, 200)).
			Msg("Judge output could not be parsed")
		return Indeterminate(decodeErr), nil
	}

	log.Info().
		Str("agent", AgentJudge).
		Int("score", decoded.Score).
		Dur("duration", time.Since(start)).
		Msg("Candidate judged")
	return *decoded, nil
}

// Indeterminate is the evaluation recorded when the judge output is unusable.
func Indeterminate(cause error) types.JudgeEvaluation {
	return types.JudgeEvaluation{
		Score:         types.ScoreMin,
		Feedback:      fmt.Sprintf("judge output could not be parsed: %v", cause),
		Indeterminate: true,
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
