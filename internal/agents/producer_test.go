package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/luxury-studio/internal/llm"
	"github.com/jonathan/luxury-studio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFinalCandidate_SinglePass(t *testing.T) {
	scene := []byte("\x89PNG\r\n\x1a\nscene")
	composite := []byte("\x89PNG\r\n\x1a\ncomposite")
	plan := testPlan().WithCorrection("Add a contact shadow")

	mock := &MockGateway{
		InvokeImageFunc: func(_ context.Context, role llm.ModelRole, req llm.ImageRequest) ([]byte, error) {
			assert.Equal(t, llm.RoleProducer, role)
			assert.Contains(t, req.Prompt, "Ring on warm marble")
			assert.Contains(t, req.Prompt, "1. Add a contact shadow")
			assert.Contains(t, req.Prompt, "upper left")
			assert.Contains(t, req.Prompt, "NO jewelry")
			assert.Contains(t, req.NegativePrompt, "extra rings, jewelry")
			assert.Equal(t, 1536, req.Width)
			assert.Equal(t, 1024, req.Height)
			return scene, nil
		},
		EditImageFunc: func(_ context.Context, role llm.ModelRole, parts []llm.Part) ([]byte, error) {
			assert.Equal(t, llm.RoleInpaint, role)
			require.Len(t, parts, 3)
			assert.Contains(t, parts[0].Text, "(400, 380) to (620, 560)")
			assert.NotContains(t, parts[0].Text, "previous composite was rejected")
			assert.Equal(t, scene, parts[1].Image.Data)
			assert.Equal(t, "image/png", parts[1].Image.MIMEType)
			assert.Equal(t, productImage.Data, parts[2].Image.Data)
			return composite, nil
		},
	}
	producer := NewProducer(mock, ProducerOptions{Width: 1536, Height: 1024})

	candidate, err := producer.GenerateFinalCandidate(context.Background(), productImage, plan, nil)

	require.NoError(t, err)
	assert.Equal(t, composite, candidate.Image)
	assert.Equal(t, "image/png", candidate.MIMEType)
	assert.Equal(t, 1, mock.ImageCalls)
	assert.Equal(t, 1, mock.EditCalls)
}

func TestInpaintProduct_ThreadsFeedback(t *testing.T) {
	mock := &MockGateway{
		EditImageFunc: func(_ context.Context, _ llm.ModelRole, parts []llm.Part) ([]byte, error) {
			assert.Contains(t, parts[0].Text, "previous composite was rejected")
			assert.Contains(t, parts[0].Text, "Milgrain edge missing")
			return pngBytes, nil
		},
	}
	producer := NewProducer(mock, ProducerOptions{})

	_, err := producer.InpaintProduct(context.Background(), pngBytes, productImage, testPlan(), &types.JudgeEvaluation{Score: 30, Feedback: "Milgrain edge missing"})

	require.NoError(t, err)
}

func TestInpaintProduct_IgnoresIndeterminateFeedback(t *testing.T) {
	mock := &MockGateway{
		EditImageFunc: func(_ context.Context, _ llm.ModelRole, parts []llm.Part) ([]byte, error) {
			assert.NotContains(t, parts[0].Text, "previous composite was rejected")
			return pngBytes, nil
		},
	}

	_, err := NewProducer(mock, ProducerOptions{}).InpaintProduct(context.Background(), pngBytes, productImage, testPlan(),
		&types.JudgeEvaluation{Indeterminate: true, Feedback: "judge output could not be parsed"})

	require.NoError(t, err)
}

func TestGenerateFinalCandidate_SceneFailureStopsPass(t *testing.T) {
	backendErr := &llm.BackendCallError{Kind: llm.ErrKindTimeout, Retryable: true, Cause: context.DeadlineExceeded}
	mock := &MockGateway{
		InvokeImageFunc: func(context.Context, llm.ModelRole, llm.ImageRequest) ([]byte, error) {
			return nil, backendErr
		},
	}

	_, err := NewProducer(mock, ProducerOptions{}).GenerateFinalCandidate(context.Background(), productImage, testPlan(), nil)

	require.Error(t, err)
	assert.True(t, llm.IsRetryable(err))
	assert.Contains(t, err.Error(), "scene base")
	assert.Equal(t, 0, mock.EditCalls)
}

func TestGenerateFinalCandidate_EmptyInpaint(t *testing.T) {
	mock := &MockGateway{
		EditImageFunc: func(context.Context, llm.ModelRole, []llm.Part) ([]byte, error) {
			return nil, nil
		},
	}

	_, err := NewProducer(mock, ProducerOptions{}).GenerateFinalCandidate(context.Background(), productImage, testPlan(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "inpaint returned no image")
}

func TestGenerateFinalCandidate_InvalidInput(t *testing.T) {
	producer := NewProducer(&MockGateway{}, ProducerOptions{})

	_, err := producer.GenerateFinalCandidate(context.Background(), productImage, nil, nil)
	assert.Error(t, err)

	_, err = producer.GenerateFinalCandidate(context.Background(), llm.Image{}, testPlan(), nil)
	assert.True(t, errors.Is(err, ErrEmptyImage))
}
