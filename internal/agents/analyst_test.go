package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/luxury-studio/internal/llm"
	"github.com/jonathan/luxury-studio/internal/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyse_Success(t *testing.T) {
	mock := &MockGateway{
		InvokeWithImageFunc: func(_ context.Context, role llm.ModelRole, parts []llm.Part, opts llm.GenerateOptions) (string, error) {
			assert.Equal(t, llm.RoleAnalyst, role)
			assert.True(t, opts.JSON)
			assert.NotEmpty(t, opts.SystemInstruction)
			require.Len(t, parts, 2)
			assert.Contains(t, parts[0].Text, "metal_type")
			require.NotNil(t, parts[1].Image)
			assert.Equal(t, productImage.Data, parts[1].Image.Data)
			return "```json\n" + specsJSON + "\n```", nil
		},
	}

	specs, err := NewAnalyst(mock).Analyse(context.Background(), productImage)

	require.NoError(t, err)
	assert.Equal(t, "platinum", specs.MetalType)
	assert.Equal(t, "emerald", specs.MainStone.Cut)
	assert.Equal(t, "tiny nick on the left shoulder", specs.UniqueImperfections)
	assert.Equal(t, 1, mock.TextCalls)
}

func TestAnalyse_InvalidOutputIsSchemaError(t *testing.T) {
	raw := `{"metal_type": "gold"}`
	mock := &MockGateway{
		InvokeWithImageFunc: func(context.Context, llm.ModelRole, []llm.Part, llm.GenerateOptions) (string, error) {
			return raw, nil
		},
	}

	specs, err := NewAnalyst(mock).Analyse(context.Background(), productImage)

	assert.Nil(t, specs)
	var schemaErr *schemas.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, raw, schemaErr.Raw)
	assert.Equal(t, schemas.ProductSpecs, schemaErr.Schema)
}

func TestAnalyse_BackendErrorWrapped(t *testing.T) {
	backendErr := &llm.BackendCallError{Role: llm.RoleAnalyst, Kind: llm.ErrKindQuota, Retryable: true, Cause: errors.New("429")}
	mock := &MockGateway{
		InvokeWithImageFunc: func(context.Context, llm.ModelRole, []llm.Part, llm.GenerateOptions) (string, error) {
			return "", backendErr
		},
	}

	_, err := NewAnalyst(mock).Analyse(context.Background(), productImage)

	require.Error(t, err)
	assert.ErrorIs(t, err, backendErr)
	assert.True(t, llm.IsRetryable(err))
	assert.Contains(t, err.Error(), "analyst:")
}

func TestAnalyse_EmptyImage(t *testing.T) {
	mock := &MockGateway{}

	_, err := NewAnalyst(mock).Analyse(context.Background(), llm.Image{})

	assert.ErrorIs(t, err, ErrEmptyImage)
	assert.Equal(t, 0, mock.TextCalls)
}
