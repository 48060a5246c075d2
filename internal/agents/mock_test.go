package agents

import (
	"context"

	"github.com/jonathan/luxury-studio/internal/llm"
)

// MockGateway implements llm.Gateway for testing
type MockGateway struct {
	InvokeTextFunc      func(ctx context.Context, role llm.ModelRole, prompt string, opts llm.GenerateOptions) (string, error)
	InvokeWithImageFunc func(ctx context.Context, role llm.ModelRole, parts []llm.Part, opts llm.GenerateOptions) (string, error)
	InvokeImageFunc     func(ctx context.Context, role llm.ModelRole, req llm.ImageRequest) ([]byte, error)
	EditImageFunc       func(ctx context.Context, role llm.ModelRole, parts []llm.Part) ([]byte, error)

	TextCalls  int
	ImageCalls int
	EditCalls  int
}

func (m *MockGateway) InvokeText(ctx context.Context, role llm.ModelRole, prompt string, opts llm.GenerateOptions) (string, error) {
	m.TextCalls++
	if m.InvokeTextFunc != nil {
		return m.InvokeTextFunc(ctx, role, prompt, opts)
	}
	return "", nil
}

func (m *MockGateway) InvokeWithImage(ctx context.Context, role llm.ModelRole, parts []llm.Part, opts llm.GenerateOptions) (string, error) {
	m.TextCalls++
	if m.InvokeWithImageFunc != nil {
		return m.InvokeWithImageFunc(ctx, role, parts, opts)
	}
	return "", nil
}

func (m *MockGateway) InvokeImage(ctx context.Context, role llm.ModelRole, req llm.ImageRequest) ([]byte, error) {
	m.ImageCalls++
	if m.InvokeImageFunc != nil {
		return m.InvokeImageFunc(ctx, role, req)
	}
	return pngBytes, nil
}

func (m *MockGateway) EditImage(ctx context.Context, role llm.ModelRole, parts []llm.Part) ([]byte, error) {
	m.EditCalls++
	if m.EditImageFunc != nil {
		return m.EditImageFunc(ctx, role, parts)
	}
	return pngBytes, nil
}

func (m *MockGateway) Model(_ llm.ModelRole) string {
	return "mock-model"
}

func (m *MockGateway) Close() error {
	return nil
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

var productImage = llm.Image{Data: []byte("\xff\xd8\xff\xe0product"), MIMEType: "image/jpeg"}

const specsJSON = `{
  "metal_type": "platinum",
  "main_stone": {"cut": "emerald", "color": "E", "clarity": "VS1", "carat": "2.0"},
  "setting_style": "four-prong solitaire",
  "unique_imperfections": "tiny nick on the left shoulder"
}`

const planJSON = `{
  "prompt": "Ring on a model's hand against warm marble",
  "negative_prompt": "extra rings, distorted fingers",
  "lighting_map": {"source_direction": "upper left", "temperature": "warm 3200K"},
  "inpaint_coordinates": [400, 380, 620, 560]
}`
