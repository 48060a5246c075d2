package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// defaultTemperature keeps structured output stable across calls.
const defaultTemperature = 0.1

// geminiText serves text and vision calls through the generative-ai SDK.
type geminiText struct {
	client *genai.Client
}

func newGeminiText(ctx context.Context, apiKey string) (*geminiText, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &geminiText{client: client}, nil
}

func (g *geminiText) generateText(ctx context.Context, modelName string, parts []Part, opts GenerateOptions) (string, error) {
	model := g.client.GenerativeModel(modelName)
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	model.SetTemperature(temperature)
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxTokens)
	}
	if opts.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if opts.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(opts.SystemInstruction)},
		}
	}

	resp, err := model.GenerateContent(ctx, toTextParts(parts)...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

func (g *geminiText) close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func toTextParts(parts []Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			out = append(out, genai.Blob{MIMEType: p.Image.MIMEType, Data: p.Image.Data})
		}
		if p.Text != "" {
			out = append(out, genai.Text(p.Text))
		}
	}
	return out
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
