package llm

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// supportedAspectRatios are the ratios the image models accept.
var supportedAspectRatios = []struct {
	label string
	value float64
}{
	{"1:1", 1},
	{"3:4", 3.0 / 4.0},
	{"4:3", 4.0 / 3.0},
	{"9:16", 9.0 / 16.0},
	{"16:9", 16.0 / 9.0},
}

// AspectRatio maps a width and height onto the nearest supported ratio.
func AspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	target := math.Log(float64(width) / float64(height))
	best := supportedAspectRatios[0]
	bestDist := math.Inf(1)
	for _, r := range supportedAspectRatios {
		if d := math.Abs(math.Log(r.value) - target); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best.label
}

// geminiImage serves image generation and editing through the genai SDK,
// which supports image output.
type geminiImage struct {
	client *genai.Client
}

func newGeminiImage(ctx context.Context, apiKey string) (*geminiImage, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &geminiImage{client: client}, nil
}

func (g *geminiImage) generateImage(ctx context.Context, model string, req ImageRequest) ([]byte, error) {
	config := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    AspectRatio(req.Width, req.Height),
		OutputMIMEType: "image/png",
		NegativePrompt: req.NegativePrompt,
	}

	resp, err := g.client.Models.GenerateImages(ctx, model, req.Prompt, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, fmt.Errorf("no images in response")
	}
	img := resp.GeneratedImages[0]
	if img.Image == nil || len(img.Image.ImageBytes) == 0 {
		if img.RAIFilteredReason != "" {
			return nil, fmt.Errorf("image filtered: %s", img.RAIFilteredReason)
		}
		return nil, fmt.Errorf("empty image in response")
	}
	return img.Image.ImageBytes, nil
}

func (g *geminiImage) editImage(ctx context.Context, model string, parts []Part) ([]byte, error) {
	contents := []*genai.Content{{Role: "user", Parts: toImageParts(parts)}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to edit image: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in response")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
		if part.Text != "" {
			log.Debug().Str("model", model).Str("text", part.Text).Msg("Image model returned text alongside image")
		}
	}
	return nil, fmt.Errorf("no image parts in response")
}

func toImageParts(parts []Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			out = append(out, &genai.Part{
				InlineData: &genai.Blob{MIMEType: p.Image.MIMEType, Data: p.Image.Data},
			})
		}
		if p.Text != "" {
			out = append(out, &genai.Part{Text: p.Text})
		}
	}
	return out
}

// apiErrorCode extracts the HTTP status of a genai API error.
// The SDK returns APIError by value; the pointer form is matched as well.
func apiErrorCode(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}
