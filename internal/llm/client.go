package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Gateway is the single surface agents use to reach the model backend.
type Gateway interface {
	// InvokeText sends a text prompt and returns the model's text reply
	InvokeText(ctx context.Context, role ModelRole, prompt string, opts GenerateOptions) (string, error)
	// InvokeWithImage sends mixed text and image parts and returns the text reply
	InvokeWithImage(ctx context.Context, role ModelRole, parts []Part, opts GenerateOptions) (string, error)
	// InvokeImage generates a new image from a prompt
	InvokeImage(ctx context.Context, role ModelRole, req ImageRequest) ([]byte, error)
	// EditImage returns an image produced from the given text and image parts
	EditImage(ctx context.Context, role ModelRole, parts []Part) ([]byte, error)
	// Model returns the model id configured for a role
	Model(role ModelRole) string
	// Close releases any resources held by the gateway
	Close() error
}

// Image is an encoded image with its MIME type.
type Image struct {
	Data     []byte
	MIMEType string
}

// Part is one element of a multimodal request: text or an image.
type Part struct {
	Text  string
	Image *Image
}

// TextPart wraps a string as a request part.
func TextPart(text string) Part { return Part{Text: text} }

// ImagePart wraps an image as a request part.
func ImagePart(img Image) Part { return Part{Image: &img} }

// GenerateOptions tunes a text or vision call.
type GenerateOptions struct {
	SystemInstruction string
	Temperature       float32
	MaxTokens         int32
	// JSON requests an application/json response
	JSON bool
}

// ImageRequest describes a generated image.
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
}

// LoadImage reads an image from disk and sniffs its MIME type.
func LoadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("image %s is empty", path)
	}
	return Image{Data: data, MIMEType: http.DetectContentType(data)}, nil
}

// textBackend performs text and vision generation.
type textBackend interface {
	generateText(ctx context.Context, model string, parts []Part, opts GenerateOptions) (string, error)
	close() error
}

// imageBackend performs image generation and editing.
type imageBackend interface {
	generateImage(ctx context.Context, model string, req ImageRequest) ([]byte, error)
	editImage(ctx context.Context, model string, parts []Part) ([]byte, error)
}

// NewGateway creates a model gateway based on configuration
func NewGateway(ctx context.Context, config *Config, apiKey string) (Gateway, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

// GeminiClient implements Gateway for Google Gemini
type GeminiClient struct {
	text   textBackend
	image  imageBackend
	config *Config
}

// NewGeminiClient creates a new Gemini gateway
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultConfig()
	}

	text, err := newGeminiText(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	image, err := newGeminiImage(ctx, apiKey)
	if err != nil {
		_ = text.close()
		return nil, fmt.Errorf("failed to create Gemini image client: %w", err)
	}

	return &GeminiClient{text: text, image: image, config: config}, nil
}

// InvokeText generates text for a role
func (c *GeminiClient) InvokeText(ctx context.Context, role ModelRole, prompt string, opts GenerateOptions) (string, error) {
	return c.InvokeWithImage(ctx, role, []Part{TextPart(prompt)}, opts)
}

// InvokeWithImage generates text from mixed text and image parts
func (c *GeminiClient) InvokeWithImage(ctx context.Context, role ModelRole, parts []Part, opts GenerateOptions) (string, error) {
	model, err := c.resolve(role)
	if err != nil {
		return "", err
	}

	var text string
	err = c.call(ctx, role, model, "text", func(callCtx context.Context) error {
		var callErr error
		text, callErr = c.text.generateText(callCtx, model, parts, opts)
		return callErr
	})
	if err != nil {
		return "", err
	}
	if opts.JSON {
		return CleanJSONBlock(text), nil
	}
	return text, nil
}

// InvokeImage generates an image for a role
func (c *GeminiClient) InvokeImage(ctx context.Context, role ModelRole, req ImageRequest) ([]byte, error) {
	model, err := c.resolve(role)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = c.call(ctx, role, model, "image", func(callCtx context.Context) error {
		var callErr error
		data, callErr = c.image.generateImage(callCtx, model, req)
		return callErr
	})
	return data, err
}

// EditImage produces an image from text and image parts for a role
func (c *GeminiClient) EditImage(ctx context.Context, role ModelRole, parts []Part) ([]byte, error) {
	model, err := c.resolve(role)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = c.call(ctx, role, model, "edit", func(callCtx context.Context) error {
		var callErr error
		data, callErr = c.image.editImage(callCtx, model, parts)
		return callErr
	})
	return data, err
}

// Model returns the model name for a role
func (c *GeminiClient) Model(role ModelRole) string {
	return c.config.GetModel(role)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.text != nil {
		return c.text.close()
	}
	return nil
}

func (c *GeminiClient) resolve(role ModelRole) (string, error) {
	model := c.config.GetModel(role)
	if model == "" {
		return "", fmt.Errorf("no model configured for role %s", role)
	}
	return model, nil
}

// call runs fn under the per-call timeout and classifies any failure.
func (c *GeminiClient) call(ctx context.Context, role ModelRole, model, op string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.config.timeout())
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	elapsed := time.Since(start)

	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = fmt.Errorf("call exceeded %s: %w", c.config.timeout(), context.DeadlineExceeded)
		}
		classified := classify(role, model, err)
		log.Warn().
			Err(err).
			Str("role", string(role)).
			Str("model", model).
			Str("op", op).
			Str("kind", string(classified.Kind)).
			Bool("retryable", classified.Retryable).
			Dur("duration", elapsed).
			Msg("Model call failed")
		return classified
	}

	log.Debug().
		Str("role", string(role)).
		Str("model", model).
		Str("op", op).
		Dur("duration", elapsed).
		Msg("Model call completed")
	return nil
}
