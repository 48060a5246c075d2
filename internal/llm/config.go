// Package llm provides the model gateway used by every agent: text, vision,
// image generation and image editing calls against the hosted Gemini backend.
package llm

import "time"

// ModelRole identifies which agent a call is made on behalf of.
type ModelRole string

const (
	// RoleAnalyst extracts product specs from the product photo
	RoleAnalyst ModelRole = "analyst"
	// RoleDirector plans and revises the scene
	RoleDirector ModelRole = "director"
	// RoleProducer generates the base scene image
	RoleProducer ModelRole = "producer"
	// RoleInpaint composites the product into the base scene
	RoleInpaint ModelRole = "inpaint"
	// RoleJudge scores candidates against the original
	RoleJudge ModelRole = "judge"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// DefaultCallTimeout bounds every backend call unless overridden.
const DefaultCallTimeout = 120 * time.Second

// Config holds the model configuration for the gateway
type Config struct {
	Provider    Provider
	Models      map[ModelRole]string
	CallTimeout time.Duration
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelRole]string{
			RoleAnalyst:  "gemini-2.5-pro",
			RoleDirector: "gemini-2.5-pro",
			RoleProducer: "imagen-4.0-generate-001",
			RoleInpaint:  "gemini-2.5-flash-image",
			RoleJudge:    "gemini-2.5-pro",
		},
		CallTimeout: DefaultCallTimeout,
	}
}

// GetModel returns the model name for a given role.
// Text roles fall back to the analyst model; image roles fall back to each other.
func (c *Config) GetModel(role ModelRole) string {
	if model, ok := c.Models[role]; ok && model != "" {
		return model
	}
	var chain []ModelRole
	switch role {
	case RoleProducer:
		chain = []ModelRole{RoleInpaint}
	case RoleInpaint:
		chain = []ModelRole{RoleProducer}
	default:
		chain = []ModelRole{RoleAnalyst, RoleDirector, RoleJudge}
	}
	for _, fallback := range chain {
		if model, ok := c.Models[fallback]; ok && model != "" {
			return model
		}
	}
	return ""
}

// WithModel returns a new Config with a specific model for a role
func (c *Config) WithModel(role ModelRole, model string) *Config {
	newConfig := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelRole]string, len(c.Models)+1),
		CallTimeout: c.CallTimeout,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[role] = model
	return newConfig
}

// timeout returns the configured per-call timeout, or the default.
func (c *Config) timeout() time.Duration {
	if c.CallTimeout <= 0 {
		return DefaultCallTimeout
	}
	return c.CallTimeout
}
