package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	prompt, err := Get(Analyst, "analyse-product")
	require.NoError(t, err)
	assert.Contains(t, prompt, "unique_imperfections")
}

func TestGet_InvalidFile(t *testing.T) {
	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prompt file nonexistent.json not found")
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := Get(Director, "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_AllAgentPrompts(t *testing.T) {
	required := map[string][]string{
		Analyst:  {"system", "analyse-product"},
		Director: {"system", "create-scene", "correct-scene"},
		Producer: {"scene-base", "scene-negative", "inpaint", "inpaint-feedback"},
		Judge:    {"system", "evaluate"},
	}
	for file, keys := range required {
		for _, key := range keys {
			assert.NotPanics(t, func() {
				assert.NotEmpty(t, MustGet(file, key))
			}, "%s/%s", file, key)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		expected string
	}{
		{
			name:     "single placeholder",
			template: "Score: {{.Score}}/100",
			data:     map[string]string{"Score": "85"},
			expected: "Score: 85/100",
		},
		{
			name:     "repeated placeholder",
			template: "{{.X}} and {{.X}}",
			data:     map[string]string{"X": "1"},
			expected: "1 and 1",
		},
		{
			name:     "missing value left as is",
			template: "{{.A}} {{.B}}",
			data:     map[string]string{"A": "a"},
			expected: "a {{.B}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.template, tt.data))
		})
	}
}

func TestRender(t *testing.T) {
	out, err := Render(Producer, "scene-negative", map[string]string{"Negative": "blurry"})
	require.NoError(t, err)
	assert.True(t, len(out) > len("blurry"))
	assert.Contains(t, out, "blurry, jewelry")

	_, err = Render(Producer, "scene-base", map[string]string{"Prompt": "velvet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{{.Direction}}")
}

func TestKeys(t *testing.T) {
	keys, err := Keys(Director)
	require.NoError(t, err)
	assert.Equal(t, []string{"correct-scene", "create-scene", "system"}, keys)

	_, err = Keys("missing.json")
	assert.Error(t, err)
}

func TestFormat_ValueContainingPlaceholder(t *testing.T) {
	out := Format("{{.A}} and {{.B}}", map[string]string{"A": "{{.B}}", "B": "b"})
	assert.Equal(t, "{{.B}} and b", out)
}
