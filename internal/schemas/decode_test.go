package schemas

import (
	"testing"

	"github.com/jonathan/luxury-studio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSpecs = `{
  "metal_type": "18k yellow gold",
  "main_stone": {"cut": "oval", "color": "D", "clarity": "VVS1", "carat": "1.5"},
  "setting_style": "six-prong solitaire",
  "unique_imperfections": "slight scratch on the inner band"
}`

const validPlan = `{
  "prompt": "Ring resting on black velvet, soft rim light",
  "negative_prompt": "blurry, watermark",
  "lighting_map": {"source_direction": "top-left", "temperature": "5600K"},
  "inpaint_coordinates": [120, 340, 560, 780]
}`

func TestDecode_ProductSpecs(t *testing.T) {
	specs, err := Decode[types.ProductSpecs](ProductSpecs, validSpecs)

	require.NoError(t, err)
	assert.Equal(t, "18k yellow gold", specs.MetalType)
	assert.Equal(t, "oval", specs.MainStone.Cut)
	assert.Equal(t, "1.5", specs.MainStone.Carat)
}

func TestDecode_ProductSpecs_CaratOptional(t *testing.T) {
	raw := `{"metal_type": "platinum", "main_stone": {"cut": "round", "color": "F", "clarity": "VS2"},
	  "setting_style": "halo", "unique_imperfections": "none visible"}`

	specs, err := Decode[types.ProductSpecs](ProductSpecs, raw)

	require.NoError(t, err)
	assert.Empty(t, specs.MainStone.Carat)
}

func TestDecode_FencedAndPrefixed(t *testing.T) {
	inputs := []string{
		"```json\n" + validPlan + "\n```",
		"Here is the plan:\n" + validPlan,
		validPlan + "\nHope this helps.",
	}

	for _, raw := range inputs {
		plan, err := Decode[types.ScenePlan](ScenePlan, raw)
		require.NoError(t, err)
		assert.Equal(t, []float64{120, 340, 560, 780}, plan.InpaintCoordinates)
		assert.Equal(t, "top-left", plan.LightingMap.SourceDirection)
	}
}

func TestDecode_JudgeEvaluation(t *testing.T) {
	eval, err := Decode[types.JudgeEvaluation](JudgeEvaluation, `{"score": 85, "feedback": "Prongs are blurred."}`)

	require.NoError(t, err)
	assert.Equal(t, 85, eval.Score)
	assert.Equal(t, "Prongs are blurred.", eval.Feedback)
	assert.False(t, eval.Indeterminate)
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name   string
		schema Name
		raw    string
		field  string
	}{
		{name: "empty", schema: JudgeEvaluation, raw: "   "},
		{name: "prose only", schema: JudgeEvaluation, raw: "I cannot score this image."},
		{name: "score above scale", schema: JudgeEvaluation, raw: `{"score": 150, "feedback": "x"}`, field: "score"},
		{name: "negative score", schema: JudgeEvaluation, raw: `{"score": -1, "feedback": "x"}`, field: "score"},
		{name: "score as string", schema: JudgeEvaluation, raw: `{"score": "90", "feedback": "x"}`, field: "score"},
		{name: "missing feedback", schema: JudgeEvaluation, raw: `{"score": 90}`, field: "(root)"},
		{name: "three coordinates", schema: ScenePlan, raw: `{"prompt": "p", "negative_prompt": "n",
		  "lighting_map": {"source_direction": "left", "temperature": "warm"}, "inpaint_coordinates": [1, 2, 3]}`, field: "inpaint_coordinates"},
		{name: "empty negative prompt", schema: ScenePlan, raw: `{"prompt": "p", "negative_prompt": "",
		  "lighting_map": {"source_direction": "left", "temperature": "warm"}, "inpaint_coordinates": [1, 2, 3, 4]}`, field: "negative_prompt"},
		{name: "missing main stone", schema: ProductSpecs, raw: `{"metal_type": "gold", "setting_style": "bezel", "unique_imperfections": "none"}`, field: "(root)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			switch tt.schema {
			case JudgeEvaluation:
				_, err = Decode[types.JudgeEvaluation](tt.schema, tt.raw)
			case ScenePlan:
				_, err = Decode[types.ScenePlan](tt.schema, tt.raw)
			default:
				_, err = Decode[types.ProductSpecs](tt.schema, tt.raw)
			}

			require.Error(t, err)
			var schemaErr *SchemaValidationError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.schema, schemaErr.Schema)
			assert.Equal(t, tt.raw, schemaErr.Raw)
			assert.True(t, IsSchemaError(err))
			if tt.field != "" {
				require.NotEmpty(t, schemaErr.Errors)
				assert.Equal(t, tt.field, schemaErr.Errors[0].Field)
			}
		})
	}
}

func TestDecode_BlankStringsRejectedByStructValidation(t *testing.T) {
	raw := `{"metal_type": "   ", "main_stone": {"cut": "oval", "color": "D", "clarity": "VVS1"},
	  "setting_style": "solitaire", "unique_imperfections": "none"}`

	_, err := Decode[types.ProductSpecs](ProductSpecs, raw)

	require.Error(t, err)
	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Errors, 1)
	assert.Equal(t, "ProductSpecs.MetalType", schemaErr.Errors[0].Field)
	assert.Contains(t, schemaErr.Error(), "failed notblank")
}

func TestSchemaValidationError_Message(t *testing.T) {
	err := &SchemaValidationError{Schema: JudgeEvaluation, Errors: []FieldError{{Field: "score", Message: "Must be less than or equal to 100"}}}
	assert.Equal(t, "judge_evaluation output failed validation: score: Must be less than or equal to 100", err.Error())
}
