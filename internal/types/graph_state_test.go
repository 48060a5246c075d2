package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_CanTransition(t *testing.T) {
	tests := []struct {
		from Stage
		to   Stage
		want bool
	}{
		{StageStart, StageAnalyzed, true},
		{StageStart, StagePlanned, false},
		{StageAnalyzed, StagePlanned, true},
		{StagePlanned, StageProduced, true},
		{StagePlanned, StagePlanned, true},
		{StagePlanned, StageJudged, false},
		{StageProduced, StagePlanned, true},
		{StageProduced, StageAccepted, false},
		{StageProduced, StageJudged, true},
		{StageJudged, StageAccepted, true},
		{StageJudged, StageRejected, true},
		{StageJudged, StagePlanned, true},
		{StageJudged, StageAnalyzed, false},
		{StageProduced, StageFailed, true},
		{StageAccepted, StagePlanned, false},
		{StageRejected, StageFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestGraphState_Advance(t *testing.T) {
	state := NewGraphState("run-1", ProductInput{File: "ring.png"})
	assert.Equal(t, StageStart, state.Stage)
	assert.Nil(t, state.Analysis)
	assert.Nil(t, state.ScenePlan)

	require.NoError(t, state.Advance(StageAnalyzed))
	err := state.Advance(StageJudged)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyzed -> judged")

	require.NoError(t, state.Advance(StageFailed))
	assert.False(t, state.FinishedAt.IsZero())
}

func TestResultRecord_FromState(t *testing.T) {
	state := NewGraphState("run-2", ProductInput{File: "ring.png"})
	state.ScenePlan = &ScenePlan{Prompt: "p", NegativePrompt: "n", InpaintCoordinates: []float64{1, 2, 3, 4}}
	state.Generation = &Candidate{Image: []byte("png"), Ref: "out/ring_composite.png"}
	state.Judgement = &JudgeEvaluation{Score: 91, Feedback: "good"}
	state.Retries = 1
	state.Stage = StageAccepted

	record := NewResultRecord(state)
	assert.Equal(t, "ring.png", record.File)
	assert.Equal(t, StageAccepted, record.Status)
	assert.Equal(t, "out/ring_composite.png", record.GenerationRef)
	assert.Equal(t, 91, record.Score())

	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "cG5n", "candidate bytes must not be serialized")
}
