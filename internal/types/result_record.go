package types

import "time"

// ResultRecord is the persisted outcome of a run.
type ResultRecord struct {
	File          string           `json:"file"`
	RunID         string           `json:"run_id"`
	Status        Stage            `json:"status"`
	Analysis      *ProductSpecs    `json:"analysis,omitempty"`
	ScenePlan     *ScenePlan       `json:"scene_plan,omitempty"`
	GenerationRef string           `json:"generation,omitempty"`
	Judgement     *JudgeEvaluation `json:"judgement,omitempty"`
	Retries       int              `json:"retries"`
	Attempts      []Attempt        `json:"attempts,omitempty"`
	Error         string           `json:"error,omitempty"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
}

// NewResultRecord builds the persisted record from a terminal graph state.
func NewResultRecord(state *GraphState) *ResultRecord {
	record := &ResultRecord{
		File:       state.Product.File,
		RunID:      state.RunID,
		Status:     state.Stage,
		Analysis:   state.Analysis,
		ScenePlan:  state.ScenePlan,
		Judgement:  state.Judgement,
		Retries:    state.Retries,
		Attempts:   state.Attempts,
		Error:      state.Error,
		StartedAt:  state.StartedAt,
		FinishedAt: state.FinishedAt,
	}
	if state.Generation != nil {
		record.GenerationRef = state.Generation.Ref
	}
	return record
}

// Score returns the final judge score, or 0 when the run never reached judging.
func (r *ResultRecord) Score() int {
	if r.Judgement == nil {
		return 0
	}
	return r.Judgement.Score
}
