package types

import (
	"fmt"
	"time"
)

// Stage is a state of the orchestration state machine.
type Stage string

// Stage constants. Accepted, Rejected and Failed are terminal.
const (
	StageStart    Stage = "start"
	StageAnalyzed Stage = "analyzed"
	StagePlanned  Stage = "planned"
	StageProduced Stage = "produced"
	StageJudged   Stage = "judged"
	StageAccepted Stage = "accepted"
	StageRejected Stage = "rejected"
	StageFailed   Stage = "failed"
)

// transitions lists the allowed successors of each stage.
// Any non-terminal stage may move to failed. The planned->planned and
// produced->planned edges retry a pass whose producer or judge call failed.
var transitions = map[Stage][]Stage{
	StageStart:    {StageAnalyzed},
	StageAnalyzed: {StagePlanned},
	StagePlanned:  {StageProduced, StagePlanned},
	StageProduced: {StageJudged, StagePlanned},
	StageJudged:   {StageAccepted, StageRejected, StagePlanned},
}

// Terminal reports whether no further transition is possible from s.
func (s Stage) Terminal() bool {
	return s == StageAccepted || s == StageRejected || s == StageFailed
}

// CanTransition reports whether the state machine may move from s to next.
func (s Stage) CanTransition(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ProductInput identifies the product image for a run.
type ProductInput struct {
	File      string `json:"file"`
	ImagePath string `json:"image_path,omitempty"`
}

// Attempt records the outcome of one producer+judge pass.
type Attempt struct {
	Number        int    `json:"number"`
	Score         int    `json:"score"`
	Feedback      string `json:"feedback,omitempty"`
	Indeterminate bool   `json:"indeterminate,omitempty"`
	Error         string `json:"error,omitempty"`
}

// GraphState is the aggregate record of one run, owned by a single orchestrator invocation.
type GraphState struct {
	RunID      string           `json:"run_id"`
	Product    ProductInput     `json:"product"`
	Stage      Stage            `json:"stage"`
	Analysis   *ProductSpecs    `json:"analysis,omitempty"`
	ScenePlan  *ScenePlan       `json:"scene_plan,omitempty"`
	Generation *Candidate       `json:"generation,omitempty"`
	Judgement  *JudgeEvaluation `json:"judgement,omitempty"`
	Retries    int              `json:"retries"`
	Attempts   []Attempt        `json:"attempts,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
}

// NewGraphState creates the initial state of a run with only the product populated.
func NewGraphState(runID string, product ProductInput) *GraphState {
	return &GraphState{
		RunID:     runID,
		Product:   product,
		Stage:     StageStart,
		StartedAt: time.Now().UTC(),
	}
}

// Advance moves the state to next, rejecting transitions the state machine does not allow.
func (s *GraphState) Advance(next Stage) error {
	if !s.Stage.CanTransition(next) {
		return fmt.Errorf("invalid stage transition %s -> %s", s.Stage, next)
	}
	s.Stage = next
	if next.Terminal() {
		s.FinishedAt = time.Now().UTC()
	}
	return nil
}

// Score returns the latest judge score, or 0 when no judgement exists.
func (s *GraphState) Score() int {
	if s.Judgement == nil {
		return 0
	}
	return s.Judgement.Score
}
