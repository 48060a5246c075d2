package types

// ScoreMin and ScoreMax bound the canonical judge score scale.
const (
	ScoreMin = 0
	ScoreMax = 100
)

// JudgeEvaluation is the judge's verdict on a single candidate.
// Indeterminate is set when the judge output could not be parsed; in that case Score is 0.
type JudgeEvaluation struct {
	Score         int    `json:"score" validate:"min=0,max=100"`
	Feedback      string `json:"feedback"`
	Indeterminate bool   `json:"indeterminate,omitempty"`
}

// Candidate is one produced composite image awaiting evaluation.
type Candidate struct {
	Image    []byte `json:"-"`
	MIMEType string `json:"mime_type,omitempty"`
	Ref      string `json:"ref,omitempty"` // Path or object URL once persisted
}
