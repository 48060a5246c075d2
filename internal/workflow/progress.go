package workflow

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step    string `json:"step"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	File    string `json:"file,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when run progress occurs
type ProgressCallback func(event ProgressEvent)

// Progress steps
const (
	StepAnalyse  = "analyse"
	StepPlan     = "plan"
	StepProduce  = "produce"
	StepJudge    = "judge"
	StepCorrect  = "correct"
	StepComplete = "complete"
)
