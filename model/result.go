package model

// Phase result statuses produced by the execution engine. Raw handler results
// may carry additional business-level statuses which are passed through.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
	ResultPaused    = "paused"
)

// PhaseResult is the output of one phase run. It is created fresh per
// invocation and never mutated after return.
type PhaseResult struct {
	FlowID    string                 `json:"flowId"`
	Phase     string                 `json:"phase"`
	Status    string                 `json:"status"`
	Result    map[string]interface{} `json:"result,omitempty"`
	NextPhase string                 `json:"nextPhase,omitempty"`
	Decision  *Decision              `json:"agentDecision,omitempty"`

	// ExecutionTimeMs is wall-clock duration of the invocation.
	ExecutionTimeMs int64 `json:"executionTimeMs"`

	Error       string `json:"error,omitempty"`
	ErrorType   string `json:"errorType,omitempty"`
	Recoverable bool   `json:"recoverable,omitempty"`
}

// Failed reports whether the result describes a failure, either a runtime
// failure captured by the engine or a business-level non-completed status.
func (r *PhaseResult) Failed() bool {
	return r != nil && r.Status == ResultFailed
}
