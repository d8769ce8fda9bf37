package model

// Action is the verdict of a decision oracle consultation.
type Action string

const (
	ActionContinue Action = "CONTINUE"
	ActionPause    Action = "PAUSE"
	ActionSkip     Action = "SKIP"
)

// Decision is produced by the decision oracle once before and once after
// every phase dispatch. Confidence is in [0,1].
type Decision struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
	NextPhase  string  `json:"nextPhase,omitempty"`
}

// Continue returns a CONTINUE decision with the supplied confidence and
// reasoning.
func Continue(confidence float64, reasoning string) *Decision {
	return &Decision{Action: ActionContinue, Confidence: confidence, Reasoning: reasoning}
}
