package approval

import (
	"time"
)

// Event is the envelope published to the approval event queue so that
// external surfaces (UIs, notifiers) can react to approval traffic.
type Event struct {
	Topic   string            `json:"topic"`
	Data    interface{}       `json:"data"` // *Request | *Decision
	Headers map[string]string `json:"headers,omitempty"`
}

// Event topics.
const (
	TopicRequestCreated  = "request.created"
	TopicRequestExpired  = "request.expired"
	TopicDecisionCreated = "decision.created"
)

// Request asks a user to approve continuation of a flow phase that the
// decision oracle paused.
type Request struct {
	ID        string                 `json:"id"`
	FlowID    string                 `json:"flowId"`
	Phase     string                 `json:"phase"`
	Reasoning string                 `json:"reasoning,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	ExpiresAt *time.Time             `json:"expiresAt,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// Decision records the verdict on an approval request.
type Decision struct {
	ID        string    `json:"id"` // same as request.ID
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}
