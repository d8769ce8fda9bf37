package audit

import (
	"time"
)

// Category routes an audit event.
type Category string

// Audit event categories.
const (
	CategoryFlowLifecycle Category = "flow_lifecycle"
	CategoryFlowExecution Category = "flow_execution"
	CategoryUserAction    Category = "user_action"
	CategorySystemEvent   Category = "system_event"
	CategorySecurityEvent Category = "security_event"
	CategoryCompliance    Category = "compliance_event"
	CategoryPerformance   Category = "performance_event"
	CategoryErrorEvent    Category = "error_event"
	CategoryAgentDecision Category = "agent_decision"
)

// Level grades an audit event.
type Level string

// Audit event levels.
const (
	LevelDebug    Level = "debug"
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Event is an immutable audit record. Details and Metadata pass through the
// registered redaction filters before the event is stored or emitted.
type Event struct {
	EventID      string                 `json:"eventId"`
	Timestamp    time.Time              `json:"timestamp"`
	Category     Category               `json:"category"`
	Level        Level                  `json:"level"`
	FlowID       string                 `json:"flowId"`
	Operation    string                 `json:"operation"`
	Actor        string                 `json:"actor,omitempty"`
	Tenant       string                 `json:"tenant,omitempty"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Clone returns a shallow copy with copied Details/Metadata maps so that
// filters can redact without mutating the caller's maps.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	out.Details = copyMap(e.Details)
	out.Metadata = copyMap(e.Metadata)
	return &out
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = copyMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
