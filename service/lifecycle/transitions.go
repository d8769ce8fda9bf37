package lifecycle

import (
	"github.com/viant/orchestra/model"
)

// transitions maps each status to its set of valid next statuses. Same-state
// transitions are no-ops and always valid; completed has no outgoing edges;
// failed and cancelled permit an explicit restart only.
var transitions = map[model.Status][]model.Status{
	model.StatusInitialized: {
		model.StatusActive,
		model.StatusProcessing,
		model.StatusPaused,
		model.StatusFailed,
		model.StatusCancelled,
		// an approval gate on the very first phase parks the flow before it
		// ever goes active
		model.StatusWaitingForApproval,
	},
	model.StatusActive: {
		model.StatusProcessing,
		model.StatusPaused,
		model.StatusCompleted,
		model.StatusFailed,
		model.StatusCancelled,
		model.StatusWaitingForApproval,
	},
	model.StatusProcessing: {
		model.StatusActive,
		model.StatusPaused,
		model.StatusCompleted,
		model.StatusFailed,
		model.StatusCancelled,
		model.StatusWaitingForApproval,
	},
	model.StatusPaused: {
		model.StatusActive,
		model.StatusProcessing,
		model.StatusCancelled,
		model.StatusFailed,
	},
	model.StatusWaitingForApproval: {
		model.StatusActive,
		model.StatusProcessing,
		model.StatusPaused,
		model.StatusCancelled,
		model.StatusFailed,
	},
	model.StatusFailed: {
		model.StatusInitialized,
		model.StatusActive,
	},
	model.StatusCancelled: {
		model.StatusInitialized,
		model.StatusActive,
	},
	model.StatusCompleted: {},
}

// CanTransition reports whether from → to is a valid status transition.
func CanTransition(from, to model.Status) bool {
	if from == to {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// pausable lists statuses a flow can be paused from.
var pausable = map[model.Status]bool{
	model.StatusActive:      true,
	model.StatusProcessing:  true,
	model.StatusInitialized: true,
}

// resumable lists statuses a flow can be resumed from.
var resumable = map[model.Status]bool{
	model.StatusInitialized:        true,
	model.StatusPaused:             true,
	model.StatusWaitingForApproval: true,
}

// CanResume reports whether the flow may be resumed: either its status is
// resumable, it awaits user approval, or its persisted state was reset.
func CanResume(flow *model.Flow) bool {
	if flow == nil {
		return false
	}
	status := flow.GetStatus()
	if status.IsTerminal() {
		return false
	}
	if resumable[status] {
		return true
	}
	if flow.AwaitingUserApproval() {
		return true
	}
	if v, ok := flow.PersistenceValue(model.KeyStatus); ok {
		if s, _ := v.(string); s == model.PersistenceStatusReset {
			return true
		}
	}
	return false
}
