// Package crew implements the asynchronous executor path of phase dispatch:
// phases backed by a crew (a potentially long-running worker abstraction) can
// run synchronously in-line or detached via a worker pool consuming a queue.
package crew

import (
	"context"

	"github.com/viant/orchestra/model"
)

// Crew performs a phase's actual business logic. Implementations may wrap
// anything from a local function to a remote agent round trip.
type Crew interface {
	ExecuteCrewPhase(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, input map[string]interface{}) (map[string]interface{}, error)
}

// Func adapts a function to the Crew interface.
type Func func(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, input map[string]interface{}) (map[string]interface{}, error)

// ExecuteCrewPhase implements Crew.
func (f Func) ExecuteCrewPhase(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, input map[string]interface{}) (map[string]interface{}, error) {
	return f(ctx, flow, phaseConfig, input)
}

// Task is one queued crew dispatch. Tasks reference the flow by id only; the
// worker reloads current state at execution time.
type Task struct {
	ID       string                 `json:"id"`
	FlowID   string                 `json:"flowId"`
	FlowType string                 `json:"flowType"`
	Phase    string                 `json:"phase"`
	Input    map[string]interface{} `json:"input,omitempty"`
}

// Callback observes the completion of a queued task, successful or not. The
// root service wires this to the lifecycle manager's status update.
type Callback func(ctx context.Context, task *Task, result map[string]interface{}, err error)
