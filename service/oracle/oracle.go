// Package oracle defines the decision point consulted by the execution
// engine before and after every phase dispatch.
package oracle

import (
	"context"

	"github.com/viant/orchestra/model"
)

// Service is the decision oracle. Decide runs before dispatch and may pause
// or skip the phase; DecidePost runs after dispatch and picks the next phase
// with access to the actual result. Implementations may be rule-based or
// model-backed; the engine treats them uniformly.
type Service interface {
	Decide(ctx context.Context, flow *model.Flow, phaseName string, phaseInput, flowState map[string]interface{}) (*model.Decision, error)
	DecidePost(ctx context.Context, flow *model.Flow, phaseName string, phaseResult *model.PhaseResult) (*model.Decision, error)
}
