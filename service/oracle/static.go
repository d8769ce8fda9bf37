package oracle

import (
	"context"

	"github.com/viant/orchestra/model"
)

// Static returns scripted decisions keyed by phase name, falling back to
// CONTINUE. It exists so engine behavior can be exercised without a real
// decision backend.
type Static struct {
	Pre  map[string]*model.Decision
	Post map[string]*model.Decision
	Err  error
}

// Decide returns the scripted pre-execution decision for the phase.
func (s *Static) Decide(ctx context.Context, flow *model.Flow, phaseName string, phaseInput, flowState map[string]interface{}) (*model.Decision, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if decision, ok := s.Pre[phaseName]; ok {
		return decision, nil
	}
	return model.Continue(1.0, "scripted default"), nil
}

// DecidePost returns the scripted post-execution decision for the phase.
func (s *Static) DecidePost(ctx context.Context, flow *model.Flow, phaseName string, phaseResult *model.PhaseResult) (*model.Decision, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if decision, ok := s.Post[phaseName]; ok {
		return decision, nil
	}
	return model.Continue(1.0, "scripted default"), nil
}
