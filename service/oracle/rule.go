package oracle

import (
	"context"

	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/policy"
)

// Rule is a deterministic, policy-driven oracle. The effective policy comes
// from the execution context when present, otherwise from the configured
// default; a nil policy continues everything.
type Rule struct {
	defaultPolicy *policy.Policy
}

// Decide pauses phases the policy marks for approval, skips phases on the
// skip list and continues otherwise.
func (r *Rule) Decide(ctx context.Context, flow *model.Flow, phaseName string, phaseInput, flowState map[string]interface{}) (*model.Decision, error) {
	effective := r.effective(ctx)
	if effective.ShouldSkip(phaseName) {
		return &model.Decision{
			Action:     model.ActionSkip,
			Confidence: 1.0,
			Reasoning:  "phase is on the skip list",
		}, nil
	}
	if effective.RequiresApproval(phaseName) {
		return &model.Decision{
			Action:     model.ActionPause,
			Confidence: 1.0,
			Reasoning:  "phase requires user approval",
		}, nil
	}
	return model.Continue(1.0, "policy permits execution"), nil
}

// DecidePost continues and leaves next-phase selection to the phase
// configuration defaults unless the result failed, in which case it still
// continues: retry policy is the error handler's concern, not the oracle's.
func (r *Rule) DecidePost(ctx context.Context, flow *model.Flow, phaseName string, phaseResult *model.PhaseResult) (*model.Decision, error) {
	return model.Continue(1.0, "post-execution review passed"), nil
}

func (r *Rule) effective(ctx context.Context) *policy.Policy {
	if fromContext := policy.FromContext(ctx); fromContext != nil {
		return fromContext
	}
	return r.defaultPolicy
}

// NewRule creates a policy-driven oracle with an optional default policy.
func NewRule(defaultPolicy *policy.Policy) *Rule {
	return &Rule{defaultPolicy: defaultPolicy}
}
