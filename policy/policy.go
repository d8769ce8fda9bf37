// Package policy provides a simple, declarative per-phase decision layer that
// can be attached to a flow execution via context. It is deliberately
// decoupled from the rest of the engine so that using it is entirely opt-in –
// engines that do not embed a Policy in their context keep the default
// "continue" behaviour.

package policy

import (
	"context"
	"strings"
)

// Decision modes recognised by the rule-based oracle.
const (
	ModeAuto    = "auto"    // continue automatically (default)
	ModeApprove = "approve" // pause every phase for user approval
	ModeSkip    = "skip"    // skip every phase (dry-run walkthrough)
)

// Policy represents the declarative decision settings for a flow run.
//
//   - Mode controls the high-level behaviour (auto / approve / skip).
//   - ApproveList pauses the listed phases regardless of Mode.
//   - SkipList skips the listed phases regardless of Mode.
//
// A nil *Policy means "continue everything" and is therefore the zero-cost
// default.
type Policy struct {
	Mode        string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	ApproveList []string `json:"approve,omitempty" yaml:"approve,omitempty"`
	SkipList    []string `json:"skip,omitempty" yaml:"skip,omitempty"`
}

// RequiresApproval reports whether the named phase must pause for approval.
func (p *Policy) RequiresApproval(phase string) bool {
	if p == nil {
		return false
	}
	if contains(p.SkipList, phase) {
		return false
	}
	if strings.EqualFold(p.Mode, ModeApprove) {
		return true
	}
	return contains(p.ApproveList, phase)
}

// ShouldSkip reports whether the named phase is skipped without dispatch.
func (p *Policy) ShouldSkip(phase string) bool {
	if p == nil {
		return false
	}
	if strings.EqualFold(p.Mode, ModeSkip) {
		return true
	}
	return contains(p.SkipList, phase)
}

func contains(list []string, candidate string) bool {
	normalized := strings.ToLower(candidate)
	for _, item := range list {
		if normalized == strings.ToLower(item) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy, or nil when the context carries none.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
