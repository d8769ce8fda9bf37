// Package progress provides a lightweight tracker that keeps aggregated phase
// counters (phases total, completed, failed, …) for a single flow run. The
// tracker instance lives in the execution context – every component that
// receives the context can atomically update the counters via the Delta
// helper without requiring a global registry.

package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the engine or the
// crew executor. The fields are signed and therefore can be either positive
// (increment) or negative (decrement).
type Delta struct {
	Total     int
	Completed int
	Skipped   int
	Failed    int
	Running   int
	Paused    int
}

// Progress keeps aggregated phase counters for one flow. It is safe for
// concurrent use.
type Progress struct {
	// Identification – informative only, filled when tracking starts.
	FlowID    string
	FlowType  string
	StartedAt time.Time

	// Counters – modified via Update().
	TotalPhases     int
	CompletedPhases int
	SkippedPhases   int
	FailedPhases    int
	RunningPhases   int
	PausedPhases    int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the supplied delta to the tracker. It is safe to call from
// multiple goroutines. A registered onChange callback is invoked with a copy
// of the updated tracker outside the critical section so that it can perform
// slow operations without blocking engine internals.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.Lock()

	p.TotalPhases += d.Total
	p.CompletedPhases += d.Completed
	p.SkippedPhases += d.Skipped
	p.FailedPhases += d.Failed
	p.RunningPhases += d.Running
	p.PausedPhases += d.Paused

	snapshot := *p
	cb := p.onChange

	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return *p
}

// OnChange registers a callback invoked after every successful Update.
// Passing nil disables the callback. Only one callback can be active.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

// ----------------------------------------------------------------------------
// Context helpers
// ----------------------------------------------------------------------------

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a new Progress tracker, embeds it in a derived
// context and returns both.
func WithNewTracker(ctx context.Context, flowID, flowType string, onChange func(Progress)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		FlowID:    flowID,
		FlowType:  flowType,
		StartedAt: time.Now(),
		onChange:  onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the Progress tracker from ctx; the second return value
// is false when the context carries no tracker.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx looks up the tracker in ctx (if any) and applies the delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
