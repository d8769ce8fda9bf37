package orchestra

import (
	"context"
	"fmt"

	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/registry"
	"github.com/viant/orchestra/service/approval"
	"github.com/viant/orchestra/service/audit"
	"github.com/viant/orchestra/service/crew"
	"github.com/viant/orchestra/service/engine"
	"github.com/viant/orchestra/service/lifecycle"
	"github.com/viant/orchestra/service/meta"
	"github.com/viant/orchestra/service/recovery"
	"github.com/viant/orchestra/service/status"
	"github.com/viant/orchestra/service/validator"
)

// Runtime is the operational surface of an orchestrator: flow lifecycle,
// phase execution, approvals, status reads and the audit trail.
type Runtime struct {
	registry   *registry.Service
	validators *validator.Registry
	lifecycle  *lifecycle.Service
	engine     *engine.Service
	crews      *crew.Service
	approvals  approval.Service
	auditor    *audit.Service
	recovery   *recovery.Service
	status     *status.Service
	meta       *meta.Service
}

// Start launches the crew worker pool. It returns once workers are running.
func (r *Runtime) Start(ctx context.Context) error {
	return r.crews.Start(ctx)
}

// Shutdown stops the crew workers and waits for in-flight tasks to drain.
func (r *Runtime) Shutdown() {
	r.crews.Shutdown()
}

// CreateFlow creates a flow instance of a registered flow type.
func (r *Runtime) CreateFlow(ctx context.Context, id, flowType, name string, configuration, initial map[string]interface{}) (*model.Flow, error) {
	if r.registry.LookupFlowType(flowType) == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownFlowType, flowType)
	}
	return r.lifecycle.Create(ctx, id, flowType, name, configuration, initial)
}

// Flow returns a flow by id.
func (r *Runtime) Flow(ctx context.Context, id string) (*model.Flow, error) {
	return r.lifecycle.Flow(ctx, id)
}

// PauseFlow pauses a flow.
func (r *Runtime) PauseFlow(ctx context.Context, id, reason string) error {
	return r.lifecycle.Pause(ctx, id, reason)
}

// ResumeFlow resumes a paused or approval-gated flow.
func (r *Runtime) ResumeFlow(ctx context.Context, id string, resumeContext map[string]interface{}) (*model.Flow, error) {
	return r.lifecycle.Resume(ctx, id, resumeContext)
}

// DeleteFlow removes a flow; soft deletion cancels it and keeps the record.
func (r *Runtime) DeleteFlow(ctx context.Context, id string, soft bool, reason string) error {
	return r.lifecycle.Delete(ctx, id, soft, reason)
}

// TransitionFlow attempts an optimistic from→to status transition.
func (r *Runtime) TransitionFlow(ctx context.Context, id string, from, to model.Status, data map[string]interface{}) bool {
	return r.lifecycle.Transition(ctx, id, from, to, data)
}

// ValidateTransition reports whether from→to is a legal status transition.
func (r *Runtime) ValidateTransition(from, to model.Status) error {
	return r.lifecycle.ValidateTransition(from, to)
}

// InitializeFlowExecution activates a flow and starts its first phase. For
// crew phases it returns the submitted task id.
func (r *Runtime) InitializeFlowExecution(ctx context.Context, flowID string, input map[string]interface{}) (string, error) {
	return r.engine.InitializeFlowExecution(ctx, flowID, input)
}

// ExecutePhase runs a single phase of a flow.
func (r *Runtime) ExecutePhase(ctx context.Context, flowID, phaseName string, phaseInput map[string]interface{}, overrides *engine.Overrides) (*model.PhaseResult, error) {
	return r.engine.ExecutePhase(ctx, flowID, phaseName, phaseInput, overrides)
}

// GetFlowStatus returns the aggregated status of a flow.
func (r *Runtime) GetFlowStatus(ctx context.Context, flowID string, includeDetails bool) (*status.FlowStatus, error) {
	return r.status.GetFlowStatus(ctx, flowID, includeDetails)
}

// GetActiveFlows returns summaries of non-terminal flows.
func (r *Runtime) GetActiveFlows(ctx context.Context, limit int, flowType string) ([]*status.FlowStatus, error) {
	return r.status.GetActiveFlows(ctx, limit, flowType)
}

// ListFlowsByEngagement pages through an engagement's flows.
func (r *Runtime) ListFlowsByEngagement(ctx context.Context, engagement string, offset, limit int) (*status.Page, error) {
	return r.status.ListFlowsByEngagement(ctx, engagement, offset, limit)
}

// PendingApprovals lists approval requests that have no decision yet.
func (r *Runtime) PendingApprovals(ctx context.Context) ([]*approval.Request, error) {
	return r.approvals.ListPending(ctx)
}

// DecideApproval records an approval decision; approving resumes the flow.
func (r *Runtime) DecideApproval(ctx context.Context, requestID string, approved bool, reason string) (*approval.Decision, error) {
	return r.approvals.Decide(ctx, requestID, approved, reason)
}

// Audit returns the audit logger.
func (r *Runtime) Audit() *audit.Service {
	return r.auditor
}

// AuditEvents returns a flow's audit trail, optionally filtered.
func (r *Runtime) AuditEvents(flowID string, category audit.Category, level audit.Level, limit int) []*audit.Event {
	return r.auditor.GetEvents(flowID, category, level, limit)
}

// ComplianceReport summarizes a flow's compliance posture.
func (r *Runtime) ComplianceReport(flowID string) *audit.ComplianceReport {
	return r.auditor.GetComplianceReport(flowID)
}

// ExportAuditTrail renders a flow's audit trail as JSON or CSV.
func (r *Runtime) ExportAuditTrail(flowID, format string) ([]byte, error) {
	return r.auditor.Export(flowID, format)
}

// ErrorHistory returns classified errors recorded for a flow.
func (r *Runtime) ErrorHistory(flowID string) []*recovery.Record {
	return r.recovery.History(flowID)
}

// ErrorStatistics aggregates error counts for a flow, or all flows when the
// id is empty.
func (r *Runtime) ErrorStatistics(flowID string) *recovery.Statistics {
	return r.recovery.GetStatistics(flowID)
}

// RegisterFlowType registers a flow-type configuration.
func (r *Runtime) RegisterFlowType(config *model.FlowConfig) error {
	return r.registry.RegisterFlowType(config)
}

// LoadFlowType loads and registers a flow-type definition from a YAML or JSON
// location.
func (r *Runtime) LoadFlowType(ctx context.Context, location string) (*model.FlowConfig, error) {
	return r.registry.Load(ctx, r.meta, location)
}

// RegisterHandler registers a synchronous phase handler.
func (r *Runtime) RegisterHandler(name string, handler registry.Handler) {
	r.registry.RegisterHandler(name, handler)
}

// RegisterCrew registers an asynchronous crew implementation.
func (r *Runtime) RegisterCrew(name string, implementation crew.Crew) {
	r.crews.Register(name, implementation)
}

// RegisterValidator registers a named pre-execution validator.
func (r *Runtime) RegisterValidator(name string, impl validator.Validator) {
	r.validators.Register(name, impl)
}

// RegisterStatusProvider installs a child status provider for a flow type.
func (r *Runtime) RegisterStatusProvider(flowType string, provider status.Provider) {
	r.status.RegisterProvider(flowType, provider)
}

// Validate checks that every registered flow type's handlers and envelopes
// resolve.
func (r *Runtime) Validate() error {
	return r.registry.Validate()
}
