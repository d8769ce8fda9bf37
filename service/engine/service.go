package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/progress"
	"github.com/viant/orchestra/registry"
	"github.com/viant/orchestra/service/approval"
	"github.com/viant/orchestra/service/audit"
	"github.com/viant/orchestra/service/crew"
	"github.com/viant/orchestra/service/executor"
	"github.com/viant/orchestra/service/lifecycle"
	"github.com/viant/orchestra/service/oracle"
	"github.com/viant/orchestra/service/recovery"
	"github.com/viant/orchestra/service/validator"
	"github.com/viant/orchestra/tracing"
	"github.com/viant/toolbox"
)

// Overrides relaxes per-call validation behavior.
type Overrides struct {
	SkipPreValidation bool
}

// Service is the execution engine: it orchestrates one phase run end to end,
// consulting the decision oracle before and after dispatch. The engine never
// re-raises runtime failures across its public boundary; only structural
// misconfigurations (unknown flow/phase/handler, failed pre-validation)
// surface as errors.
type Service struct {
	config     Config
	lifecycle  *lifecycle.Service
	registry   *registry.Service
	validators *validator.Registry
	oracle     oracle.Service
	executor   *executor.Service
	crews      *crew.Service
	recovery   *recovery.Service
	auditor    *audit.Service
	approvals  approval.Service
	logger     zerolog.Logger
}

// ExecutePhase runs phase phaseName of the identified flow. The caller must
// serialize invocations per flow id; phases of different flows run fully
// concurrently.
func (s *Service) ExecutePhase(ctx context.Context, flowID, phaseName string, phaseInput map[string]interface{}, overrides *Overrides) (result *model.PhaseResult, err error) {
	started := time.Now()
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("engine.ExecutePhase %s", phaseName), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"flow.id": flowID, "phase": phaseName})

	// 1. Setup.
	flow, err := s.lifecycle.Flow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	config := s.registry.LookupFlowType(flow.Type)
	if config == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlowType, flow.Type)
	}
	phaseConfig := config.GetPhaseConfig(phaseName)
	if phaseConfig == nil {
		return nil, fmt.Errorf("%w: %s (flow type %s)", ErrUnknownPhase, phaseName, flow.Type)
	}
	if !phaseConfig.UsesCrew() {
		if s.registry.LookupHandler(phaseConfig.Handler) == nil {
			return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, phaseConfig.Handler)
		}
	} else if s.crews == nil || s.crews.Lookup(phaseConfig.Crew) == nil {
		return nil, fmt.Errorf("%w: crew %s", ErrHandlerNotFound, phaseConfig.Crew)
	}

	// 2. Input preparation.
	input := s.prepareInput(flow, phaseConfig, phaseInput)

	// 3. Pre-validation: fail fast, never retried, flow state untouched.
	if overrides == nil || !overrides.SkipPreValidation {
		if err = s.preValidate(ctx, flow, phaseConfig, input); err != nil {
			return nil, err
		}
	}

	// 4. Pre-execution decision.
	decision := s.decide(ctx, flow, phaseName, input)
	s.logDecision(flow, phaseName, decision, "pre_execution")
	switch decision.Action {
	case model.ActionPause:
		return s.pausePhase(ctx, flow, phaseName, input, decision, started), nil
	case model.ActionSkip:
		return s.skipPhase(ctx, flow, phaseConfig, decision, started), nil
	}

	// 5. Dispatch.
	s.lifecycle.UpdateStatus(ctx, flow.ID, model.StatusProcessing, nil, nil)
	progress.UpdateCtx(ctx, progress.Delta{Running: 1})
	var raw map[string]interface{}
	if phaseConfig.UsesCrew() {
		raw, err = s.crews.Execute(ctx, flow, phaseConfig, input)
	} else {
		raw, err = s.executor.Execute(ctx, flow, phaseConfig, input)
	}
	progress.UpdateCtx(ctx, progress.Delta{Running: -1})
	if err != nil {
		// 8. Runtime failures are classified and returned, not re-raised.
		return s.failPhase(ctx, flow, phaseName, err, started), nil
	}

	// 6. Post-execution decision: it sees the actual result, so its next
	// phase wins over the pre-execution one.
	interim := &model.PhaseResult{FlowID: flow.ID, Phase: phaseName, Status: model.ResultCompleted, Result: raw}
	postDecision := s.decidePost(ctx, flow, phaseName, interim)
	s.logDecision(flow, phaseName, postDecision, "post_execution")
	nextPhase := postDecision.NextPhase
	if nextPhase == "" {
		nextPhase = decision.NextPhase
	}
	if nextPhase == "" {
		nextPhase = phaseConfig.DefaultNextPhase
	}

	// 7. Finalize.
	finalized, err := transportSafe(raw)
	if err != nil {
		return s.failPhase(ctx, flow, phaseName, err, started), nil
	}
	result = &model.PhaseResult{
		FlowID:          flow.ID,
		Phase:           phaseName,
		Status:          businessStatus(finalized),
		Result:          finalized,
		NextPhase:       nextPhase,
		Decision:        postDecision,
		ExecutionTimeMs: time.Since(started).Milliseconds(),
	}

	s.lifecycle.UpdateStatus(ctx, flow.ID, model.StatusActive,
		map[string]interface{}{phaseName + "_result": finalized},
		&model.JournalEntry{Operation: "execute_phase", Details: map[string]interface{}{
			"phase": phaseName, "status": result.Status, "next_phase": nextPhase,
		}},
		lifecycle.WithCurrentPhase(currentAfter(phaseName, nextPhase)))
	if result.Status == model.ResultCompleted {
		progress.UpdateCtx(ctx, progress.Delta{Completed: 1})
	}
	s.auditor.Log(&audit.Event{
		Category:  audit.CategoryFlowExecution,
		Level:     audit.LevelInfo,
		FlowID:    flow.ID,
		Operation: "execute_phase",
		Success:   result.Status == model.ResultCompleted,
		Details:   map[string]interface{}{"phase": phaseName, "status": result.Status, "execution_time_ms": result.ExecutionTimeMs},
	})
	return result, nil
}

// InitializeFlowExecution activates a freshly created flow and kicks off its
// first phase detached from the caller: crew-backed first phases are queued,
// handler-backed ones run in a background goroutine. The returned task id is
// empty for the goroutine path.
func (s *Service) InitializeFlowExecution(ctx context.Context, flowID string, input map[string]interface{}) (string, error) {
	flow, err := s.lifecycle.Flow(ctx, flowID)
	if err != nil {
		return "", err
	}
	config := s.registry.LookupFlowType(flow.Type)
	if config == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownFlowType, flow.Type)
	}
	first := config.FirstPhase()
	if first == "" {
		return "", fmt.Errorf("%w: %s", ErrNoPhases, flow.Type)
	}
	s.lifecycle.UpdateStatus(ctx, flowID, model.StatusActive, nil,
		&model.JournalEntry{Operation: "initialize", Details: map[string]interface{}{"first_phase": first}},
		lifecycle.WithCurrentPhase(first))
	s.auditor.Log(&audit.Event{
		Category:  audit.CategoryFlowLifecycle,
		Level:     audit.LevelInfo,
		FlowID:    flowID,
		Operation: "initialize_flow_execution",
		Success:   true,
		Details:   map[string]interface{}{"first_phase": first},
	})

	if phaseConfig := config.GetPhaseConfig(first); phaseConfig.UsesCrew() && s.crews != nil {
		return s.crews.Submit(ctx, flow, first, input)
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		if _, execErr := s.ExecutePhase(detached, flowID, first, input, nil); execErr != nil {
			s.lifecycle.MarkFailed(detached, flowID, execErr.Error())
		}
	}()
	return "", nil
}

func (s *Service) prepareInput(flow *model.Flow, phaseConfig *model.PhaseConfig, phaseInput map[string]interface{}) map[string]interface{} {
	input := make(map[string]interface{}, len(phaseInput)+4)
	for k, v := range phaseInput {
		input[k] = v
	}
	input["flow_id"] = flow.ID
	input["flow_type"] = flow.Type
	if flow.Tenant != "" {
		input["tenant"] = flow.Tenant
	}
	if flow.Engagement != "" {
		input["engagement"] = flow.Engagement
	}
	for _, key := range phaseConfig.CarryOver {
		if _, present := input[key]; present {
			continue
		}
		if value, ok := flow.PersistenceValue(key); ok {
			input[key] = value
		}
	}
	return input
}

func (s *Service) preValidate(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, input map[string]interface{}) error {
	var violations []string
	for _, name := range phaseConfig.Validators.Pre {
		aValidator, err := s.validators.Lookup(name)
		if err != nil {
			return err
		}
		result, err := aValidator.Validate(ctx, flow, phaseConfig, input)
		if err != nil {
			return fmt.Errorf("validator %v failed: %w", name, err)
		}
		if !result.Valid {
			violations = append(violations, result.Errors...)
		}
	}
	if len(violations) > 0 {
		return &ValidationError{Phase: phaseConfig.Name, Violations: violations}
	}
	return nil
}

// decide consults the oracle pre-dispatch, applying the configured fallback
// when the oracle is unavailable.
func (s *Service) decide(ctx context.Context, flow *model.Flow, phaseName string, input map[string]interface{}) *model.Decision {
	decision, err := s.oracle.Decide(ctx, flow, phaseName, input, flow.PersistenceSnapshot())
	if err == nil && decision != nil {
		return decision
	}
	return s.oracleFallback(flow, phaseName, err)
}

func (s *Service) decidePost(ctx context.Context, flow *model.Flow, phaseName string, result *model.PhaseResult) *model.Decision {
	decision, err := s.oracle.DecidePost(ctx, flow, phaseName, result)
	if err == nil && decision != nil {
		return decision
	}
	return s.oracleFallback(flow, phaseName, err)
}

func (s *Service) oracleFallback(flow *model.Flow, phaseName string, err error) *model.Decision {
	action := model.ActionContinue
	reasoning := "decision oracle unavailable; continuing by policy"
	if s.config.OnOracleError == OracleErrorPause {
		action = model.ActionPause
		reasoning = "decision oracle unavailable; pausing for safety"
	}
	s.logger.Warn().Str("flow", flow.ID).Str("phase", phaseName).Err(err).
		Str("fallback", string(action)).Msg("decision oracle failed")
	s.auditor.Log(&audit.Event{
		Category:     audit.CategoryAgentDecision,
		Level:        audit.LevelWarning,
		FlowID:       flow.ID,
		Operation:    "oracle_fallback",
		Success:      false,
		ErrorMessage: errMessage(err),
		Details:      map[string]interface{}{"phase": phaseName, "fallback": string(action)},
	})
	return &model.Decision{Action: action, Confidence: 0, Reasoning: reasoning}
}

// logDecision records the oracle verdict. Audit failures are non-fatal by
// design: the ring either stores the event or evicts the oldest.
func (s *Service) logDecision(flow *model.Flow, phaseName string, decision *model.Decision, stage string) {
	s.auditor.Log(&audit.Event{
		Category:  audit.CategoryAgentDecision,
		Level:     audit.LevelInfo,
		FlowID:    flow.ID,
		Operation: stage + "_decision",
		Success:   true,
		Details: map[string]interface{}{
			"phase":      phaseName,
			"action":     string(decision.Action),
			"confidence": decision.Confidence,
			"reasoning":  decision.Reasoning,
			"next_phase": decision.NextPhase,
		},
	})
}

func (s *Service) pausePhase(ctx context.Context, flow *model.Flow, phaseName string, input map[string]interface{}, decision *model.Decision, started time.Time) *model.PhaseResult {
	s.lifecycle.UpdateStatus(ctx, flow.ID, model.StatusWaitingForApproval,
		map[string]interface{}{model.KeyAwaitingUserApproval: true},
		&model.JournalEntry{Operation: "pause_for_approval", Note: decision.Reasoning, Details: map[string]interface{}{"phase": phaseName}})
	progress.UpdateCtx(ctx, progress.Delta{Paused: 1})
	if s.approvals != nil {
		if err := s.approvals.RequestApproval(ctx, &approval.Request{
			FlowID:    flow.ID,
			Phase:     phaseName,
			Reasoning: decision.Reasoning,
			Input:     input,
		}); err != nil {
			s.logger.Warn().Str("flow", flow.ID).Err(err).Msg("approval request not filed")
		}
	}
	return &model.PhaseResult{
		FlowID:          flow.ID,
		Phase:           phaseName,
		Status:          model.ResultPaused,
		Decision:        decision,
		ExecutionTimeMs: time.Since(started).Milliseconds(),
	}
}

func (s *Service) skipPhase(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, decision *model.Decision, started time.Time) *model.PhaseResult {
	nextPhase := decision.NextPhase
	if nextPhase == "" {
		nextPhase = phaseConfig.DefaultNextPhase
	}
	s.lifecycle.UpdateStatus(ctx, flow.ID, flow.GetStatus(), nil,
		&model.JournalEntry{Operation: "skip_phase", Note: decision.Reasoning, Details: map[string]interface{}{"phase": phaseConfig.Name, "next_phase": nextPhase}},
		lifecycle.WithCurrentPhase(currentAfter(phaseConfig.Name, nextPhase)))
	progress.UpdateCtx(ctx, progress.Delta{Skipped: 1})
	return &model.PhaseResult{
		FlowID:          flow.ID,
		Phase:           phaseConfig.Name,
		Status:          model.ResultSkipped,
		NextPhase:       nextPhase,
		Decision:        decision,
		ExecutionTimeMs: time.Since(started).Milliseconds(),
	}
}

// failPhase converts a runtime dispatch failure into a failed result carrying
// the classification's recoverable flag.
func (s *Service) failPhase(ctx context.Context, flow *model.Flow, phaseName string, cause error, started time.Time) *model.PhaseResult {
	handled := s.recovery.Handle(cause, &recovery.Context{
		FlowID:    flow.ID,
		Phase:     phaseName,
		Operation: "execute_phase",
	}, nil)
	progress.UpdateCtx(ctx, progress.Delta{Failed: 1})
	s.auditor.Log(&audit.Event{
		Category:     audit.CategoryErrorEvent,
		Level:        audit.LevelError,
		FlowID:       flow.ID,
		Operation:    "execute_phase",
		Success:      false,
		ErrorMessage: cause.Error(),
		Details: map[string]interface{}{
			"phase":    phaseName,
			"category": string(handled.Classification.Category),
			"severity": string(handled.Classification.Severity),
		},
	})
	if handled.Classification.Retryable {
		s.lifecycle.UpdateStatus(ctx, flow.ID, model.StatusActive, nil, nil)
	} else {
		s.lifecycle.MarkFailed(ctx, flow.ID, cause.Error())
	}
	return &model.PhaseResult{
		FlowID:          flow.ID,
		Phase:           phaseName,
		Status:          model.ResultFailed,
		Error:           cause.Error(),
		ErrorType:       string(handled.Classification.Category),
		Recoverable:     handled.Classification.Retryable,
		ExecutionTimeMs: time.Since(started).Milliseconds(),
	}
}

// transportSafe deep-converts a raw result so that no opaque runtime values
// cross the engine boundary: timestamps become RFC3339 strings, numeric and
// identifier types collapse to their JSON forms.
func transportSafe(raw map[string]interface{}) (map[string]interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	text, err := toolbox.AsJSONText(raw)
	if err != nil {
		return nil, fmt.Errorf("result is not transport-safe: %w", err)
	}
	out := map[string]interface{}{}
	if err = json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("result is not transport-safe: %w", err)
	}
	return out, nil
}

// businessStatus extracts a business-level status from the raw result: a
// status other than success/completed is passed through as-is and the caller
// decides on retry.
func businessStatus(result map[string]interface{}) string {
	if v, ok := result["status"]; ok {
		if status, _ := v.(string); status != "" && status != "success" && status != model.ResultCompleted {
			return status
		}
	}
	return model.ResultCompleted
}

// currentAfter picks the flow's current phase after a phase completes or is
// skipped: the next phase when one is known, otherwise the flow stays put and
// requires an explicit manual advance.
func currentAfter(phase, nextPhase string) string {
	if nextPhase != "" {
		return nextPhase
	}
	return phase
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// New creates an execution engine.
func New(
	lifecycleService *lifecycle.Service,
	registryService *registry.Service,
	validators *validator.Registry,
	oracleService oracle.Service,
	executorService *executor.Service,
	recoveryService *recovery.Service,
	auditor *audit.Service,
	options ...Option,
) *Service {
	srv := &Service{
		config:     DefaultConfig(),
		lifecycle:  lifecycleService,
		registry:   registryService,
		validators: validators,
		oracle:     oracleService,
		executor:   executorService,
		recovery:   recoveryService,
		auditor:    auditor,
		logger:     zerolog.Nop(),
	}
	for _, option := range options {
		option(srv)
	}
	return srv
}
