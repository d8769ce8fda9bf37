package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/registry"
	"github.com/viant/orchestra/service/audit"
	"github.com/viant/orchestra/service/crew"
	"github.com/viant/orchestra/service/dao"
	"github.com/viant/orchestra/service/dao/flow/fs"
	"github.com/viant/orchestra/service/dao/flow/memory"
	"github.com/viant/orchestra/service/executor"
	"github.com/viant/orchestra/service/lifecycle"
	qmem "github.com/viant/orchestra/service/messaging/memory"
	"github.com/viant/orchestra/service/oracle"
	"github.com/viant/orchestra/service/recovery"
	"github.com/viant/orchestra/service/validator"
)

func newTestQueue() *qmem.Queue[crew.Task] {
	return qmem.NewQueue[crew.Task](qmem.DefaultConfig())
}

type harness struct {
	engine    *Service
	lifecycle *lifecycle.Service
	auditor   *audit.Service
	registry  *registry.Service
}

func newHarness(t *testing.T, decider oracle.Service, options ...Option) *harness {
	return newHarnessWith(t, decider, memory.New(), options...)
}

func newHarnessWith(t *testing.T, decider oracle.Service, repo dao.Service[string, model.Flow], options ...Option) *harness {
	reg := registry.New()
	err := reg.RegisterFlowType(&model.FlowConfig{
		Type: "discovery",
		Phases: []*model.PhaseConfig{
			{Name: "data_import", Handler: "import_data", Validators: model.PhaseValidators{Pre: []string{"require_source"}}, DefaultNextPhase: "field_mapping"},
			{Name: "field_mapping", Handler: "map_fields", DefaultNextPhase: "asset_creation", CarryOver: []string{"import_ref"}},
			{Name: "asset_creation", Handler: "create_assets"},
			{Name: "review", Handler: "unregistered_handler"},
		},
	})
	assert.Nil(t, err)

	reg.RegisterHandler("import_data", func(ctx context.Context, flow *model.Flow, input map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"import_ref": "imp-1", "imported_at": time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}, nil
	})
	reg.RegisterHandler("map_fields", func(ctx context.Context, flow *model.Flow, input map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"mapped": true, "import_ref": input["import_ref"]}, nil
	})
	reg.RegisterHandler("create_assets", func(ctx context.Context, flow *model.Flow, input map[string]interface{}) (map[string]interface{}, error) {
		if input["explode"] == true {
			return nil, errors.New("asset service timed out")
		}
		if input["review"] == true {
			return map[string]interface{}{"status": "needs_review"}, nil
		}
		return map[string]interface{}{"assets": 3}, nil
	})

	validators := validator.NewRegistry()
	validators.Register("require_source", validator.RequiredFields("source"))

	manager := lifecycle.New(repo, zerolog.Nop())
	auditor := audit.New(zerolog.Nop())
	if decider == nil {
		decider = &oracle.Static{}
	}
	eng := New(manager, reg, validators, decider,
		executor.New(reg), recovery.New(zerolog.Nop()), auditor, options...)
	return &harness{engine: eng, lifecycle: manager, auditor: auditor, registry: reg}
}

func (h *harness) createFlow(t *testing.T, id string, status model.Status) *model.Flow {
	flow, err := h.lifecycle.Create(context.Background(), id, "discovery", "", nil, nil)
	assert.Nil(t, err)
	if status != model.StatusInitialized {
		flow.SetStatus(status)
	}
	return flow
}

func TestExecutePhase_ValidationFailsFast(t *testing.T) {
	h := newHarness(t, nil)
	flow := h.createFlow(t, "f1", model.StatusInitialized)

	// Scenario: failed pre-validation raises and leaves status untouched.
	_, err := h.engine.ExecutePhase(context.Background(), "f1", "data_import", map[string]interface{}{}, nil)
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "data_import", validationErr.Phase)
	assert.Equal(t, model.StatusInitialized, flow.GetStatus())

	// Overrides can disable pre-validation.
	result, err := h.engine.ExecutePhase(context.Background(), "f1", "data_import", map[string]interface{}{}, &Overrides{SkipPreValidation: true})
	assert.Nil(t, err)
	assert.Equal(t, model.ResultCompleted, result.Status)
}

func TestExecutePhase_StructuralFailuresAreIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	flow := h.createFlow(t, "f1", model.StatusActive)

	for i := 0; i < 2; i++ {
		_, err := h.engine.ExecutePhase(context.Background(), "f1", "no_such_phase", nil, nil)
		assert.ErrorIs(t, err, ErrUnknownPhase)
		assert.Equal(t, model.StatusActive, flow.GetStatus())
	}

	_, err := h.engine.ExecutePhase(context.Background(), "f1", "review", nil, nil)
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = h.engine.ExecutePhase(context.Background(), "missing", "data_import", nil, nil)
	assert.ErrorIs(t, err, lifecycle.ErrFlowNotFound)
}

func TestExecutePhase_PauseDecision(t *testing.T) {
	decider := &oracle.Static{Pre: map[string]*model.Decision{
		"field_mapping": {Action: model.ActionPause, Confidence: 0.9, Reasoning: "mapping needs sign-off"},
	}}
	h := newHarness(t, decider)
	flow := h.createFlow(t, "f1", model.StatusActive)

	result, err := h.engine.ExecutePhase(context.Background(), "f1", "field_mapping", nil, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ResultPaused, result.Status)
	assert.Equal(t, model.StatusWaitingForApproval, flow.GetStatus())
	assert.True(t, flow.AwaitingUserApproval())

	// Resume reactivates the flow.
	resumed, err := h.lifecycle.Resume(context.Background(), "f1", nil)
	assert.Nil(t, err)
	assert.Equal(t, model.StatusActive, resumed.GetStatus())
}

func TestExecutePhase_SkipDecision(t *testing.T) {
	decider := &oracle.Static{Pre: map[string]*model.Decision{
		"field_mapping": {Action: model.ActionSkip, Confidence: 1, Reasoning: "already mapped", NextPhase: "asset_creation"},
	}}
	h := newHarness(t, decider)
	flow := h.createFlow(t, "f1", model.StatusActive)

	result, err := h.engine.ExecutePhase(context.Background(), "f1", "field_mapping", nil, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ResultSkipped, result.Status)
	assert.Equal(t, "asset_creation", result.NextPhase)
	assert.Equal(t, "asset_creation", flow.GetCurrentPhase())
	assert.Equal(t, model.StatusActive, flow.GetStatus())
}

func TestExecutePhase_RuntimeFailureIsClassified(t *testing.T) {
	h := newHarness(t, nil)
	flow := h.createFlow(t, "f1", model.StatusActive)

	result, err := h.engine.ExecutePhase(context.Background(), "f1", "asset_creation",
		map[string]interface{}{"explode": true}, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ResultFailed, result.Status)
	assert.Equal(t, string(recovery.CategoryTimeout), result.ErrorType)
	assert.True(t, result.Recoverable)
	assert.Equal(t, model.StatusActive, flow.GetStatus())

	events := h.auditor.GetEvents("f1", audit.CategoryErrorEvent, "", 0)
	assert.Equal(t, 1, len(events))
}

func TestExecutePhase_NonRetryableFailureMarksFlowFailed(t *testing.T) {
	h := newHarness(t, nil)
	flow := h.createFlow(t, "f1", model.StatusActive)
	h.registry.RegisterHandler("create_assets", func(ctx context.Context, f *model.Flow, input map[string]interface{}) (map[string]interface{}, error) {
		return nil, errors.New("permission denied creating assets")
	})

	result, err := h.engine.ExecutePhase(context.Background(), "f1", "asset_creation", nil, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ResultFailed, result.Status)
	assert.False(t, result.Recoverable)
	assert.Equal(t, model.StatusFailed, flow.GetStatus())
}

func TestExecutePhase_CompletedFlowPersistsResult(t *testing.T) {
	h := newHarness(t, nil)
	flow := h.createFlow(t, "f1", model.StatusActive)

	result, err := h.engine.ExecutePhase(context.Background(), "f1", "data_import",
		map[string]interface{}{"source": "s3://bucket/raw"}, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ResultCompleted, result.Status)
	assert.Equal(t, "field_mapping", result.NextPhase)
	assert.Equal(t, "field_mapping", flow.GetCurrentPhase())
	assert.True(t, result.ExecutionTimeMs >= 0)

	// Timestamps are transport safe.
	assert.Equal(t, "2026-08-01T10:00:00Z", result.Result["imported_at"])

	// The result is merged into persistence data and carried over.
	stored, ok := flow.PersistenceValue("data_import_result")
	assert.True(t, ok)
	assert.Equal(t, "imp-1", stored.(map[string]interface{})["import_ref"])
}

func TestExecutePhase_CarryOverFromPersistence(t *testing.T) {
	h := newHarness(t, nil)
	flow := h.createFlow(t, "f1", model.StatusActive)
	flow.MergePersistenceData(map[string]interface{}{"import_ref": "imp-7"})

	result, err := h.engine.ExecutePhase(context.Background(), "f1", "field_mapping", nil, nil)
	assert.Nil(t, err)
	assert.Equal(t, "imp-7", result.Result["import_ref"])
}

func TestExecutePhase_PostDecisionWinsNextPhase(t *testing.T) {
	decider := &oracle.Static{
		Pre: map[string]*model.Decision{
			"data_import": {Action: model.ActionContinue, Confidence: 1, NextPhase: "asset_creation"},
		},
		Post: map[string]*model.Decision{
			"data_import": {Action: model.ActionContinue, Confidence: 1, NextPhase: "field_mapping"},
		},
	}
	h := newHarness(t, decider)
	h.createFlow(t, "f1", model.StatusActive)

	result, err := h.engine.ExecutePhase(context.Background(), "f1", "data_import",
		map[string]interface{}{"source": "s3://bucket/raw"}, nil)
	assert.Nil(t, err)
	assert.Equal(t, "field_mapping", result.NextPhase)
}

func TestExecutePhase_BusinessStatusPassThrough(t *testing.T) {
	h := newHarness(t, nil)
	flow := h.createFlow(t, "f1", model.StatusActive)

	result, err := h.engine.ExecutePhase(context.Background(), "f1", "asset_creation",
		map[string]interface{}{"review": true}, nil)
	assert.Nil(t, err)
	assert.Equal(t, "needs_review", result.Status)
	assert.Equal(t, "", result.Error)
	assert.Equal(t, model.StatusActive, flow.GetStatus())
}

func TestExecutePhase_OracleFallback(t *testing.T) {
	h := newHarness(t, &oracle.Static{Err: errors.New("oracle down")})
	h.createFlow(t, "f1", model.StatusActive)

	result, err := h.engine.ExecutePhase(context.Background(), "f1", "asset_creation", nil, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ResultCompleted, result.Status)
	assert.Equal(t, float64(0), result.Decision.Confidence)

	fallbacks := h.auditor.GetEvents("f1", audit.CategoryAgentDecision, audit.LevelWarning, 0)
	assert.True(t, len(fallbacks) > 0)
}

func TestExecutePhase_OraclePausePolicy(t *testing.T) {
	h := newHarness(t, &oracle.Static{Err: errors.New("oracle down")}, WithOnOracleError(OracleErrorPause))
	flow := h.createFlow(t, "f1", model.StatusActive)

	result, err := h.engine.ExecutePhase(context.Background(), "f1", "asset_creation", nil, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ResultPaused, result.Status)
	assert.Equal(t, model.StatusWaitingForApproval, flow.GetStatus())
}

func TestExecutePhase_AdvancementSurvivesReload(t *testing.T) {
	repo, err := fs.New("mem://localhost/orchestra/engine/advance")
	assert.Nil(t, err)
	h := newHarnessWith(t, nil, repo)
	ctx := context.Background()
	_, err = h.lifecycle.Create(ctx, "f1", "discovery", "", nil, nil)
	assert.Nil(t, err)
	assert.True(t, h.lifecycle.Transition(ctx, "f1", model.StatusInitialized, model.StatusActive, nil))

	result, err := h.engine.ExecutePhase(ctx, "f1", "data_import",
		map[string]interface{}{"source": "s3://bucket/raw"}, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ResultCompleted, result.Status)
	assert.Equal(t, "field_mapping", result.NextPhase)

	// The store returns a fresh copy per load; the advancement has to be in
	// the saved document, not on an aliased in-memory instance.
	reloaded, err := h.lifecycle.Flow(ctx, "f1")
	assert.Nil(t, err)
	assert.Equal(t, "field_mapping", reloaded.GetCurrentPhase())
	assert.Equal(t, model.StatusActive, reloaded.GetStatus())
	stored, ok := reloaded.PersistenceValue("data_import_result")
	assert.True(t, ok)
	assert.Equal(t, "imp-1", stored.(map[string]interface{})["import_ref"])

	// Skip decisions advance through the store as well.
	decider := &oracle.Static{Pre: map[string]*model.Decision{
		"field_mapping": {Action: model.ActionSkip, Confidence: 1, Reasoning: "already mapped", NextPhase: "asset_creation"},
	}}
	h2 := newHarnessWith(t, decider, repo)
	result, err = h2.engine.ExecutePhase(ctx, "f1", "field_mapping", nil, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ResultSkipped, result.Status)
	reloaded, err = h2.lifecycle.Flow(ctx, "f1")
	assert.Nil(t, err)
	assert.Equal(t, "asset_creation", reloaded.GetCurrentPhase())
}

func TestExecutePhase_PauseFromInitializedPersists(t *testing.T) {
	repo, err := fs.New("mem://localhost/orchestra/engine/pause")
	assert.Nil(t, err)
	decider := &oracle.Static{Pre: map[string]*model.Decision{
		"data_import": {Action: model.ActionPause, Confidence: 0.9, Reasoning: "source needs sign-off"},
	}}
	h := newHarnessWith(t, decider, repo)
	ctx := context.Background()
	_, err = h.lifecycle.Create(ctx, "f1", "discovery", "", nil, nil)
	assert.Nil(t, err)

	// First-phase approval gate: the flow pauses before ever going active.
	result, err := h.engine.ExecutePhase(ctx, "f1", "data_import",
		map[string]interface{}{"source": "s3://bucket/raw"}, nil)
	assert.Nil(t, err)
	assert.Equal(t, model.ResultPaused, result.Status)

	reloaded, err := h.lifecycle.Flow(ctx, "f1")
	assert.Nil(t, err)
	assert.Equal(t, model.StatusWaitingForApproval, reloaded.GetStatus())
	assert.True(t, reloaded.AwaitingUserApproval())
}

func TestInitializeFlowExecution_CrewFirstPhase(t *testing.T) {
	h := newHarness(t, nil)
	reg := h.registry
	err := reg.RegisterFlowType(&model.FlowConfig{
		Type:       "collection",
		Background: true,
		Phases:     []*model.PhaseConfig{{Name: "collect", Crew: "collector"}},
	})
	assert.Nil(t, err)

	crews := crew.New(reg, crew.WithQueue(newTestQueue()))
	crews.Register("collector", crew.Func(func(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, input map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"collected": true}, nil
	}))
	WithCrews(crews)(h.engine)

	flow, err := h.lifecycle.Create(context.Background(), "f2", "collection", "", nil, nil)
	assert.Nil(t, err)

	taskID, err := h.engine.InitializeFlowExecution(context.Background(), "f2", nil)
	assert.Nil(t, err)
	assert.True(t, taskID != "")
	assert.Equal(t, model.StatusActive, flow.GetStatus())
}
