package orchestra

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/registry"
	"github.com/viant/orchestra/service/approval"
	amemory "github.com/viant/orchestra/service/approval/memory"
	"github.com/viant/orchestra/service/audit"
	"github.com/viant/orchestra/service/crew"
	"github.com/viant/orchestra/service/dao"
	fmemory "github.com/viant/orchestra/service/dao/flow/memory"
	"github.com/viant/orchestra/service/engine"
	"github.com/viant/orchestra/service/executor"
	"github.com/viant/orchestra/service/lifecycle"
	"github.com/viant/orchestra/service/messaging"
	qmemory "github.com/viant/orchestra/service/messaging/memory"
	"github.com/viant/orchestra/service/meta"
	"github.com/viant/orchestra/service/oracle"
	"github.com/viant/orchestra/service/recovery"
	"github.com/viant/orchestra/service/status"
	"github.com/viant/orchestra/service/validator"
	"github.com/viant/x"
)

// Service is the orchestrator façade: it wires the lifecycle manager, error
// handler, audit logger, execution engine and status manager together and
// exposes them through a Runtime.
type Service struct {
	config  *Config
	runtime *Runtime

	flowDAO       dao.Service[string, model.Flow]
	metaService   *meta.Service
	metaBaseURL   string
	metaFsOptions []storage.Option
	queue         messaging.Queue[crew.Task]
	oracle        oracle.Service
	approvals     approval.Service
	envelopeTypes []*x.Type
	logger        zerolog.Logger
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	reg := registry.New(s.envelopeTypes...)
	manager := lifecycle.New(s.flowDAO, s.logger)
	auditor := audit.New(s.logger)
	handler := recovery.New(s.logger)
	validators := validator.NewRegistry()

	crews := crew.New(reg,
		crew.WithQueue(s.queue),
		crew.WithWorkers(s.config.Crew.WorkerCount),
		crew.WithLogger(s.logger),
		crew.WithCallback(s.crewCompletion(manager, handler, auditor)))

	if s.approvals == nil {
		s.approvals = amemory.New(amemory.WithLifecycle(manager))
	}

	s.runtime.registry = reg
	s.runtime.validators = validators
	s.runtime.lifecycle = manager
	s.runtime.auditor = auditor
	s.runtime.recovery = handler
	s.runtime.crews = crews
	s.runtime.approvals = s.approvals
	s.runtime.meta = s.metaService
	s.runtime.engine = engine.New(manager, reg, validators, s.oracle,
		executor.New(reg), handler, auditor,
		engine.WithCrews(crews),
		engine.WithApprovals(s.approvals),
		engine.WithOnOracleError(s.config.Engine.OnOracleError),
		engine.WithLogger(s.logger))
	s.runtime.status = status.New(manager, reg)
}

// crewCompletion reconciles flow state after a detached crew task finishes.
func (s *Service) crewCompletion(manager *lifecycle.Service, handler *recovery.Service, auditor *audit.Service) crew.Callback {
	return func(ctx context.Context, task *crew.Task, result map[string]interface{}, err error) {
		if err == nil {
			manager.UpdateStatus(ctx, task.FlowID, model.StatusActive,
				map[string]interface{}{task.Phase + "_result": result},
				&model.JournalEntry{Operation: "crew_phase_completed", Details: map[string]interface{}{"phase": task.Phase}})
			auditor.Log(&audit.Event{
				Category:  audit.CategoryFlowExecution,
				Level:     audit.LevelInfo,
				FlowID:    task.FlowID,
				Operation: "crew_phase",
				Success:   true,
				Details:   map[string]interface{}{"phase": task.Phase},
			})
			return
		}
		handled := handler.Handle(err, &recovery.Context{FlowID: task.FlowID, Phase: task.Phase, Operation: "crew_phase"}, nil)
		auditor.Log(&audit.Event{
			Category:     audit.CategoryErrorEvent,
			Level:        audit.LevelError,
			FlowID:       task.FlowID,
			Operation:    "crew_phase",
			Success:      false,
			ErrorMessage: err.Error(),
			Details:      map[string]interface{}{"phase": task.Phase, "category": string(handled.Classification.Category)},
		})
		if !handled.Classification.Retryable {
			manager.MarkFailed(ctx, task.FlowID, err.Error())
		}
	}
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.flowDAO == nil {
		s.flowDAO = fmemory.New()
	}
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), s.metaBaseURL, s.metaFsOptions...)
	}
	if s.queue == nil {
		s.queue = qmemory.NewQueue[crew.Task](qmemory.DefaultConfig())
	}
	if s.oracle == nil {
		s.oracle = oracle.NewRule(nil)
	}
}

// Runtime returns the orchestrator runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// RegisterEnvelopeTypes registers additional phase input envelope types.
func (s *Service) RegisterEnvelopeTypes(types ...*x.Type) {
	for i := range types {
		s.runtime.registry.Types().Register(types[i])
	}
}

// New creates an orchestrator service.
func New(options ...Option) *Service {
	ret := &Service{
		runtime: &Runtime{},
		config:  DefaultConfig(),
		logger:  zerolog.Nop(),
	}
	ret.init(options)
	return ret
}
