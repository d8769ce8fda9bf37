package crew

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/orchestra/internal/idgen"
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/registry"
	"github.com/viant/orchestra/service/messaging"
	"github.com/viant/orchestra/tracing"
)

// Config represents crew service configuration.
type Config struct {
	// WorkerCount is the number of workers consuming queued tasks.
	WorkerCount int
}

// DefaultConfig returns the default crew configuration.
func DefaultConfig() Config {
	return Config{WorkerCount: 5}
}

// Service dispatches crew-backed phases. Execute runs a crew in-line;
// Submit queues a task for detached execution by the worker pool, with
// completion reported through the registered callback.
type Service struct {
	config   Config
	mux      sync.RWMutex
	crews    map[string]Crew
	registry *registry.Service
	queue    messaging.Queue[Task]
	callback Callback
	logger   zerolog.Logger

	workers  []*worker
	workerWg sync.WaitGroup
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// Register installs a crew implementation by name.
func (s *Service) Register(name string, implementation Crew) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.crews[name] = implementation
}

// Lookup returns a registered crew by name, or nil.
func (s *Service) Lookup(name string) Crew {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.crews[name]
}

// Execute runs the crew configured for the phase in-line and returns the raw
// result. A missing crew is a structural misconfiguration.
func (s *Service) Execute(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, input map[string]interface{}) (result map[string]interface{}, err error) {
	if !phaseConfig.UsesCrew() {
		return nil, fmt.Errorf("phase %v has no crew configured", phaseConfig.Name)
	}
	implementation := s.Lookup(phaseConfig.Crew)
	if implementation == nil {
		return nil, fmt.Errorf("crew %v not found", phaseConfig.Crew)
	}
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("crew.execute %s", phaseConfig.Name), "INTERNAL")
	defer tracing.EndSpan(span, err)
	span.WithAttributes(map[string]string{"flow.id": flow.ID, "phase": phaseConfig.Name})
	return implementation.ExecuteCrewPhase(ctx, flow, phaseConfig, input)
}

// Submit queues a crew phase for detached execution. The caller does not
// block on completion; the completion callback reports the outcome.
func (s *Service) Submit(ctx context.Context, flow *model.Flow, phase string, input map[string]interface{}) (string, error) {
	if s.queue == nil {
		return "", fmt.Errorf("crew queue is not configured")
	}
	task := Task{
		ID:       idgen.New(),
		FlowID:   flow.ID,
		FlowType: flow.Type,
		Phase:    phase,
		Input:    input,
	}
	if err := s.queue.Publish(ctx, &task); err != nil {
		return "", fmt.Errorf("failed to queue crew task: %w", err)
	}
	s.logger.Debug().Str("flow", flow.ID).Str("phase", phase).Str("task", task.ID).Msg("crew task queued")
	return task.ID, nil
}

// Start launches the worker pool. Workers stop when ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if s.queue == nil {
		return fmt.Errorf("crew queue is not configured")
	}
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{id: i, service: s, ctx: workerCtx, cancelFn: cancel}
		s.workers = append(s.workers, w)
		s.workerWg.Add(1)
		go w.run()
	}
	return nil
}

// Shutdown stops all workers and waits for in-flight tasks to finish.
func (s *Service) Shutdown() {
	for _, w := range s.workers {
		w.cancelFn()
	}
	s.workerWg.Wait()
}

func (w *worker) run() {
	defer w.service.workerWg.Done()
	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		if err = w.service.processTask(w.ctx, msg); err != nil {
			w.service.logger.Warn().Int("worker", w.id).Err(err).Msg("crew task failed")
		}
	}
}

func (s *Service) processTask(ctx context.Context, msg messaging.Message[Task]) error {
	task := msg.T()

	config := s.registry.LookupFlowType(task.FlowType)
	if config == nil {
		err := fmt.Errorf("flow type %v not registered", task.FlowType)
		s.complete(ctx, task, nil, err)
		_ = msg.Ack()
		return err
	}
	phaseConfig := config.GetPhaseConfig(task.Phase)
	if phaseConfig == nil {
		err := fmt.Errorf("phase %v not found in flow type %v", task.Phase, task.FlowType)
		s.complete(ctx, task, nil, err)
		_ = msg.Ack()
		return err
	}

	// The worker executes against a detached flow snapshot; current state is
	// the callback's responsibility to reconcile.
	flow := &model.Flow{ID: task.FlowID, Type: task.FlowType}
	result, err := s.Execute(ctx, flow, phaseConfig, task.Input)
	s.complete(ctx, task, result, err)
	if err != nil {
		_ = msg.Nack(err)
		return err
	}
	return msg.Ack()
}

func (s *Service) complete(ctx context.Context, task *Task, result map[string]interface{}, err error) {
	if s.callback == nil {
		return
	}
	s.callback(ctx, task, result, err)
}

// New creates a crew service.
func New(registryService *registry.Service, options ...Option) *Service {
	srv := &Service{
		config:   DefaultConfig(),
		crews:    map[string]Crew{},
		registry: registryService,
		logger:   zerolog.Nop(),
	}
	for _, option := range options {
		option(srv)
	}
	return srv
}
