package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/viant/orchestra/internal/clock"
	"github.com/viant/orchestra/internal/idgen"
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/service/dao"
)

// Service is the lifecycle manager: the single writer for flow status. All
// status changes flow through it so that the state machine in transitions.go
// is enforced in one place.
type Service struct {
	flows  dao.Service[string, model.Flow]
	logger zerolog.Logger
}

// Create persists a new flow in the initialized state. The flow is saved and
// visible immediately so that components referencing it by id before the
// caller's own transaction completes can resolve it.
func (s *Service) Create(ctx context.Context, id, flowType, name string, configuration, initial map[string]interface{}) (*model.Flow, error) {
	if id == "" {
		id = idgen.New()
	}
	existing, err := s.flows.Load(ctx, id)
	if err != nil && !errors.Is(err, dao.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFlow, id)
	}
	flow := model.NewFlow(id, flowType, name, configuration, initial)
	if err = s.flows.Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to persist flow %v: %w", id, err)
	}
	s.logger.Info().Str("flow", id).Str("type", flowType).Msg("flow created")
	return flow, nil
}

// Flow loads a flow by id.
func (s *Service) Flow(ctx context.Context, id string) (*model.Flow, error) {
	flow, err := s.flows.Load(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
		}
		return nil, err
	}
	if flow == nil {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	return flow, nil
}

// UpdateOption customizes a status update.
type UpdateOption func(*update)

type update struct {
	currentPhase *string
}

// WithCurrentPhase records the flow's current phase alongside the status
// write. Phase advancement must travel through the repository in the same
// save; callers must not rely on the store aliasing a previously loaded
// instance.
func WithCurrentPhase(phase string) UpdateOption {
	return func(u *update) { u.currentPhase = &phase }
}

// UpdateStatus writes a new status, merges phaseData into the flow's
// persistence data and appends the optional journal entry. It is called from
// many non-critical paths, so it fails silently: false is returned and the
// problem logged instead of raising.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.Status, phaseData map[string]interface{}, entry *model.JournalEntry, options ...UpdateOption) bool {
	flow, err := s.Flow(ctx, id)
	if err != nil {
		s.logger.Warn().Str("flow", id).Err(err).Msg("status update skipped")
		return false
	}
	current := flow.GetStatus()
	if !CanTransition(current, status) {
		s.logger.Warn().Str("flow", id).
			Str("from", string(current)).Str("to", string(status)).
			Msg("status update rejected: invalid transition")
		return false
	}
	var opts update
	for _, option := range options {
		option(&opts)
	}
	flow.SetStatus(status)
	if opts.currentPhase != nil {
		flow.SetCurrentPhase(*opts.currentPhase)
	}
	flow.MergePersistenceData(phaseData)
	flow.AppendJournal(entry)
	if err = s.flows.Save(ctx, flow); err != nil {
		s.logger.Warn().Str("flow", id).Err(err).Msg("status update not persisted")
		return false
	}
	return true
}

// Pause suspends a flow. Allowed only from active, processing or initialized.
func (s *Service) Pause(ctx context.Context, id, reason string) error {
	flow, err := s.Flow(ctx, id)
	if err != nil {
		return err
	}
	status := flow.GetStatus()
	if !pausable[status] {
		return &InvalidStateError{Op: "pause", Status: status}
	}
	flow.SetStatus(model.StatusPaused)
	flow.AppendJournal(&model.JournalEntry{Operation: "pause", Note: reason})
	if err = s.flows.Save(ctx, flow); err != nil {
		return fmt.Errorf("failed to pause flow %v: %w", id, err)
	}
	s.logger.Info().Str("flow", id).Str("reason", reason).Msg("flow paused")
	return nil
}

// Resume reactivates a flow when CanResume holds; the awaiting-approval flag
// is cleared on success. Terminal flows cannot be resumed.
func (s *Service) Resume(ctx context.Context, id string, resumeContext map[string]interface{}) (*model.Flow, error) {
	flow, err := s.Flow(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanResume(flow) {
		return nil, &InvalidStateError{Op: "resume", Status: flow.GetStatus()}
	}
	flow.ClearApprovalFlag()
	if len(resumeContext) > 0 {
		flow.MergePersistenceData(map[string]interface{}{model.KeyResumeContext: resumeContext})
	}
	flow.SetStatus(model.StatusActive)
	flow.AppendJournal(&model.JournalEntry{Operation: "resume"})
	if err = s.flows.Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to resume flow %v: %w", id, err)
	}
	s.logger.Info().Str("flow", id).Msg("flow resumed")
	return flow, nil
}

// Delete removes a flow. Soft deletion transitions to cancelled and retains
// all data; hard deletion removes the stored record.
func (s *Service) Delete(ctx context.Context, id string, soft bool, reason string) error {
	flow, err := s.Flow(ctx, id)
	if err != nil {
		return err
	}
	if soft {
		flow.SetStatus(model.StatusCancelled)
		flow.AppendJournal(&model.JournalEntry{Operation: "delete", Note: reason})
		if err = s.flows.Save(ctx, flow); err != nil {
			return fmt.Errorf("failed to soft-delete flow %v: %w", id, err)
		}
		return nil
	}
	if err = s.flows.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete flow %v: %w", id, err)
	}
	return nil
}

// Transition performs an optimistic-lock style status change: it fails
// (returns false) when the flow's current status does not equal from at call
// time. A transition carrying is_resumption=true in data is permitted even
// outside the state machine table and logged at warning level.
func (s *Service) Transition(ctx context.Context, id string, from, to model.Status, data map[string]interface{}) bool {
	flow, err := s.Flow(ctx, id)
	if err != nil {
		s.logger.Warn().Str("flow", id).Err(err).Msg("transition skipped")
		return false
	}
	if current := flow.GetStatus(); current != from {
		s.logger.Warn().Str("flow", id).
			Str("expected", string(from)).Str("actual", string(current)).
			Msg("transition rejected: stale from-state")
		return false
	}
	if from == to {
		return true
	}
	isResumption := false
	if data != nil {
		if v, ok := data["is_resumption"]; ok {
			isResumption, _ = v.(bool)
			delete(data, "is_resumption")
		}
	}
	if !CanTransition(from, to) {
		if !isResumption {
			s.logger.Warn().Str("flow", id).
				Str("from", string(from)).Str("to", string(to)).
				Msg("transition rejected: invalid edge")
			return false
		}
		s.logger.Warn().Str("flow", id).
			Str("from", string(from)).Str("to", string(to)).
			Msg("administrative resumption override outside transition table")
	}
	flow.SetStatus(to)
	flow.MergePersistenceData(data)
	if err = s.flows.Save(ctx, flow); err != nil {
		s.logger.Warn().Str("flow", id).Err(err).Msg("transition not persisted")
		return false
	}
	return true
}

// ValidateTransition checks a status edge against the state machine table.
func (s *Service) ValidateTransition(from, to model.Status) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// ActiveFlows returns non-terminal flows, optionally filtered by flow type,
// capped at limit (0 means no cap).
func (s *Service) ActiveFlows(ctx context.Context, limit int, flowType string) ([]*model.Flow, error) {
	parameters := []*dao.Parameter{
		dao.NewParameter(dao.ParamStatus,
			string(model.StatusInitialized),
			string(model.StatusActive),
			string(model.StatusProcessing),
			string(model.StatusPaused),
			string(model.StatusWaitingForApproval)),
	}
	if flowType != "" {
		parameters = append(parameters, dao.NewParameter(dao.ParamType, flowType))
	}
	flows, err := s.flows.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(flows) > limit {
		flows = flows[:limit]
	}
	return flows, nil
}

// List returns flows matching the supplied filter parameters.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Flow, error) {
	return s.flows.List(ctx, parameters...)
}

// MarkFailed transitions a flow to failed with a reason, tolerating invalid
// source states by routing through UpdateStatus semantics.
func (s *Service) MarkFailed(ctx context.Context, id, reason string) bool {
	return s.UpdateStatus(ctx, id, model.StatusFailed, nil, &model.JournalEntry{
		Timestamp: clock.Now(),
		Operation: "fail",
		Note:      reason,
	})
}

// New creates a lifecycle manager backed by the supplied flow repository.
func New(flows dao.Service[string, model.Flow], logger zerolog.Logger) *Service {
	return &Service{flows: flows, logger: logger}
}
