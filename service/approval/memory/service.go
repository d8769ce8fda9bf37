// Package memory provides the in-memory approval service used by default;
// production deployments can substitute a durable implementation behind the
// same interface.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/orchestra/internal/idgen"
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/service/approval"
	"github.com/viant/orchestra/service/dao"
	"github.com/viant/orchestra/service/dao/store"
	"github.com/viant/orchestra/service/lifecycle"
	"github.com/viant/orchestra/service/messaging"
	qmem "github.com/viant/orchestra/service/messaging/memory"
)

type service struct {
	reqDAO dao.Service[string, approval.Request]
	decDAO dao.Service[string, approval.Decision]

	// fan-out queue for UIs and notifiers
	events messaging.Queue[approval.Event]

	// lifecycle is optional: when absent, decisions are recorded without
	// touching flow state (standalone gating use).
	lifecycle *lifecycle.Service
}

func reqKey(r *approval.Request) string  { return r.ID }
func decKey(d *approval.Decision) string { return d.ID }

// RequestApproval files an approval request. Re-submission with the same id
// overwrites the previous copy so retries are safe.
func (s *service) RequestApproval(ctx context.Context, r *approval.Request) error {
	if r == nil {
		return errors.New("invalid request")
	}
	if r.ID == "" {
		if r.FlowID != "" {
			r.ID = fmt.Sprintf("%s/%s", r.FlowID, r.Phase)
		} else {
			r.ID = idgen.New()
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_ = s.reqDAO.Save(ctx, r)
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicRequestCreated, Data: r})
	return nil
}

// ListPending returns requests without a recorded decision.
func (s *service) ListPending(ctx context.Context) ([]*approval.Request, error) {
	all, err := s.reqDAO.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*approval.Request, 0, len(all))
	for _, r := range all {
		if d, _ := s.decDAO.Load(ctx, r.ID); d == nil {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// Decide records the verdict and reconciles the flow: approval resumes it,
// rejection parks it in paused with a journal entry so an operator can cancel
// or retry explicitly.
func (s *service) Decide(ctx context.Context, id string, approved bool, reason string) (*approval.Decision, error) {
	if id == "" {
		return nil, errors.New("empty id")
	}
	request, _ := s.reqDAO.Load(ctx, id)
	if request == nil {
		return nil, fmt.Errorf("request %s not found", id)
	}
	if existing, _ := s.decDAO.Load(ctx, id); existing != nil {
		return nil, fmt.Errorf("request %s already decided", id)
	}

	if s.lifecycle != nil && request.FlowID != "" {
		if approved {
			if _, err := s.lifecycle.Resume(ctx, request.FlowID, map[string]interface{}{
				"approved_phase": request.Phase,
				"reason":         reason,
			}); err != nil {
				return nil, err
			}
		} else {
			if _, err := s.lifecycle.Flow(ctx, request.FlowID); err != nil {
				return nil, err
			}
			// The flag clear must travel through the same repository save as
			// the status change; mutating the loaded instance would be lost on
			// stores that return fresh copies.
			s.lifecycle.UpdateStatus(ctx, request.FlowID, model.StatusPaused,
				map[string]interface{}{model.KeyAwaitingUserApproval: false},
				&model.JournalEntry{
					Operation: "approval_rejected",
					Note:      reason,
					Details:   map[string]interface{}{"phase": request.Phase},
				})
		}
	}

	decision := &approval.Decision{ID: id, Approved: approved, Reason: reason, DecidedAt: time.Now()}
	if err := s.decDAO.Save(ctx, decision); err != nil {
		return nil, err
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicDecisionCreated, Data: decision})
	return decision, nil
}

// Queue exposes the approval event queue.
func (s *service) Queue() messaging.Queue[approval.Event] {
	return s.events
}

// New creates an in-memory approval service.
func New(options ...Option) approval.Service {
	ret := &service{
		reqDAO: store.NewMemoryStore[string, approval.Request](reqKey),
		decDAO: store.NewMemoryStore[string, approval.Decision](decKey),
		events: qmem.NewQueue[approval.Event](qmem.DefaultConfig()),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}
