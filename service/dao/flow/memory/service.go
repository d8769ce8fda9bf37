package memory

import (
	"context"
	"sync"

	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/service/dao"
	"github.com/viant/orchestra/service/dao/criteria"
)

// Service implements an in-memory, thread-safe flow repository. Save merges
// into an existing record via CopyFrom so that the stored instance remains
// the single source of truth for concurrent readers.
type Service struct {
	flows map[string]*model.Flow
	mux   sync.RWMutex
}

var _ dao.Service[string, model.Flow] = (*Service)(nil)

// Save persists a flow, merging into any existing record.
func (s *Service) Save(_ context.Context, flow *model.Flow) error {
	if flow == nil {
		return dao.ErrNilEntity
	}
	if flow.ID == "" {
		return dao.ErrInvalidID
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if existing, ok := s.flows[flow.ID]; ok && existing != nil && existing != flow {
		existing.CopyFrom(flow)
	} else {
		s.flows[flow.ID] = flow
	}
	return nil
}

// Load returns a flow by id.
func (s *Service) Load(_ context.Context, id string) (*model.Flow, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mux.RLock()
	flow, ok := s.flows[id]
	s.mux.RUnlock()

	if !ok {
		return nil, dao.ErrNotFound
	}
	return flow, nil
}

// Delete removes a flow by id.
func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.flows[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.flows, id)
	return nil
}

// List returns flows matching the supplied filter parameters.
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*model.Flow, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	out := make([]*model.Flow, 0, len(s.flows))
	for _, flow := range s.flows {
		if !criteria.MatchFlow(flow, parameters) {
			continue
		}
		out = append(out, flow)
	}
	return out, nil
}

// New creates an in-memory flow repository.
func New() *Service {
	return &Service{flows: map[string]*model.Flow{}}
}
