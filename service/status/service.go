// Package status implements the read-only aggregation surface: it merges
// lifecycle state with registry phase progress and optional per-flow-type
// child status providers. It never mutates flow state.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/registry"
	"github.com/viant/orchestra/service/dao"
	"github.com/viant/orchestra/service/lifecycle"
)

// Provider reports child-execution status for one flow type, typically by
// querying the downstream worker system.
type Provider interface {
	GetChildStatus(ctx context.Context, flowID string) (map[string]interface{}, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, flowID string) (map[string]interface{}, error)

// GetChildStatus implements Provider.
func (f ProviderFunc) GetChildStatus(ctx context.Context, flowID string) (map[string]interface{}, error) {
	return f(ctx, flowID)
}

// FlowStatus is the aggregated view returned to dashboards and clients.
type FlowStatus struct {
	FlowID             string                 `json:"flowId"`
	FlowType           string                 `json:"flowType"`
	Name               string                 `json:"name,omitempty"`
	Status             model.Status           `json:"status"`
	CurrentPhase       string                 `json:"currentPhase,omitempty"`
	ProgressPercentage int                    `json:"progressPercentage"`
	CompletedPhases    []string               `json:"completedPhases,omitempty"`
	TotalPhases        int                    `json:"totalPhases"`
	Child              map[string]interface{} `json:"child,omitempty"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

// Page is a paginated flow summary listing.
type Page struct {
	Items  []*FlowStatus `json:"items"`
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

// Service aggregates flow status for external consumers.
type Service struct {
	mux       sync.RWMutex
	lifecycle *lifecycle.Service
	registry  *registry.Service
	providers map[string]Provider
}

// RegisterProvider installs a child status provider for a flow type.
func (s *Service) RegisterProvider(flowType string, provider Provider) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.providers[flowType] = provider
}

// GetFlowStatus merges lifecycle state with phase progress; includeDetails
// additionally queries the flow type's child status provider when one is
// registered. Provider failures degrade to the lifecycle view.
func (s *Service) GetFlowStatus(ctx context.Context, flowID string, includeDetails bool) (*FlowStatus, error) {
	flow, err := s.lifecycle.Flow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	out := s.summarize(flow)
	if !includeDetails {
		return out, nil
	}
	s.mux.RLock()
	provider := s.providers[flow.Type]
	s.mux.RUnlock()
	if provider != nil {
		if child, childErr := provider.GetChildStatus(ctx, flowID); childErr == nil {
			out.Child = child
		}
	}
	return out, nil
}

// GetActiveFlows returns summaries of non-terminal flows.
func (s *Service) GetActiveFlows(ctx context.Context, limit int, flowType string) ([]*FlowStatus, error) {
	flows, err := s.lifecycle.ActiveFlows(ctx, limit, flowType)
	if err != nil {
		return nil, err
	}
	out := make([]*FlowStatus, 0, len(flows))
	for _, flow := range flows {
		out = append(out, s.summarize(flow))
	}
	return out, nil
}

// ListFlowsByEngagement returns a paginated summary of an engagement's flows.
func (s *Service) ListFlowsByEngagement(ctx context.Context, engagement string, offset, limit int) (*Page, error) {
	flows, err := s.lifecycle.List(ctx, dao.NewParameter(dao.ParamEngagement, engagement))
	if err != nil {
		return nil, err
	}
	page := &Page{Total: len(flows), Offset: offset, Limit: limit}
	if offset >= len(flows) {
		page.Items = []*FlowStatus{}
		return page, nil
	}
	end := len(flows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	for _, flow := range flows[offset:end] {
		page.Items = append(page.Items, s.summarize(flow))
	}
	return page, nil
}

// summarize derives progress from the position of the current phase in the
// flow type's static phase list.
func (s *Service) summarize(flow *model.Flow) *FlowStatus {
	out := &FlowStatus{
		FlowID:       flow.ID,
		FlowType:     flow.Type,
		Name:         flow.Name,
		Status:       flow.GetStatus(),
		CurrentPhase: flow.GetCurrentPhase(),
		UpdatedAt:    flow.UpdatedAt,
	}
	config := s.registry.LookupFlowType(flow.Type)
	if config == nil {
		return out
	}
	names := config.PhaseNames()
	out.TotalPhases = len(names)
	if out.TotalPhases == 0 {
		return out
	}
	if out.Status == model.StatusCompleted {
		out.ProgressPercentage = 100
		out.CompletedPhases = names
		return out
	}
	index := config.PhaseIndex(out.CurrentPhase)
	if index < 0 {
		index = 0
	}
	out.CompletedPhases = names[:index]
	out.ProgressPercentage = index * 100 / out.TotalPhases
	return out
}

// New creates a status manager.
func New(lifecycleService *lifecycle.Service, registryService *registry.Service) *Service {
	return &Service{
		lifecycle: lifecycleService,
		registry:  registryService,
		providers: map[string]Provider{},
	}
}
