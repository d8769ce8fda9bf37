package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/orchestra/model"
	"github.com/viant/x"
)

// Handler executes a synchronous phase. Input and result are transport-shaped
// maps; typed handlers are adapted via the executor service.
type Handler func(ctx context.Context, flow *model.Flow, input map[string]interface{}) (map[string]interface{}, error)

// Service is the flow-type registry: it owns the immutable per-type phase
// configurations, the synchronous handler implementations and the envelope
// type registry. Once Validate passes, every phase's handler reference is
// known to resolve, so handler-not-found cannot occur for registered types.
type Service struct {
	mux       sync.RWMutex
	flowTypes map[string]*model.FlowConfig
	handlers  map[string]Handler
	types     *Types
}

// Types returns the envelope type registry.
func (s *Service) Types() *Types {
	return s.types
}

// RegisterFlowType adds a flow-type configuration. The configuration is
// validated and immutable afterwards.
func (s *Service) RegisterFlowType(config *model.FlowConfig) error {
	if config == nil {
		return fmt.Errorf("flow config was nil")
	}
	if err := config.Validate(); err != nil {
		return err
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.flowTypes[config.Type] = config
	return nil
}

// LookupFlowType returns the configuration for a flow type, or nil.
func (s *Service) LookupFlowType(flowType string) *model.FlowConfig {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.flowTypes[flowType]
}

// FlowTypes returns the registered flow type names.
func (s *Service) FlowTypes() []string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]string, 0, len(s.flowTypes))
	for name := range s.flowTypes {
		out = append(out, name)
	}
	return out
}

// RegisterHandler registers a synchronous phase handler by name.
func (s *Service) RegisterHandler(name string, handler Handler) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.handlers[name] = handler
}

// LookupHandler returns a handler by name, or nil.
func (s *Service) LookupHandler(name string) Handler {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.handlers[name]
}

// Validate checks that every handler and envelope referenced by a registered
// flow type resolves. Call after wiring so misconfigurations surface at
// start-up instead of mid-flow.
func (s *Service) Validate() error {
	s.mux.RLock()
	defer s.mux.RUnlock()
	for flowType, config := range s.flowTypes {
		for _, phase := range config.Phases {
			if phase.Handler != "" {
				if _, ok := s.handlers[phase.Handler]; !ok {
					return fmt.Errorf("flow type %q phase %q: handler %q not registered", flowType, phase.Name, phase.Handler)
				}
			}
			if phase.Envelope != "" {
				if s.types.Lookup(phase.Envelope) == nil {
					return fmt.Errorf("flow type %q phase %q: envelope type %q not registered", flowType, phase.Name, phase.Envelope)
				}
			}
		}
	}
	return nil
}

// New creates a flow-type registry.
func New(goTypes ...*x.Type) *Service {
	return &Service{
		flowTypes: make(map[string]*model.FlowConfig),
		handlers:  make(map[string]Handler),
		types:     NewTypes(goTypes...),
	}
}
