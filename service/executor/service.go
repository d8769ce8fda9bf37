// Package executor implements the synchronous handler path of phase
// dispatch. It resolves the handler by name, optionally converts the raw
// phase input into the phase's typed envelope, invokes the handler and, once
// the handler returns, calls an optional listener that can observe the data
// that flew through the phase.
package executor

import (
	"context"
	"fmt"

	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/registry"
)

// Listener is invoked once a phase handler completes, regardless of whether
// it returned an error. Implementations can log, collect metrics or perform
// any other side-effects they require.
type Listener func(flow *model.Flow, phase string, input, output map[string]interface{}, err error)

// Option customizes the executor instance.
type Option func(*Service)

// WithListener overrides the listener invoked after every executed phase.
// Passing nil disables the callback entirely.
func WithListener(l Listener) Option {
	return func(s *Service) {
		s.listener = l
	}
}

// Service invokes synchronous phase handlers resolved from the registry.
type Service struct {
	registry *registry.Service
	listener Listener
}

// Execute runs the handler configured for the phase against the prepared
// input and returns the raw result map. A missing handler is a structural
// misconfiguration and surfaces as an error rather than a failed result.
func (s *Service) Execute(ctx context.Context, flow *model.Flow, phaseConfig *model.PhaseConfig, input map[string]interface{}) (map[string]interface{}, error) {
	if phaseConfig.Handler == "" {
		return nil, fmt.Errorf("phase %v has no handler configured", phaseConfig.Name)
	}
	handler := s.registry.LookupHandler(phaseConfig.Handler)
	if handler == nil {
		return nil, fmt.Errorf("handler %v not found", phaseConfig.Handler)
	}
	if phaseConfig.Envelope != "" {
		// Conversion both validates the shape and normalizes field types; the
		// handler still receives the map form.
		if _, err := s.registry.Types().Instantiate(phaseConfig.Envelope, input); err != nil {
			return nil, fmt.Errorf("phase %v input rejected: %w", phaseConfig.Name, err)
		}
	}
	output, err := handler(ctx, flow, input)
	if s.listener != nil {
		s.listener(flow, phaseConfig.Name, input, output, err)
	}
	if err != nil {
		return nil, err
	}
	return output, nil
}

// New creates a synchronous phase executor.
func New(registryService *registry.Service, options ...Option) *Service {
	srv := &Service{registry: registryService}
	for _, option := range options {
		option(srv)
	}
	return srv
}
