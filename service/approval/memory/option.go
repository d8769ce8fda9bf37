package memory

import (
	"github.com/viant/orchestra/service/approval"
	"github.com/viant/orchestra/service/lifecycle"
	"github.com/viant/orchestra/service/messaging"
)

// Option customizes the in-memory approval service.
type Option func(*service)

// WithLifecycle wires the lifecycle manager so decisions reconcile flow
// state (resume on approve, park on reject).
func WithLifecycle(manager *lifecycle.Service) Option {
	return func(s *service) {
		s.lifecycle = manager
	}
}

// WithEventQueue replaces the approval event queue.
func WithEventQueue(queue messaging.Queue[approval.Event]) Option {
	return func(s *service) {
		s.events = queue
	}
}
