package crew

import (
	"github.com/rs/zerolog"
	"github.com/viant/orchestra/service/messaging"
)

// Option customizes the crew service.
type Option func(*Service)

// WithQueue sets the task queue implementation.
func WithQueue(queue messaging.Queue[Task]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.config.WorkerCount = count
		}
	}
}

// WithCallback registers the completion callback invoked after each queued
// task finishes.
func WithCallback(callback Callback) Option {
	return func(s *Service) {
		s.callback = callback
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
