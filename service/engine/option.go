package engine

import (
	"github.com/rs/zerolog"
	"github.com/viant/orchestra/service/approval"
	"github.com/viant/orchestra/service/crew"
)

// Oracle failure policies: what the engine does when the decision oracle is
// unavailable or errors.
const (
	OracleErrorContinue = "continue"
	OracleErrorPause    = "pause"
)

// Config tunes engine behavior.
type Config struct {
	// OnOracleError selects the fallback when the decision oracle fails:
	// continue with a zero-confidence CONTINUE (default) or pause for safety.
	OnOracleError string
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{OnOracleError: OracleErrorContinue}
}

// Option customizes the engine.
type Option func(*Service)

// WithOnOracleError sets the oracle failure policy.
func WithOnOracleError(policy string) Option {
	return func(s *Service) {
		if policy != "" {
			s.config.OnOracleError = policy
		}
	}
}

// WithCrews wires the asynchronous crew executor.
func WithCrews(crews *crew.Service) Option {
	return func(s *Service) {
		s.crews = crews
	}
}

// WithApprovals wires the approval service; PAUSE decisions then file an
// approval request in addition to parking the flow.
func WithApprovals(approvals approval.Service) Option {
	return func(s *Service) {
		s.approvals = approvals
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
