package orchestra

import (
	"github.com/rs/zerolog"
	"github.com/viant/afs/storage"
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/service/approval"
	"github.com/viant/orchestra/service/crew"
	"github.com/viant/orchestra/service/dao"
	"github.com/viant/orchestra/service/messaging"
	"github.com/viant/orchestra/service/meta"
	"github.com/viant/orchestra/service/oracle"
	"github.com/viant/x"
)

// Option customizes the orchestrator service.
type Option func(s *Service)

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithFlowDAO sets the flow repository implementation.
func WithFlowDAO(flowDAO dao.Service[string, model.Flow]) Option {
	return func(s *Service) { s.flowDAO = flowDAO }
}

// WithOracle sets the decision oracle implementation.
func WithOracle(decider oracle.Service) Option {
	return func(s *Service) { s.oracle = decider }
}

// WithApprovalService sets the approval service.
func WithApprovalService(svc approval.Service) Option {
	return func(s *Service) { s.approvals = svc }
}

// WithMetaService sets the meta service used to load flow-type definitions.
func WithMetaService(service *meta.Service) Option {
	return func(s *Service) { s.metaService = service }
}

// WithMetaBaseURL sets the base URL flow-type definition locations resolve
// against.
func WithMetaBaseURL(baseURL string, options ...storage.Option) Option {
	return func(s *Service) {
		s.metaBaseURL = baseURL
		s.metaFsOptions = options
	}
}

// WithCrewQueue sets the crew task queue implementation.
func WithCrewQueue(queue messaging.Queue[crew.Task]) Option {
	return func(s *Service) { s.queue = queue }
}

// WithCrewWorkers sets the number of crew worker goroutines.
func WithCrewWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.config.Crew.WorkerCount = count
		}
	}
}

// WithEnvelopeTypes registers phase input envelope types.
func WithEnvelopeTypes(types ...*x.Type) Option {
	return func(s *Service) { s.envelopeTypes = types }
}

// WithLogger sets the structured logger shared by all sub-services.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithOnOracleError sets the engine's oracle failure policy.
func WithOnOracleError(policy string) Option {
	return func(s *Service) {
		if policy != "" {
			s.config.Engine.OnOracleError = policy
		}
	}
}
