package audit

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/orchestra/internal/idgen"
)

const ringLimit = 100

// Service is the audit logger. Events pass through the redaction filter
// chain, land in a bounded per-flow ring, get emitted to the system log and
// are then evaluated against compliance and security rules. The ring is a
// per-process diagnostic cache keyed by flow id, not the system of record.
type Service struct {
	mux             sync.RWMutex
	events          map[string][]*Event
	filters         []Filter
	complianceRules []ComplianceRule
	securityRules   []SecurityRule
	logger          zerolog.Logger
}

// Option customizes the audit service.
type Option func(*Service)

// WithFilters replaces the redaction filter chain.
func WithFilters(filters ...Filter) Option {
	return func(s *Service) {
		s.filters = filters
	}
}

// WithComplianceRules replaces the compliance rule set.
func WithComplianceRules(rules ...ComplianceRule) Option {
	return func(s *Service) {
		s.complianceRules = rules
	}
}

// WithSecurityRules replaces the security rule set.
func WithSecurityRules(rules ...SecurityRule) Option {
	return func(s *Service) {
		s.securityRules = rules
	}
}

// Log filters, stores and emits an event, then evaluates compliance and
// security rules against the filtered copy. Rule hits append secondary
// events referencing the original event id. The assigned event id is
// returned.
func (s *Service) Log(event *Event) string {
	if event == nil {
		return ""
	}
	stored := event.Clone()
	if stored.EventID == "" {
		stored.EventID = idgen.New()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	for _, filter := range s.filters {
		filter(stored)
	}
	s.store(stored)
	s.emit(stored)
	s.evaluate(stored)
	return stored.EventID
}

func (s *Service) store(event *Event) {
	s.mux.Lock()
	defer s.mux.Unlock()
	ring := append(s.events[event.FlowID], event)
	if len(ring) > ringLimit {
		ring = ring[len(ring)-ringLimit:]
	}
	s.events[event.FlowID] = ring
}

func (s *Service) emit(event *Event) {
	var entry *zerolog.Event
	switch event.Level {
	case LevelDebug:
		entry = s.logger.Debug()
	case LevelWarning:
		entry = s.logger.Warn()
	case LevelError:
		entry = s.logger.Error()
	case LevelCritical:
		entry = s.logger.Error().Bool("critical", true)
	default:
		entry = s.logger.Info()
	}
	entry.Str("event", event.EventID).
		Str("flow", event.FlowID).
		Str("category", string(event.Category)).
		Str("operation", event.Operation).
		Bool("success", event.Success)
	if event.Actor != "" {
		entry = entry.Str("actor", event.Actor)
	}
	if event.ErrorMessage != "" {
		entry = entry.Str("error", event.ErrorMessage)
	}
	entry.Msg("audit")
}

// evaluate runs rules against a filtered event. Secondary events skip rule
// evaluation so a rule hit cannot cascade.
func (s *Service) evaluate(event *Event) {
	for _, rule := range s.complianceRules {
		violation := rule.Check(event)
		if violation == "" {
			continue
		}
		s.appendSecondary(&Event{
			Timestamp: time.Now(),
			Category:  CategoryCompliance,
			Level:     LevelWarning,
			FlowID:    event.FlowID,
			Operation: rule.Name(),
			Success:   false,
			Details: map[string]interface{}{
				"violation":       violation,
				"source_event_id": event.EventID,
			},
		})
	}
	for _, rule := range s.securityRules {
		alert := rule.Triggered(event)
		if alert == "" {
			continue
		}
		s.appendSecondary(&Event{
			Timestamp: time.Now(),
			Category:  CategorySecurityEvent,
			Level:     LevelCritical,
			FlowID:    event.FlowID,
			Operation: rule.Name(),
			Success:   false,
			Details: map[string]interface{}{
				"alert":           alert,
				"source_event_id": event.EventID,
			},
		})
	}
}

func (s *Service) appendSecondary(event *Event) {
	event.EventID = idgen.New()
	s.store(event)
	s.emit(event)
}

// GetEvents returns stored events for a flow, oldest first, optionally
// filtered by category and level; limit 0 means all.
func (s *Service) GetEvents(flowID string, category Category, level Level, limit int) []*Event {
	s.mux.RLock()
	defer s.mux.RUnlock()

	out := make([]*Event, 0, len(s.events[flowID]))
	for _, event := range s.events[flowID] {
		if category != "" && event.Category != category {
			continue
		}
		if level != "" && event.Level != level {
			continue
		}
		out = append(out, event)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// flows returns all flow ids with stored events.
func (s *Service) flows() []string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]string, 0, len(s.events))
	for flowID := range s.events {
		out = append(out, flowID)
	}
	return out
}

// New creates an audit logger with the built-in filters and rules.
func New(logger zerolog.Logger, options ...Option) *Service {
	srv := &Service{
		events:          map[string][]*Event{},
		filters:         DefaultFilters(),
		complianceRules: DefaultComplianceRules(0),
		securityRules:   DefaultSecurityRules(),
		logger:          logger,
	}
	for _, option := range options {
		option(srv)
	}
	return srv
}
