package recovery

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const historyLimit = 10

// Context identifies where an error occurred.
type Context struct {
	FlowID    string
	Phase     string
	Operation string
	// Attempt counts prior tries of the same phase, starting at 0.
	Attempt int
}

// RetryConfig tunes the base retry policy. The per-category MaxRetries cap
// still applies; RetryConfig can only tighten it, never widen it, and never
// makes a non-retryable category retryable.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryConfig returns the base retry policy.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{MaxRetries: historyLimit, BaseDelay: time.Second}
}

// Result is the enhanced outcome of handling one error.
type Result struct {
	Classification   Classification `json:"classification"`
	Retry            bool           `json:"retry"`
	Backoff          time.Duration  `json:"backoff,omitempty"`
	Attempt          int            `json:"attempt"`
	SuggestedActions []string       `json:"suggestedActions,omitempty"`
}

// Record is one remembered error occurrence, kept in the bounded per-flow
// history for diagnostics. The history is a cache, not a system of record.
type Record struct {
	Timestamp      time.Time      `json:"timestamp"`
	FlowID         string         `json:"flowId"`
	Phase          string         `json:"phase,omitempty"`
	Operation      string         `json:"operation,omitempty"`
	Error          string         `json:"error"`
	Classification Classification `json:"classification"`
}

// Statistics aggregates classified errors by category and severity.
type Statistics struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"byCategory"`
	BySeverity map[Severity]int `json:"bySeverity"`
}

// Service is the error handler: it classifies runtime errors, keeps a bounded
// per-flow history, applies the retry policy and dispatches recovery
// strategies for remediation suggestions.
type Service struct {
	mux        sync.RWMutex
	history    map[string][]*Record
	strategies map[string]Strategy
	logger     zerolog.Logger
}

// Handle classifies err, records it against the flow, and computes the retry
// decision: retryable categories are retried up to their per-category cap
// with exponentially scaled backoff (multiplier^attempt); validation and
// permission errors never retry regardless of retryConfig.
func (s *Service) Handle(err error, execContext *Context, retryConfig *RetryConfig) *Result {
	classification := Classify(err)
	if execContext == nil {
		execContext = &Context{}
	}
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	s.record(err, execContext, classification)

	result := &Result{
		Classification: classification,
		Attempt:        execContext.Attempt,
	}
	maxRetries := classification.MaxRetries
	if retryConfig.MaxRetries > 0 && retryConfig.MaxRetries < maxRetries {
		maxRetries = retryConfig.MaxRetries
	}
	if classification.Retryable && execContext.Attempt < maxRetries {
		result.Retry = true
		scale := math.Pow(classification.BackoffMultiplier, float64(execContext.Attempt))
		result.Backoff = time.Duration(float64(retryConfig.BaseDelay) * scale)
	}
	s.mux.RLock()
	strategy, ok := s.strategies[classification.RecoveryStrategy]
	s.mux.RUnlock()
	if ok {
		result.SuggestedActions = strategy(err, classification, execContext)
	}

	s.logger.Warn().
		Str("flow", execContext.FlowID).
		Str("phase", execContext.Phase).
		Str("category", string(classification.Category)).
		Str("severity", string(classification.Severity)).
		Bool("retry", result.Retry).
		Err(err).
		Msg("error handled")
	return result
}

func (s *Service) record(err error, execContext *Context, classification Classification) {
	if execContext.FlowID == "" {
		return
	}
	entry := &Record{
		Timestamp:      time.Now(),
		FlowID:         execContext.FlowID,
		Phase:          execContext.Phase,
		Operation:      execContext.Operation,
		Error:          err.Error(),
		Classification: classification,
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	history := append(s.history[execContext.FlowID], entry)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	s.history[execContext.FlowID] = history
}

// History returns the remembered errors for a flow, oldest first.
func (s *Service) History(flowID string) []*Record {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return append([]*Record(nil), s.history[flowID]...)
}

// GetStatistics aggregates category and severity counts, scoped to one flow
// when flowID is non-empty, otherwise across all flows.
func (s *Service) GetStatistics(flowID string) *Statistics {
	s.mux.RLock()
	defer s.mux.RUnlock()

	stats := &Statistics{
		ByCategory: map[Category]int{},
		BySeverity: map[Severity]int{},
	}
	collect := func(records []*Record) {
		for _, record := range records {
			stats.Total++
			stats.ByCategory[record.Classification.Category]++
			stats.BySeverity[record.Classification.Severity]++
		}
	}
	if flowID != "" {
		collect(s.history[flowID])
		return stats
	}
	for _, records := range s.history {
		collect(records)
	}
	return stats
}

// RegisterStrategy installs or replaces a named recovery strategy.
func (s *Service) RegisterStrategy(name string, strategy Strategy) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.strategies[name] = strategy
}

// New creates an error handler with the built-in recovery strategies.
func New(logger zerolog.Logger) *Service {
	return &Service{
		history:    map[string][]*Record{},
		strategies: defaultStrategies(),
		logger:     logger,
	}
}
