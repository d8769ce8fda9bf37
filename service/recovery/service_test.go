package recovery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		description string
		err         error
		category    Category
		severity    Severity
		retryable   bool
	}{
		{
			description: "database keyword",
			err:         errors.New("database connection pool exhausted"),
			category:    CategoryDatabase,
			severity:    SeverityHigh,
			retryable:   true,
		},
		{
			description: "database wins over timeout by precedence",
			err:         errors.New("database query timeout"),
			category:    CategoryDatabase,
			severity:    SeverityHigh,
			retryable:   true,
		},
		{
			description: "network refusal",
			err:         errors.New("dial tcp: connection refused"),
			category:    CategoryNetwork,
			severity:    SeverityMedium,
			retryable:   true,
		},
		{
			description: "validation failure never retryable",
			err:         errors.New("validation failed: required field missing"),
			category:    CategoryValidation,
			severity:    SeverityMedium,
			retryable:   false,
		},
		{
			description: "permission denied never retryable",
			err:         errors.New("access denied for subject ops"),
			category:    CategoryPermission,
			severity:    SeverityHigh,
			retryable:   false,
		},
		{
			description: "timeout keyword",
			err:         errors.New("operation timed out after 30s"),
			category:    CategoryTimeout,
			severity:    SeverityMedium,
			retryable:   true,
		},
		{
			description: "deadline exceeded by type",
			err:         fmt.Errorf("dispatch: %w", context.DeadlineExceeded),
			category:    CategoryTimeout,
			severity:    SeverityMedium,
			retryable:   true,
		},
		{
			description: "resource exhaustion",
			err:         errors.New("resource exhausted: quota reached"),
			category:    CategoryResource,
			severity:    SeverityHigh,
			retryable:   true,
		},
		{
			description: "worker failure",
			err:         errors.New("crew worker exited unexpectedly"),
			category:    CategoryExecution,
			severity:    SeverityMedium,
			retryable:   true,
		},
		{
			description: "business rule",
			err:         errors.New("business rule rejected the record"),
			category:    CategoryBusinessLogic,
			severity:    SeverityLow,
			retryable:   true,
		},
		{
			description: "unmatched message falls to unknown",
			err:         errors.New("something odd happened"),
			category:    CategoryUnknown,
			severity:    SeverityMedium,
			retryable:   true,
		},
	}

	for _, testCase := range testCases {
		actual := Classify(testCase.err)
		assert.Equal(t, testCase.category, actual.Category, testCase.description)
		assert.Equal(t, testCase.severity, actual.Severity, testCase.description)
		assert.Equal(t, testCase.retryable, actual.Retryable, testCase.description)
	}
}

func TestClassify_Pure(t *testing.T) {
	err := errors.New("database deadlock detected")
	first := Classify(err)
	second := Classify(err)
	assert.Equal(t, first, second)
}

func TestService_Handle_RetryPolicy(t *testing.T) {
	testCases := []struct {
		description string
		err         error
		attempt     int
		retryConfig *RetryConfig
		expectRetry bool
		backoff     time.Duration
	}{
		{
			description: "first database failure retries with base delay",
			err:         errors.New("database unavailable"),
			attempt:     0,
			expectRetry: true,
			backoff:     time.Second,
		},
		{
			description: "second database failure doubles backoff",
			err:         errors.New("database unavailable"),
			attempt:     1,
			expectRetry: true,
			backoff:     2 * time.Second,
		},
		{
			description: "database failure beyond cap stops retrying",
			err:         errors.New("database unavailable"),
			attempt:     3,
			expectRetry: false,
		},
		{
			description: "network failure scales by 1.5",
			err:         errors.New("network unreachable"),
			attempt:     2,
			expectRetry: true,
			backoff:     2250 * time.Millisecond,
		},
		{
			description: "validation never retries regardless of config",
			err:         errors.New("validation failed"),
			attempt:     0,
			retryConfig: &RetryConfig{MaxRetries: 10, BaseDelay: time.Second},
			expectRetry: false,
		},
		{
			description: "permission never retries",
			err:         errors.New("forbidden"),
			attempt:     0,
			expectRetry: false,
		},
		{
			description: "retry config can tighten the category cap",
			err:         errors.New("network unreachable"),
			attempt:     1,
			retryConfig: &RetryConfig{MaxRetries: 1, BaseDelay: time.Second},
			expectRetry: false,
		},
		{
			description: "business logic gets a single retry",
			err:         errors.New("business rule rejected"),
			attempt:     0,
			expectRetry: true,
			backoff:     time.Second,
		},
		{
			description: "business logic second attempt stops",
			err:         errors.New("business rule rejected"),
			attempt:     1,
			expectRetry: false,
		},
	}

	for _, testCase := range testCases {
		srv := New(zerolog.Nop())
		result := srv.Handle(testCase.err, &Context{FlowID: "f1", Attempt: testCase.attempt}, testCase.retryConfig)
		assert.Equal(t, testCase.expectRetry, result.Retry, testCase.description)
		if testCase.expectRetry {
			assert.Equal(t, testCase.backoff, result.Backoff, testCase.description)
		}
	}
}

func TestService_HistoryBounded(t *testing.T) {
	srv := New(zerolog.Nop())
	for i := 0; i < historyLimit+5; i++ {
		srv.Handle(fmt.Errorf("database failure %v", i), &Context{FlowID: "f1"}, nil)
	}
	history := srv.History("f1")
	assert.Equal(t, historyLimit, len(history))
	// Oldest entries are evicted first.
	assert.Equal(t, "database failure 5", history[0].Error)
	assert.Equal(t, fmt.Sprintf("database failure %v", historyLimit+4), history[len(history)-1].Error)
}

func TestService_GetStatistics(t *testing.T) {
	srv := New(zerolog.Nop())
	srv.Handle(errors.New("database down"), &Context{FlowID: "f1"}, nil)
	srv.Handle(errors.New("database down"), &Context{FlowID: "f1"}, nil)
	srv.Handle(errors.New("validation failed"), &Context{FlowID: "f1"}, nil)
	srv.Handle(errors.New("network unreachable"), &Context{FlowID: "f2"}, nil)

	scoped := srv.GetStatistics("f1")
	assert.Equal(t, 3, scoped.Total)
	assert.Equal(t, 2, scoped.ByCategory[CategoryDatabase])
	assert.Equal(t, 1, scoped.ByCategory[CategoryValidation])
	assert.Equal(t, 2, scoped.BySeverity[SeverityHigh])

	all := srv.GetStatistics("")
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, 1, all.ByCategory[CategoryNetwork])
}

func TestService_SuggestedActions(t *testing.T) {
	srv := New(zerolog.Nop())
	result := srv.Handle(errors.New("validation failed"), &Context{FlowID: "f1", Phase: "data_import"}, nil)
	assert.True(t, len(result.SuggestedActions) > 0)

	srv.RegisterStrategy("manual_review", func(err error, _ Classification, _ *Context) []string {
		return []string{"page the on-call"}
	})
	result = srv.Handle(errors.New("mystery"), &Context{FlowID: "f1"}, nil)
	assert.Equal(t, []string{"page the on-call"}, result.SuggestedActions)
}
