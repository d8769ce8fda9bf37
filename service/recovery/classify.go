package recovery

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Category buckets a runtime error for retry and recovery purposes.
type Category string

// Error categories, in matching precedence order.
const (
	CategoryDatabase      Category = "database"
	CategoryNetwork       Category = "network"
	CategoryValidation    Category = "validation"
	CategoryPermission    Category = "permission"
	CategoryTimeout       Category = "timeout"
	CategoryResource      Category = "resource"
	CategoryExecution     Category = "execution"
	CategoryBusinessLogic Category = "business_logic"
	CategoryUnknown       Category = "unknown"
)

// Severity grades the impact of a classified error.
type Severity string

// Severities.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Classification is the derived retry profile of one error. It is never
// stored with the flow; it drives the retry decision and recovery-strategy
// dispatch only.
type Classification struct {
	Category          Category `json:"category"`
	Severity          Severity `json:"severity"`
	Retryable         bool     `json:"retryable"`
	MaxRetries        int      `json:"maxRetries"`
	BackoffMultiplier float64  `json:"backoffMultiplier"`
	RecoveryStrategy  string   `json:"recoveryStrategy"`
}

// profiles carries the fixed per-category retry tuple. Validation and
// permission errors are never retried regardless of retry configuration.
var profiles = map[Category]Classification{
	CategoryDatabase:      {Category: CategoryDatabase, Severity: SeverityHigh, Retryable: true, MaxRetries: 3, BackoffMultiplier: 2.0, RecoveryStrategy: "reconnect_database"},
	CategoryNetwork:       {Category: CategoryNetwork, Severity: SeverityMedium, Retryable: true, MaxRetries: 5, BackoffMultiplier: 1.5, RecoveryStrategy: "retry_with_backoff"},
	CategoryValidation:    {Category: CategoryValidation, Severity: SeverityMedium, Retryable: false, RecoveryStrategy: "fix_input"},
	CategoryPermission:    {Category: CategoryPermission, Severity: SeverityHigh, Retryable: false, RecoveryStrategy: "escalate_access"},
	CategoryTimeout:       {Category: CategoryTimeout, Severity: SeverityMedium, Retryable: true, MaxRetries: 3, BackoffMultiplier: 2.0, RecoveryStrategy: "extend_deadline"},
	CategoryResource:      {Category: CategoryResource, Severity: SeverityHigh, Retryable: true, MaxRetries: 2, BackoffMultiplier: 3.0, RecoveryStrategy: "release_resources"},
	CategoryExecution:     {Category: CategoryExecution, Severity: SeverityMedium, Retryable: true, MaxRetries: 2, BackoffMultiplier: 2.0, RecoveryStrategy: "restart_worker"},
	CategoryBusinessLogic: {Category: CategoryBusinessLogic, Severity: SeverityLow, Retryable: true, MaxRetries: 1, BackoffMultiplier: 1.0, RecoveryStrategy: "review_rules"},
	CategoryUnknown:       {Category: CategoryUnknown, Severity: SeverityMedium, Retryable: true, MaxRetries: 1, BackoffMultiplier: 2.0, RecoveryStrategy: "manual_review"},
}

// keywords maps each category to message substrings that select it. Matching
// is ordered: the first category whose keyword appears in the lowercased
// message wins, so e.g. "database connection timeout" classifies as database.
var keywords = []struct {
	category Category
	terms    []string
}{
	{CategoryDatabase, []string{"database", "sql", "deadlock", "constraint", "duplicate key", "transaction"}},
	{CategoryNetwork, []string{"network", "connection refused", "connection reset", "broken pipe", "no such host", "unreachable", "dns"}},
	{CategoryValidation, []string{"validation", "invalid", "schema", "required field", "malformed"}},
	{CategoryPermission, []string{"permission", "unauthorized", "forbidden", "access denied", "not allowed"}},
	{CategoryTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{CategoryResource, []string{"out of memory", "disk full", "quota", "too many open files", "resource exhausted", "capacity"}},
	{CategoryExecution, []string{"handler", "crew", "worker", "execution", "panic"}},
	{CategoryBusinessLogic, []string{"business rule", "policy violation", "precondition", "state conflict"}},
}

// Classify derives a retry profile from an error's type and message. It is a
// pure function: the same error always yields an identical classification.
func Classify(err error) Classification {
	if err == nil {
		return profiles[CategoryUnknown]
	}
	if category, ok := classifyByType(err); ok {
		return profiles[category]
	}
	message := strings.ToLower(err.Error())
	for _, entry := range keywords {
		for _, term := range entry.terms {
			if strings.Contains(message, term) {
				return profiles[entry.category]
			}
		}
	}
	return profiles[CategoryUnknown]
}

// classifyByType matches well-known error types ahead of keyword scanning.
func classifyByType(err error) (Category, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout, true
	}
	if errors.Is(err, context.Canceled) {
		return CategoryExecution, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout, true
		}
		return CategoryNetwork, true
	}
	return "", false
}
