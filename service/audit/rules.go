package audit

import (
	"strings"
	"time"
)

// ComplianceRule evaluates a filtered event against a compliance policy. A
// non-empty violation produces a secondary compliance_event at warning level.
type ComplianceRule interface {
	Name() string
	Check(event *Event) (violation string)
}

// SecurityRule inspects a filtered event for security-relevant activity. A
// triggered rule produces a secondary security_event at critical level.
type SecurityRule interface {
	Name() string
	Triggered(event *Event) (alert string)
}

// sensitiveOperations require an identified actor.
var sensitiveOperations = map[string]bool{
	"delete":            true,
	"hard_delete":       true,
	"export":            true,
	"bulk_download":     true,
	"data_copy":         true,
	"permission_change": true,
}

// approvalRequiredOperations must record who approved them.
var approvalRequiredOperations = map[string]bool{
	"hard_delete": true,
	"bulk_delete": true,
	"restart":     true,
	"override":    true,
}

// exfiltrationOperations move data out of the system.
var exfiltrationOperations = map[string]bool{
	"export":        true,
	"bulk_download": true,
	"data_copy":     true,
}

// privilegeOperations alter a subject's authority.
var privilegeOperations = map[string]bool{
	"grant_admin":        true,
	"elevate_privileges": true,
	"change_role":        true,
	"impersonate":        true,
}

// suspiciousPatterns flag injection and traversal attempts in operation names
// and error messages.
var suspiciousPatterns = []string{
	"drop table", "union select", "../", "<script", "rm -rf", "; --",
}

type retentionRule struct{ maxAge time.Duration }

func (r *retentionRule) Name() string { return "data_retention" }

func (r *retentionRule) Check(event *Event) string {
	if r.maxAge <= 0 || event.Timestamp.IsZero() {
		return ""
	}
	if age := time.Since(event.Timestamp); age > r.maxAge {
		return "event exceeds retention window"
	}
	return ""
}

type accessControlRule struct{}

func (r *accessControlRule) Name() string { return "access_control" }

func (r *accessControlRule) Check(event *Event) string {
	if sensitiveOperations[strings.ToLower(event.Operation)] && event.Actor == "" {
		return "sensitive operation without identified actor"
	}
	return ""
}

type completenessRule struct{}

func (r *completenessRule) Name() string { return "audit_completeness" }

func (r *completenessRule) Check(event *Event) string {
	var missing []string
	if event.FlowID == "" {
		missing = append(missing, "flowId")
	}
	if event.Operation == "" {
		missing = append(missing, "operation")
	}
	if event.Category == "" {
		missing = append(missing, "category")
	}
	if event.Level == "" {
		missing = append(missing, "level")
	}
	if len(missing) == 0 {
		return ""
	}
	return "missing required fields: " + strings.Join(missing, ", ")
}

type approvalRequiredRule struct{}

func (r *approvalRequiredRule) Name() string { return "approval_required" }

func (r *approvalRequiredRule) Check(event *Event) string {
	if !approvalRequiredOperations[strings.ToLower(event.Operation)] {
		return ""
	}
	if v, ok := event.Details["approved_by"]; ok {
		if s, _ := v.(string); s != "" {
			return ""
		}
	}
	return "operation requires recorded approval"
}

type failedAuthRule struct{}

func (r *failedAuthRule) Name() string { return "failed_authentication" }

func (r *failedAuthRule) Triggered(event *Event) string {
	if event.Success {
		return ""
	}
	operation := strings.ToLower(event.Operation)
	if strings.Contains(operation, "login") || strings.Contains(operation, "auth") {
		return "failed authentication attempt"
	}
	return ""
}

type suspiciousPatternRule struct{}

func (r *suspiciousPatternRule) Name() string { return "suspicious_pattern" }

func (r *suspiciousPatternRule) Triggered(event *Event) string {
	haystack := strings.ToLower(event.Operation + " " + event.ErrorMessage)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(haystack, pattern) {
			return "suspicious pattern detected: " + pattern
		}
	}
	return ""
}

type privilegeEscalationRule struct{}

func (r *privilegeEscalationRule) Name() string { return "privilege_escalation" }

func (r *privilegeEscalationRule) Triggered(event *Event) string {
	if privilegeOperations[strings.ToLower(event.Operation)] {
		return "privilege-altering operation"
	}
	return ""
}

type exfiltrationRule struct{}

func (r *exfiltrationRule) Name() string { return "data_exfiltration" }

func (r *exfiltrationRule) Triggered(event *Event) string {
	if exfiltrationOperations[strings.ToLower(event.Operation)] {
		return "data movement operation detected"
	}
	return ""
}

// DefaultComplianceRules returns the built-in compliance rule set.
func DefaultComplianceRules(retention time.Duration) []ComplianceRule {
	return []ComplianceRule{
		&retentionRule{maxAge: retention},
		&accessControlRule{},
		&completenessRule{},
		&approvalRequiredRule{},
	}
}

// DefaultSecurityRules returns the built-in security rule set.
func DefaultSecurityRules() []SecurityRule {
	return []SecurityRule{
		&failedAuthRule{},
		&suspiciousPatternRule{},
		&privilegeEscalationRule{},
		&exfiltrationRule{},
	}
}
