package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestService(options ...Option) *Service {
	return New(zerolog.Nop(), options...)
}

func TestService_Log_Redaction(t *testing.T) {
	testCases := []struct {
		description string
		details     map[string]interface{}
		expectKey   string
		expect      interface{}
	}{
		{
			description: "password is redacted",
			details:     map[string]interface{}{"password": "hunter2"},
			expectKey:   "password",
			expect:      Redacted,
		},
		{
			description: "api_key is redacted",
			details:     map[string]interface{}{"api_key": "abc123"},
			expectKey:   "api_key",
			expect:      Redacted,
		},
		{
			description: "pii key is redacted",
			details:     map[string]interface{}{"credit_card": "4111111111111111"},
			expectKey:   "credit_card",
			expect:      Redacted,
		},
		{
			description: "plain keys pass through",
			details:     map[string]interface{}{"records": 42},
			expectKey:   "records",
			expect:      42,
		},
		{
			description: "nested secrets are redacted",
			details: map[string]interface{}{
				"connection": map[string]interface{}{"password": "hunter2"},
			},
			expectKey: "connection",
			expect:    map[string]interface{}{"password": Redacted},
		},
	}

	for _, testCase := range testCases {
		srv := newTestService()
		id := srv.Log(&Event{
			Category:  CategoryFlowExecution,
			Level:     LevelInfo,
			FlowID:    "f1",
			Operation: "execute_phase",
			Success:   true,
			Details:   testCase.details,
		})
		assert.True(t, id != "", testCase.description)
		events := srv.GetEvents("f1", CategoryFlowExecution, "", 0)
		if !assert.Equal(t, 1, len(events), testCase.description) {
			continue
		}
		assert.Equal(t, testCase.expect, events[0].Details[testCase.expectKey], testCase.description)
	}
}

func TestFilters_Idempotent(t *testing.T) {
	event := &Event{
		FlowID:    "f1",
		Operation: "execute_phase",
		Details: map[string]interface{}{
			"password": "hunter2",
			"token":    "Bearer abc.def.ghi",
			"note":     "authorization: Bearer abc.def.ghi",
		},
	}
	for _, filter := range DefaultFilters() {
		filter(event)
	}
	once := event.Clone()
	for _, filter := range DefaultFilters() {
		filter(event)
	}
	assert.Equal(t, once.Details, event.Details)
	assert.Equal(t, Redacted, event.Details["password"])
	assert.False(t, strings.Contains(fmt.Sprintf("%v", event.Details), "hunter2"))
}

func TestService_Log_DoesNotMutateCaller(t *testing.T) {
	srv := newTestService()
	details := map[string]interface{}{"password": "hunter2"}
	srv.Log(&Event{FlowID: "f1", Operation: "execute_phase", Category: CategoryFlowExecution, Level: LevelInfo, Details: details})
	assert.Equal(t, "hunter2", details["password"])
}

func TestService_RingBounded(t *testing.T) {
	srv := newTestService(WithComplianceRules(), WithSecurityRules())
	for i := 0; i < ringLimit+20; i++ {
		srv.Log(&Event{
			Category:  CategoryFlowExecution,
			Level:     LevelInfo,
			FlowID:    "f1",
			Operation: fmt.Sprintf("op-%v", i),
			Success:   true,
		})
	}
	events := srv.GetEvents("f1", "", "", 0)
	assert.Equal(t, ringLimit, len(events))
	assert.Equal(t, "op-20", events[0].Operation)
}

func TestService_ComplianceRules(t *testing.T) {
	testCases := []struct {
		description string
		event       *Event
		expectRule  string
	}{
		{
			description: "sensitive operation without actor",
			event:       &Event{Category: CategoryUserAction, Level: LevelInfo, FlowID: "f1", Operation: "export", Actor: ""},
			expectRule:  "access_control",
		},
		{
			description: "approval-required operation without approver",
			event:       &Event{Category: CategoryUserAction, Level: LevelInfo, FlowID: "f1", Operation: "hard_delete", Actor: "ops"},
			expectRule:  "approval_required",
		},
		{
			description: "incomplete event",
			event:       &Event{Category: CategoryFlowExecution, Level: LevelInfo, FlowID: "f1"},
			expectRule:  "audit_completeness",
		},
	}

	for _, testCase := range testCases {
		srv := newTestService(WithSecurityRules())
		srv.Log(testCase.event)
		secondary := srv.GetEvents("f1", CategoryCompliance, LevelWarning, 0)
		found := false
		for _, event := range secondary {
			if event.Operation == testCase.expectRule {
				found = true
			}
		}
		assert.True(t, found, testCase.description)
	}
}

func TestService_SecurityRules(t *testing.T) {
	testCases := []struct {
		description string
		event       *Event
		expectRule  string
	}{
		{
			description: "failed authentication",
			event:       &Event{Category: CategoryUserAction, Level: LevelWarning, FlowID: "f1", Operation: "login", Actor: "ops", Success: false},
			expectRule:  "failed_authentication",
		},
		{
			description: "suspicious pattern in error message",
			event:       &Event{Category: CategoryErrorEvent, Level: LevelError, FlowID: "f1", Operation: "execute_phase", Actor: "ops", ErrorMessage: "syntax near 'drop table flows'"},
			expectRule:  "suspicious_pattern",
		},
		{
			description: "privilege escalation",
			event:       &Event{Category: CategoryUserAction, Level: LevelInfo, FlowID: "f1", Operation: "grant_admin", Actor: "ops", Success: true},
			expectRule:  "privilege_escalation",
		},
		{
			description: "data exfiltration operation",
			event:       &Event{Category: CategoryUserAction, Level: LevelInfo, FlowID: "f1", Operation: "bulk_download", Actor: "ops", Success: true},
			expectRule:  "data_exfiltration",
		},
	}

	for _, testCase := range testCases {
		srv := newTestService(WithComplianceRules())
		sourceID := srv.Log(testCase.event)
		alerts := srv.GetEvents("f1", CategorySecurityEvent, LevelCritical, 0)
		found := false
		for _, alert := range alerts {
			if alert.Operation == testCase.expectRule {
				found = true
				assert.Equal(t, sourceID, alert.Details["source_event_id"], testCase.description)
			}
		}
		assert.True(t, found, testCase.description)
	}
}

func TestService_GetComplianceReport(t *testing.T) {
	srv := newTestService()
	srv.Log(&Event{Category: CategoryFlowExecution, Level: LevelInfo, FlowID: "f1", Operation: "execute_phase", Actor: "ops", Success: true})
	// export without actor: one compliance violation plus one exfiltration alert
	srv.Log(&Event{Category: CategoryUserAction, Level: LevelInfo, FlowID: "f1", Operation: "export", Success: true})

	report := srv.GetComplianceReport("f1")
	assert.Equal(t, 1, report.Violations)
	assert.Equal(t, 1, report.SecurityAlerts)
	assert.Equal(t, 85, report.Score)
}

func TestService_Export(t *testing.T) {
	srv := newTestService(WithComplianceRules(), WithSecurityRules())
	srv.Log(&Event{Category: CategoryFlowExecution, Level: LevelInfo, FlowID: "f1", Operation: "execute_phase", Actor: "ops", Success: true})
	srv.Log(&Event{Category: CategoryErrorEvent, Level: LevelError, FlowID: "f1", Operation: "execute_phase", Actor: "ops", Success: false, ErrorMessage: "boom"})

	data, err := srv.Export("f1", FormatJSON)
	assert.Nil(t, err)
	var decoded []*Event
	assert.Nil(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, len(decoded))

	data, err = srv.Export("f1", FormatCSV)
	assert.Nil(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, 3, len(lines))
	assert.True(t, strings.HasPrefix(lines[0], "event_id,timestamp"))

	_, err = srv.Export("f1", "xml")
	assert.NotNil(t, err)
}
