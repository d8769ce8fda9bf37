package audit

import (
	"time"
)

// ComplianceReport summarizes compliance posture over stored events.
// Score is 0-100: violations cost 5 points, security alerts 10.
type ComplianceReport struct {
	FlowID         string    `json:"flowId,omitempty"`
	GeneratedAt    time.Time `json:"generatedAt"`
	TotalEvents    int       `json:"totalEvents"`
	Violations     int       `json:"violations"`
	SecurityAlerts int       `json:"securityAlerts"`
	Score          int       `json:"score"`
}

// GetComplianceReport aggregates violation and alert counts, scoped to one
// flow when flowID is non-empty, otherwise across all flows.
func (s *Service) GetComplianceReport(flowID string) *ComplianceReport {
	report := &ComplianceReport{FlowID: flowID, GeneratedAt: time.Now()}

	flowIDs := []string{flowID}
	if flowID == "" {
		flowIDs = s.flows()
	}
	for _, id := range flowIDs {
		for _, event := range s.GetEvents(id, "", "", 0) {
			report.TotalEvents++
			switch event.Category {
			case CategoryCompliance:
				report.Violations++
			case CategorySecurityEvent:
				report.SecurityAlerts++
			}
		}
	}
	score := 100 - 5*report.Violations - 10*report.SecurityAlerts
	if score < 0 {
		score = 0
	}
	report.Score = score
	return report
}
