package models

import "time"

// TimelineEntry is one event in the merged case chronology.
type TimelineEntry struct {
	Timestamp       time.Time `json:"ts"`
	Type            string    `json:"type"` // login_success, login_failed, password_change, transaction, alert
	Category        Category  `json:"category"`
	Label           string    `json:"event"`
	Severity        Severity  `json:"severity"`
	RelatedAlertIDs []string  `json:"related_alerts,omitempty"`
}

// EscalationAssessment reports whether the timeline shows a known
// escalation chain and how fast it played out.
type EscalationAssessment struct {
	Detected                bool   `json:"escalation_detected"`
	Pattern                 string `json:"pattern,omitempty"`
	Severity                string `json:"severity,omitempty"`
	TimeToEscalationMinutes *int   `json:"time_to_escalation_minutes,omitempty"`
	Narrative               string `json:"narrative,omitempty"`
}

// Timeline is the ordered event sequence plus its escalation assessment.
type Timeline struct {
	Sequence       []TimelineEntry      `json:"sequence"`
	Escalation     EscalationAssessment `json:"escalation_assessment"`
	WindowStart    time.Time            `json:"window_start,omitempty"`
	WindowEnd      time.Time            `json:"window_end,omitempty"`
	TotalEvents    int                  `json:"total_events"`
	CriticalEvents int                  `json:"critical_events"`
}
