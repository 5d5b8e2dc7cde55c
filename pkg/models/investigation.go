package models

import "time"

// Investigation is the composite envelope produced for one case.
type Investigation struct {
	InvestigationID string            `json:"investigation_id"`
	CaseID          string            `json:"case_id"`
	GeneratedAt     time.Time         `json:"generated_at"`
	Completeness    DataCompleteness  `json:"data_completeness"`
	Normalization   NormalizeStats    `json:"normalization"`
	Events          []NormalizedEvent `json:"events,omitempty"`
	Risk            RiskDecomposition `json:"risk_decomposition"`
	Timeline        Timeline          `json:"timeline"`
	Network         NetworkGraph      `json:"network_analysis"`
}
