package models

// RiskComponent is one weighted slice of the overall case risk.
type RiskComponent struct {
	Name                 string   `json:"component_name"`
	RawScore             float64  `json:"raw_score"` // 0-100 before rescaling
	Weight               float64  `json:"weight"`
	WeightedContribution float64  `json:"weighted_contribution"`
	ContributingFactors  []string `json:"contributing_factors,omitempty"`
}

// RiskDecomposition is the full component breakdown for one case.
type RiskDecomposition struct {
	OverallScore       int             `json:"overall_risk_score"`
	RiskLevel          string          `json:"risk_level"` // low, medium, high, critical
	Components         []RiskComponent `json:"components"`
	ComparisonBaseline string          `json:"comparison_baseline,omitempty"`
	KeyDifferentiators []string        `json:"key_differentiators,omitempty"`
}
