package risk

import (
	"strings"
	"testing"

	"fraudgraph/pkg/models"
)

func componentByName(t *testing.T, d models.RiskDecomposition, name string) models.RiskComponent {
	t.Helper()
	for _, c := range d.Components {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("component %s not found in %+v", name, d.Components)
	return models.RiskComponent{}
}

func contributionTotal(d models.RiskDecomposition) int {
	total := 0.0
	for _, c := range d.Components {
		total += c.WeightedContribution
	}
	return int(total)
}

func TestDecomposeEmptyAlertsYieldsZeroBreakdown(t *testing.T) {
	d := Decompose(nil, 55, nil)
	if d.OverallScore != 0 || d.RiskLevel != "low" {
		t.Fatalf("expected zero low-risk result, got score=%d level=%s", d.OverallScore, d.RiskLevel)
	}
	if len(d.Components) != 5 {
		t.Fatalf("expected 5 components, got %d", len(d.Components))
	}
	for _, c := range d.Components {
		if c.RawScore != 0 || c.WeightedContribution != 0 {
			t.Fatalf("expected zeroed component, got %+v", c)
		}
	}
	if d.ComparisonBaseline != "no alerts" {
		t.Fatalf("unexpected baseline: %q", d.ComparisonBaseline)
	}
}

func TestDecomposeContributionsSumToCaseScoreExactly(t *testing.T) {
	alerts := []models.AlertRecord{
		{
			AlertID:      "a-1",
			RiskCategory: "transaction",
			Confidence:   1.0,
			Evidence:     []models.Evidence{{Feature: "velocity", Contribution: 0.4}},
		},
		{
			AlertID:      "a-2",
			RiskCategory: "network",
			Confidence:   1.0,
			Evidence:     []models.Evidence{{Feature: "shared_device", Contribution: 0.4}},
		},
	}

	d := Decompose(alerts, 85, nil)
	if d.OverallScore != 85 {
		t.Fatalf("expected overall score 85, got %d", d.OverallScore)
	}
	if got := contributionTotal(d); got != 85 {
		t.Fatalf("contributions sum to %d, want 85", got)
	}
	if d.RiskLevel != "critical" {
		t.Fatalf("expected critical, got %s", d.RiskLevel)
	}

	txn := componentByName(t, d, CategoryTransaction)
	net := componentByName(t, d, CategoryNetwork)
	if txn.WeightedContribution != 57 || net.WeightedContribution != 28 {
		t.Fatalf("unexpected split: transaction=%v network=%v", txn.WeightedContribution, net.WeightedContribution)
	}
	if len(d.KeyDifferentiators) == 0 || !strings.HasPrefix(d.KeyDifferentiators[0], "Transaction risk contributes 57") {
		t.Fatalf("unexpected differentiators: %v", d.KeyDifferentiators)
	}
}

func TestDecomposeZeroEvidenceStillSumsToCaseScore(t *testing.T) {
	// An alert with no evidence and no confidence carries a zero raw
	// score; the authoritative case score must still split across the
	// fixed weights.
	alerts := []models.AlertRecord{
		{AlertID: "a-1", RiskCategory: "transaction"},
	}

	d := Decompose(alerts, 50, nil)
	if d.OverallScore != 50 {
		t.Fatalf("expected overall score 50, got %d", d.OverallScore)
	}
	if got := contributionTotal(d); got != 50 {
		t.Fatalf("contributions sum to %d, want 50", got)
	}
	for _, c := range d.Components {
		if c.WeightedContribution <= 0 {
			t.Fatalf("expected weight-split points on every component, got %+v", d.Components)
		}
	}
	txn := componentByName(t, d, CategoryTransaction)
	if txn.WeightedContribution != 14 {
		t.Fatalf("expected remainder on the heaviest component (14 points), got %v", txn.WeightedContribution)
	}
}

func TestDecomposeEmptyAlertsKeepsIncomeFactor(t *testing.T) {
	profile := &Profile{DeclaredMonthlyIncome: 5000, TotalDeposits30d: 71000}
	d := Decompose(nil, -1, profile)
	if d.OverallScore != 0 || d.RiskLevel != "low" {
		t.Fatalf("expected zero low-risk result, got score=%d level=%s", d.OverallScore, d.RiskLevel)
	}
	txn := componentByName(t, d, CategoryTransaction)
	found := false
	for _, f := range txn.ContributingFactors {
		if f == "Deposits exceed declared income by 14.2x" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected income ratio factor without alerts, got %v", txn.ContributingFactors)
	}
}

func TestDecomposeClampsCaseScoreAtHundred(t *testing.T) {
	alerts := []models.AlertRecord{
		{AlertID: "a-1", RiskCategory: "behavioral", Confidence: 0.9, Evidence: []models.Evidence{{Contribution: 0.8}}},
	}
	d := Decompose(alerts, 120, nil)
	if d.OverallScore != 100 {
		t.Fatalf("expected clamp to 100, got %d", d.OverallScore)
	}
	if got := contributionTotal(d); got != 100 {
		t.Fatalf("contributions sum to %d, want 100", got)
	}
}

func TestDecomposeWithoutCaseScoreUsesLocalEvidence(t *testing.T) {
	alerts := []models.AlertRecord{
		{AlertID: "a-1", RiskCategory: "transaction", Confidence: 1.0, Evidence: []models.Evidence{{Contribution: 0.5}}},
	}
	d := Decompose(alerts, -1, nil)
	// raw = 0.5*100 + 25 bonus = 75; weighted by 0.30 -> 22.5 -> 23
	if d.OverallScore != 23 {
		t.Fatalf("expected locally derived score 23, got %d", d.OverallScore)
	}
	if d.RiskLevel != "low" {
		t.Fatalf("expected low, got %s", d.RiskLevel)
	}
	if got := contributionTotal(d); got != 23 {
		t.Fatalf("contributions sum to %d, want 23", got)
	}
}

func TestDecomposeAddsIncomeRatioFactor(t *testing.T) {
	alerts := []models.AlertRecord{
		{AlertID: "a-1", RiskCategory: "transaction", Confidence: 0.8, Evidence: []models.Evidence{{Contribution: 0.3}}},
	}
	profile := &Profile{DeclaredMonthlyIncome: 5000, TotalDeposits30d: 71000}

	d := Decompose(alerts, 70, profile)
	txn := componentByName(t, d, CategoryTransaction)
	found := false
	for _, f := range txn.ContributingFactors {
		if f == "Deposits exceed declared income by 14.2x" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected income ratio factor, got %v", txn.ContributingFactors)
	}
}

func TestDecomposeIncomeRatioBelowOneIsSilent(t *testing.T) {
	alerts := []models.AlertRecord{
		{AlertID: "a-1", RiskCategory: "transaction", Confidence: 0.8, Evidence: []models.Evidence{{Contribution: 0.3}}},
	}
	profile := &Profile{DeclaredMonthlyIncome: 5000, TotalDeposits30d: 3000}

	d := Decompose(alerts, 40, profile)
	txn := componentByName(t, d, CategoryTransaction)
	for _, f := range txn.ContributingFactors {
		if strings.Contains(f, "declared income") {
			t.Fatalf("unexpected income factor: %v", txn.ContributingFactors)
		}
	}
}

func TestCategoryResolutionOrder(t *testing.T) {
	explicit := models.AlertRecord{AlertID: "a-1", RiskCategory: "identity", Signal: "deposit velocity"}
	if got := categoryOf(&explicit); got != CategoryIdentity {
		t.Fatalf("explicit category: got %s", got)
	}

	viaEvidence := models.AlertRecord{
		AlertID:  "a-2",
		Evidence: []models.Evidence{{Feature: "x", RiskCategory: "network"}},
	}
	if got := categoryOf(&viaEvidence); got != CategoryNetwork {
		t.Fatalf("evidence category: got %s", got)
	}

	inferred := models.AlertRecord{AlertID: "a-3", Signal: "rapid deposit velocity spike"}
	if got := categoryOf(&inferred); got != CategoryTransaction {
		t.Fatalf("inferred category: got %s", got)
	}

	fallback := models.AlertRecord{AlertID: "a-4", Signal: "unclassifiable oddity"}
	if got := categoryOf(&fallback); got != CategoryBehavioral {
		t.Fatalf("fallback category: got %s", got)
	}
}

func TestRiskLevelThresholds(t *testing.T) {
	cases := map[int]string{
		0:  "low",
		29: "low",
		30: "medium",
		59: "medium",
		60: "high",
		79: "high",
		80: "critical",
		95: "critical",
	}
	for score, want := range cases {
		if got := riskLevel(score); got != want {
			t.Fatalf("riskLevel(%d) = %s, want %s", score, got, want)
		}
	}
}
