package aggregator

import (
	"testing"
	"time"

	"fraudgraph/internal/rules"
	"fraudgraph/pkg/models"
)

// tagEverything marks every alert with a fixed category and every raw
// record with a named flag.
type tagEverything struct{}

func (tagEverything) Apply(source string, fields map[string]interface{}) []rules.RiskTag {
	switch source {
	case "alerts":
		return []rules.RiskTag{{ID: "r-1", Name: "ring_signal", Severity: "high", Category: "Network"}}
	case "logins":
		return []rules.RiskTag{{ID: "r-2", Name: "impossible_travel"}}
	case "transactions":
		return []rules.RiskTag{{ID: "r-3", Name: "structuring"}}
	}
	return nil
}

func intPtr(v int) *int { return &v }

func fixtureCaseFile() *models.CaseFile {
	return &models.CaseFile{
		Case: models.CaseSummary{
			CaseID:     "case-42",
			CustomerID: "cust-1",
			CaseScore:  intPtr(72),
			Alerts: []models.AlertRecord{
				{AlertID: "a-1", TriggeredAt: "2026-03-14T09:16:00Z", Severity: "high", Confidence: 0.9,
					Evidence: []models.Evidence{{Feature: "velocity", Contribution: 0.4}}},
			},
		},
		Customer: &models.CustomerProfile{CustomerID: "cust-1", DeclaredIncome: 5000},
		Account:  &models.AccountSummary{AccountID: "acct-1", TotalDeposits30d: 71000},
		Transactions: []models.TransactionRecord{
			{TransactionID: "t-1", UserID: "cust-1", Timestamp: "2026-03-14T09:30:00Z", Type: "withdrawal",
				Amount: models.Num(-15000), Currency: "EUR", Counterparty: "cust-8"},
		},
		Logins: []models.LoginRecord{
			{EventID: "l-1", UserID: "cust-1", Timestamp: "2026-03-14T09:15:00Z", LoginSuccess: true,
				DeviceID: "dev-1", IPAddress: "10.0.0.8", RiskFlags: []string{"new_device"}},
		},
		Completeness: models.DataCompleteness{KYCData: true, TransactionHistory: true, LoginHistory: true},
	}
}

func TestInvestigateAssemblesFullEnvelope(t *testing.T) {
	agg := New(Config{FlagThreshold: 10000}, nil)
	fixed := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return fixed }

	inv := agg.Investigate(fixtureCaseFile())
	if inv.InvestigationID == "" {
		t.Fatalf("expected generated investigation id")
	}
	if inv.CaseID != "case-42" {
		t.Fatalf("unexpected case id: %s", inv.CaseID)
	}
	if !inv.GeneratedAt.Equal(fixed) {
		t.Fatalf("unexpected generated_at: %v", inv.GeneratedAt)
	}
	if !inv.Completeness.KYCData || inv.Completeness.NetworkAnalysis {
		t.Fatalf("completeness not carried through: %+v", inv.Completeness)
	}
	if inv.Normalization.Parsed != 3 || inv.Normalization.Dropped() != 0 {
		t.Fatalf("unexpected normalization stats: %+v", inv.Normalization)
	}
	if len(inv.Events) != 3 {
		t.Fatalf("expected 3 normalized events, got %d", len(inv.Events))
	}

	if inv.Risk.OverallScore != 72 {
		t.Fatalf("case score must be authoritative, got %d", inv.Risk.OverallScore)
	}
	total := 0.0
	for _, c := range inv.Risk.Components {
		total += c.WeightedContribution
	}
	if int(total) != 72 {
		t.Fatalf("component contributions sum to %v, want 72", total)
	}

	if inv.Timeline.TotalEvents != 3 {
		t.Fatalf("expected 3 timeline events, got %d", inv.Timeline.TotalEvents)
	}
	if !inv.Timeline.Escalation.Detected || inv.Timeline.Escalation.Pattern != "new_device_large_withdrawal" {
		t.Fatalf("expected new-device cashout escalation, got %+v", inv.Timeline.Escalation)
	}

	if len(inv.Network.Nodes) == 0 {
		t.Fatalf("expected network nodes")
	}
	known := make(map[string]bool)
	for _, n := range inv.Network.Nodes {
		known[n.ID] = true
	}
	if !known["user:cust-1"] || !known["device:dev-1"] {
		t.Fatalf("expected user and device nodes, got %v", inv.Network.Nodes)
	}
}

func TestInvestigateWithoutCaseScoreFallsBackToEvidence(t *testing.T) {
	cf := fixtureCaseFile()
	cf.Case.CaseScore = nil

	agg := New(Config{FlagThreshold: 10000}, nil)
	inv := agg.Investigate(cf)
	// One 0.4-contribution alert with 0.9 confidence lands well below 72.
	if inv.Risk.OverallScore >= 72 {
		t.Fatalf("expected locally derived score below 72, got %d", inv.Risk.OverallScore)
	}
	if inv.Risk.OverallScore <= 0 {
		t.Fatalf("expected non-zero score, got %d", inv.Risk.OverallScore)
	}
}

func TestApplyRulesAnnotatesRawRecords(t *testing.T) {
	cf := fixtureCaseFile()
	agg := New(Config{FlagThreshold: 10000}, tagEverything{})

	inv := agg.Investigate(cf)
	if inv == nil {
		t.Fatalf("expected investigation")
	}

	alert := cf.Case.Alerts[0]
	if alert.RiskCategory != "Network" {
		t.Fatalf("rule category not applied: %+v", alert)
	}
	if !contains(alert.RawSignalRefs, "ring_signal") {
		t.Fatalf("alert tag missing: %v", alert.RawSignalRefs)
	}
	if !contains(cf.Logins[0].RiskFlags, "impossible_travel") {
		t.Fatalf("login tag missing: %v", cf.Logins[0].RiskFlags)
	}
	if !contains(cf.Transactions[0].RiskFlags, "structuring") {
		t.Fatalf("transaction tag missing: %v", cf.Transactions[0].RiskFlags)
	}
}

func TestApplyRulesDoesNotOverrideExplicitCategory(t *testing.T) {
	cf := fixtureCaseFile()
	cf.Case.Alerts[0].RiskCategory = "transaction"

	agg := New(Config{FlagThreshold: 10000}, tagEverything{})
	agg.Investigate(cf)
	if cf.Case.Alerts[0].RiskCategory != "transaction" {
		t.Fatalf("explicit category overridden: %s", cf.Case.Alerts[0].RiskCategory)
	}
}

func TestApplyRulesIsIdempotentOnTags(t *testing.T) {
	cf := fixtureCaseFile()
	agg := New(Config{FlagThreshold: 10000}, tagEverything{})

	agg.Investigate(cf)
	agg.Investigate(cf)
	count := 0
	for _, f := range cf.Logins[0].RiskFlags {
		if f == "impossible_travel" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("tag duplicated across runs: %v", cf.Logins[0].RiskFlags)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
