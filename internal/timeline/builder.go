package timeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"fraudgraph/internal/transform/caserecords"
	"fraudgraph/pkg/models"
)

// Config controls ordering and escalation detection.
type Config struct {
	// ProximityWindow bounds how close two events must be before the
	// salience rank overrides plain timestamp order.
	ProximityWindow time.Duration
	// RapidWindow bounds how quickly a chain must culminate to count
	// as an escalation.
	RapidWindow time.Duration
	// LargeAmount marks a withdrawal as large for escalation purposes.
	LargeAmount float64
}

// Builder merges case event sources into one ordered timeline.
type Builder struct {
	cfg Config
}

// NewBuilder creates a builder, applying defaults for zero fields.
func NewBuilder(cfg Config) *Builder {
	if cfg.ProximityWindow <= 0 {
		cfg.ProximityWindow = 10 * time.Minute
	}
	if cfg.RapidWindow <= 0 {
		cfg.RapidWindow = 30 * time.Minute
	}
	if cfg.LargeAmount <= 0 {
		cfg.LargeAmount = caserecords.DefaultFlagThreshold
	}
	return &Builder{cfg: cfg}
}

// Salience ranks: higher-priority events render after lower ones when they
// land at nearly the same instant, so the more significant marker sits on top.
var subtypeRank = map[string]int{
	"login_success":   0,
	"login":           1,
	"transaction":     2,
	"login_failed":    3,
	"password_change": 4,
	"alert":           5,
}

type entry struct {
	models.TimelineEntry
	rank      int
	newDevice bool
	amount    float64
	txType    string
}

// Build merges alerts, transactions and logins into a chronological
// sequence and assesses escalation. Pure: identical input yields
// identical output.
func (b *Builder) Build(alerts []models.AlertRecord, transactions []models.TransactionRecord, logins []models.LoginRecord) models.Timeline {
	entries := b.collect(alerts, transactions, logins)
	if len(entries) == 0 {
		return models.Timeline{Sequence: []models.TimelineEntry{}}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	// Escalation chains are strictly chronological, so assess before the
	// salience reorder shuffles near-simultaneous events.
	escalation := b.assessEscalation(entries)
	b.reorderProximityGroups(entries)

	sequence := make([]models.TimelineEntry, len(entries))
	critical := 0
	for i := range entries {
		sequence[i] = entries[i].TimelineEntry
		if entries[i].Severity == models.SeverityCritical {
			critical++
		}
	}

	return models.Timeline{
		Sequence:       sequence,
		Escalation:     escalation,
		WindowStart:    entries[0].Timestamp,
		WindowEnd:      entries[len(entries)-1].Timestamp,
		TotalEvents:    len(entries),
		CriticalEvents: critical,
	}
}

func (b *Builder) collect(alerts []models.AlertRecord, transactions []models.TransactionRecord, logins []models.LoginRecord) []entry {
	entries := make([]entry, 0, len(alerts)+len(transactions)+len(logins))

	for i := range alerts {
		a := &alerts[i]
		ts, ok := caserecords.ParseTimestamp(a.TriggeredAt)
		if !ok {
			continue
		}
		label := a.Description
		if label == "" {
			label = a.AlertType
		}
		entries = append(entries, entry{
			TimelineEntry: models.TimelineEntry{
				Timestamp:       ts,
				Type:            "alert",
				Category:        models.CategoryAlert,
				Label:           label,
				Severity:        caserecords.AlertSeverity(a.Severity),
				RelatedAlertIDs: []string{a.AlertID},
			},
			rank: subtypeRank["alert"],
		})
	}

	for i := range transactions {
		t := &transactions[i]
		ts, ok := caserecords.ParseTimestamp(t.Timestamp)
		if !ok || !t.Amount.Valid {
			continue
		}
		severity := models.SeverityInfo
		if math.Abs(t.Amount.Value) > b.cfg.LargeAmount {
			severity = models.SeverityWarning
		}
		entries = append(entries, entry{
			TimelineEntry: models.TimelineEntry{
				Timestamp: ts,
				Type:      "transaction",
				Category:  models.CategoryTransaction,
				Label:     fmt.Sprintf("%s %.2f %s", t.Type, t.Amount.Value, t.Currency),
				Severity:  severity,
			},
			rank:   subtypeRank["transaction"],
			amount: t.Amount.Value,
			txType: t.Type,
		})
	}

	for i := range logins {
		l := &logins[i]
		ts, ok := caserecords.ParseTimestamp(l.Timestamp)
		if !ok {
			continue
		}
		label, severity := caserecords.ClassifyLogin(l)
		rank, known := subtypeRank[label]
		if !known {
			rank = subtypeRank["login"]
		}
		entries = append(entries, entry{
			TimelineEntry: models.TimelineEntry{
				Timestamp: ts,
				Type:      label,
				Category:  models.CategoryAuth,
				Label:     label,
				Severity:  severity,
			},
			rank:      rank,
			newDevice: hasFlag(l.RiskFlags, "new_device"),
		})
	}

	return entries
}

// reorderProximityGroups applies the salience tie-break to runs of
// near-simultaneous events. Entries stay within their run, so the
// sequence remains chronological at window granularity.
func (b *Builder) reorderProximityGroups(entries []entry) {
	start := 0
	for i := 1; i <= len(entries); i++ {
		if i < len(entries) && entries[i].Timestamp.Sub(entries[start].Timestamp) <= b.cfg.ProximityWindow {
			continue
		}
		group := entries[start:i]
		sort.SliceStable(group, func(a, b int) bool {
			if group[a].rank != group[b].rank {
				return group[a].rank < group[b].rank
			}
			return group[a].Timestamp.Before(group[b].Timestamp)
		})
		start = i
	}
}

// assessEscalation looks for the two chains worth flagging:
// repeated failed logins followed by a success and a rapid transaction,
// and a new-device login followed by a large withdrawal.
func (b *Builder) assessEscalation(entries []entry) models.EscalationAssessment {
	if esc, ok := b.detectTakeoverChain(entries); ok {
		return esc
	}
	if esc, ok := b.detectNewDeviceCashout(entries); ok {
		return esc
	}
	return models.EscalationAssessment{Detected: false}
}

func (b *Builder) detectTakeoverChain(entries []entry) (models.EscalationAssessment, bool) {
	var firstFailed, success *entry
	failedRun := 0

	for i := range entries {
		e := &entries[i]
		switch e.Type {
		case "login_failed":
			if failedRun == 0 {
				firstFailed = e
			}
			failedRun++
		case "login_success":
			if failedRun >= 2 {
				success = e
			}
		case "transaction":
			if success != nil && e.Timestamp.Sub(success.Timestamp) <= b.cfg.RapidWindow {
				minutes := int(e.Timestamp.Sub(firstFailed.Timestamp).Minutes())
				return models.EscalationAssessment{
					Detected:                true,
					Pattern:                 "failed_logins_then_success_then_transaction",
					Severity:                "critical",
					TimeToEscalationMinutes: &minutes,
					Narrative: fmt.Sprintf("%d failed logins escalated to a transaction within %d minutes",
						failedRun, minutes),
				}, true
			}
		}
	}
	return models.EscalationAssessment{}, false
}

func (b *Builder) detectNewDeviceCashout(entries []entry) (models.EscalationAssessment, bool) {
	var newDeviceLogin *entry
	for i := range entries {
		e := &entries[i]
		if e.newDevice {
			newDeviceLogin = e
			continue
		}
		if newDeviceLogin == nil || e.Type != "transaction" || e.txType != "withdrawal" {
			continue
		}
		if math.Abs(e.amount) > b.cfg.LargeAmount && e.Timestamp.Sub(newDeviceLogin.Timestamp) <= b.cfg.RapidWindow {
			minutes := int(e.Timestamp.Sub(newDeviceLogin.Timestamp).Minutes())
			return models.EscalationAssessment{
				Detected:                true,
				Pattern:                 "new_device_large_withdrawal",
				Severity:                "high",
				TimeToEscalationMinutes: &minutes,
				Narrative: fmt.Sprintf("Large withdrawal %d minutes after a login from a new device",
					minutes),
			}, true
		}
	}
	return models.EscalationAssessment{}, false
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
