package caserecords

import (
	"strings"
	"time"

	"fraudgraph/internal/logger"
	"fraudgraph/pkg/models"
)

// DefaultFlagThreshold marks transaction amounts worth flagging.
const DefaultFlagThreshold = 10000

// Normalizer converts heterogeneous raw case records into typed events.
type Normalizer struct {
	flagThreshold float64
}

// NewNormalizer creates a normalizer. A non-positive threshold falls back
// to the default.
func NewNormalizer(flagThreshold float64) *Normalizer {
	if flagThreshold <= 0 {
		flagThreshold = DefaultFlagThreshold
	}
	return &Normalizer{flagThreshold: flagThreshold}
}

// Normalize converts every raw record in the case file. Malformed records
// are skipped and counted; partial bad data never fails the whole batch.
func (n *Normalizer) Normalize(cf *models.CaseFile) ([]models.NormalizedEvent, models.NormalizeStats) {
	var stats models.NormalizeStats
	if cf == nil {
		return nil, stats
	}

	events := make([]models.NormalizedEvent, 0,
		len(cf.Case.Alerts)+len(cf.Transactions)+len(cf.Logins)+len(cf.Connections))

	for i := range cf.Case.Alerts {
		if ev, ok := n.normalizeAlert(&cf.Case.Alerts[i], &stats); ok {
			events = append(events, ev)
		}
	}
	for i := range cf.Transactions {
		if ev, ok := n.normalizeTransaction(&cf.Transactions[i], &stats); ok {
			events = append(events, ev)
		}
	}
	for i := range cf.Logins {
		if ev, ok := n.normalizeLogin(&cf.Logins[i], &stats); ok {
			events = append(events, ev)
		}
	}
	for i := range cf.Connections {
		if ev, ok := n.normalizeConnection(&cf.Connections[i], &stats); ok {
			events = append(events, ev)
		}
	}

	if dropped := stats.Dropped(); dropped > 0 {
		logger.Warnf("Normalization dropped %d of %d records (no_timestamp=%d malformed=%d)",
			dropped, dropped+stats.Parsed, stats.DroppedNoTimestamp, stats.DroppedMalformed)
	}
	return events, stats
}

func (n *Normalizer) normalizeAlert(a *models.AlertRecord, stats *models.NormalizeStats) (models.NormalizedEvent, bool) {
	if strings.TrimSpace(a.AlertID) == "" {
		stats.DroppedMalformed++
		return models.NormalizedEvent{}, false
	}
	ts, ok := ParseTimestamp(a.TriggeredAt)
	if !ok {
		logger.Debugf("Skipping alert without valid timestamp (alert_id=%s)", a.AlertID)
		stats.DroppedNoTimestamp++
		return models.NormalizedEvent{}, false
	}

	label := a.AlertType
	if label == "" {
		label = a.Signal
	}
	stats.Parsed++
	return models.NormalizedEvent{
		ID:              a.AlertID,
		Timestamp:       ts,
		Category:        models.CategoryAlert,
		Severity:        AlertSeverity(a.Severity),
		SourceType:      "alert",
		Label:           label,
		RawRef:          "alert:" + a.AlertID,
		RelatedAlertIDs: []string{a.AlertID},
	}, true
}

func (n *Normalizer) normalizeTransaction(t *models.TransactionRecord, stats *models.NormalizeStats) (models.NormalizedEvent, bool) {
	if strings.TrimSpace(t.TransactionID) == "" || !t.Amount.Valid {
		stats.DroppedMalformed++
		return models.NormalizedEvent{}, false
	}
	ts, ok := ParseTimestamp(t.Timestamp)
	if !ok {
		logger.Debugf("Skipping transaction without valid timestamp (transaction_id=%s)", t.TransactionID)
		stats.DroppedNoTimestamp++
		return models.NormalizedEvent{}, false
	}

	severity := models.SeverityInfo
	if abs(t.Amount.Value) > n.flagThreshold {
		severity = models.SeverityWarning
	}
	label := t.Type
	if label == "" {
		label = "transaction"
	}
	stats.Parsed++
	return models.NormalizedEvent{
		ID:         t.TransactionID,
		Timestamp:  ts,
		Category:   models.CategoryTransaction,
		Severity:   severity,
		SourceType: "transaction",
		Label:      label,
		RawRef:     "transaction:" + t.TransactionID,
	}, true
}

func (n *Normalizer) normalizeLogin(l *models.LoginRecord, stats *models.NormalizeStats) (models.NormalizedEvent, bool) {
	if strings.TrimSpace(l.EventID) == "" {
		stats.DroppedMalformed++
		return models.NormalizedEvent{}, false
	}
	ts, ok := ParseTimestamp(l.Timestamp)
	if !ok {
		logger.Debugf("Skipping login without valid timestamp (event_id=%s)", l.EventID)
		stats.DroppedNoTimestamp++
		return models.NormalizedEvent{}, false
	}

	label, severity := ClassifyLogin(l)
	stats.Parsed++
	return models.NormalizedEvent{
		ID:         l.EventID,
		Timestamp:  ts,
		Category:   models.CategoryAuth,
		Severity:   severity,
		SourceType: "login",
		Label:      label,
		RawRef:     "login:" + l.EventID,
	}, true
}

func (n *Normalizer) normalizeConnection(c *models.ConnectionRecord, stats *models.NormalizeStats) (models.NormalizedEvent, bool) {
	if strings.TrimSpace(c.ConnectedEntityID) == "" || strings.TrimSpace(c.ConnectionType) == "" {
		stats.DroppedMalformed++
		return models.NormalizedEvent{}, false
	}
	ts, ok := ParseTimestamp(c.FirstObserved)
	if !ok {
		logger.Debugf("Skipping network connection without valid timestamp (entity=%s)", c.ConnectedEntityID)
		stats.DroppedNoTimestamp++
		return models.NormalizedEvent{}, false
	}

	severity := models.SeverityInfo
	if strings.EqualFold(c.Strength, "strong") {
		severity = models.SeverityWarning
	}
	stats.Parsed++
	return models.NormalizedEvent{
		ID:         c.ConnectionType + ":" + c.ConnectedEntityID,
		Timestamp:  ts,
		Category:   models.CategoryNetwork,
		Severity:   severity,
		SourceType: "network_connection",
		Label:      c.ConnectionType,
		RawRef:     "connection:" + c.ConnectedEntityID,
	}, true
}

// ClassifyLogin maps a login record to its timeline subtype and severity.
func ClassifyLogin(l *models.LoginRecord) (string, models.Severity) {
	switch {
	case strings.EqualFold(l.EventType, "password_change"):
		return "password_change", models.SeverityWarning
	case !l.LoginSuccess && len(l.RiskFlags) > 0:
		return "login_failed", models.SeverityCritical
	case !l.LoginSuccess:
		return "login_failed", models.SeverityWarning
	default:
		return "login_success", models.SeverityInfo
	}
}

// AlertSeverity maps a declared alert severity onto the normalized ladder.
func AlertSeverity(declared string) models.Severity {
	switch strings.ToLower(strings.TrimSpace(declared)) {
	case "critical", "high":
		return models.SeverityCritical
	case "medium":
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}

// ParseTimestamp accepts the timestamp layouts seen across upstream sources.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}

	for _, layout := range []string{
		"2006-01-02 15:04:05.000000",
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
