package models

import "time"

// Category classifies a normalized event.
type Category string

const (
	CategoryAuth        Category = "AUTH"
	CategoryTransaction Category = "TRANSACTION"
	CategoryBehavior    Category = "BEHAVIOR"
	CategoryAlert       Category = "ALERT"
	CategoryNetwork     Category = "NETWORK"
)

// Severity is the normalized severity ladder.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// NormalizedEvent is one raw record converted to a common shape.
// Immutable once created.
type NormalizedEvent struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"ts"`
	Category        Category  `json:"category"`
	Severity        Severity  `json:"severity"`
	SourceType      string    `json:"source_type"` // alert, transaction, login, network_connection
	Label           string    `json:"label,omitempty"`
	RawRef          string    `json:"raw_ref,omitempty"`
	RelatedAlertIDs []string  `json:"related_alert_ids,omitempty"`
}

// NormalizeStats counts what the normalizer kept and dropped.
type NormalizeStats struct {
	Parsed             int `json:"parsed"`
	DroppedNoTimestamp int `json:"dropped_no_timestamp"`
	DroppedMalformed   int `json:"dropped_malformed"`
}

// Dropped is the total number of discarded records.
func (s NormalizeStats) Dropped() int {
	return s.DroppedNoTimestamp + s.DroppedMalformed
}
