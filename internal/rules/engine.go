package rules

import "encoding/json"

// RiskTag is a rule match annotation attached to a raw record.
type RiskTag struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Severity string `json:"severity,omitempty"`
	Category string `json:"category,omitempty"`
}

// Engine applies risk tagging rules to raw record field maps.
type Engine interface {
	Apply(source string, fields map[string]interface{}) []RiskTag
}

// NoopEngine returns no tags.
type NoopEngine struct{}

// Apply returns an empty tag list.
func (n *NoopEngine) Apply(source string, fields map[string]interface{}) []RiskTag {
	return nil
}

// FieldsOf flattens a raw record into the field map rules match against.
func FieldsOf(record interface{}) map[string]interface{} {
	data, err := json.Marshal(record)
	if err != nil {
		return nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	return fields
}
