package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FieldStatus is the model's judgement of one form field against the CV.
type FieldStatus string

const (
	FieldMatch        FieldStatus = "match"
	FieldPartialMatch FieldStatus = "partial_match"
	FieldNoMatch      FieldStatus = "no_match"
	FieldNotFound     FieldStatus = "not_found"
)

func (s FieldStatus) Valid() bool {
	switch s {
	case FieldMatch, FieldPartialMatch, FieldNoMatch, FieldNotFound:
		return true
	}
	return false
}

// UnmarshalJSON rejects statuses outside the four known values.
func (s *FieldStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("field status must be a string: %w", err)
	}
	status := FieldStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("unknown field status %q", raw)
	}
	*s = status
	return nil
}

// Outcome is the overall classification derived from the field verdicts.
type Outcome string

const (
	OutcomeValidated Outcome = "validated"
	OutcomeFailed    Outcome = "failed"
)

// FieldVerdict is one field's verdict as returned by the vision model.
type FieldVerdict struct {
	Field          string      `json:"field"`
	Status         FieldStatus `json:"status"`
	Confidence     float64     `json:"confidence"`
	Reason         string      `json:"reason"`
	ExtractedValue *string     `json:"extractedValue,omitempty"`
}

type ValidationSummary struct {
	TotalChecked      int     `json:"totalChecked"`
	MatchCount        int     `json:"matchCount"`
	PartialMatchCount int     `json:"partialMatchCount"`
	NoMatchCount      int     `json:"noMatchCount"`
	NotFoundCount     int     `json:"notFoundCount"`
	OverallConfidence float64 `json:"overallConfidence"`
}

// ValidationResult is stored verbatim on the submission as JSONB.
type ValidationResult struct {
	Fields  []FieldVerdict    `json:"fields"`
	Summary ValidationSummary `json:"summary"`
}

func (r ValidationResult) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation result: %w", err)
	}
	return string(b), nil
}

func (r *ValidationResult) Scan(value interface{}) error {
	return scanJSON(value, r)
}

// StringList is a JSONB-backed list of messages.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

func scanJSON(value interface{}, target interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
