package services

import (
	"fmt"

	"alfredoptarigan/cv-validator/internal/models"
)

const (
	// Percentage of checked fields that must match or partially match.
	matchThresholdPercent = 70

	InsufficientMatchesMessage = "Insufficient matches found between form data and PDF content"
)

// Aggregation is the outcome of one validation attempt.
type Aggregation struct {
	Result  models.ValidationResult
	Outcome models.Outcome
	Errors  []string
}

// AggregateVerdicts turns per-field verdicts into an overall outcome and mismatch reasons.
func AggregateVerdicts(verdicts []models.FieldVerdict) Aggregation {
	var summary models.ValidationSummary
	var errs []string
	var confidenceSum float64

	for _, v := range verdicts {
		confidenceSum += v.Confidence

		switch v.Status {
		case models.FieldMatch:
			summary.MatchCount++
		case models.FieldPartialMatch:
			summary.PartialMatchCount++
		case models.FieldNoMatch:
			summary.NoMatchCount++
			errs = append(errs, fmt.Sprintf("%s: %s", v.Field, v.Reason))
		case models.FieldNotFound:
			summary.NotFoundCount++
			continue
		}
		summary.TotalChecked++
	}

	if len(verdicts) > 0 {
		summary.OverallConfidence = confidenceSum / float64(len(verdicts))
	}

	outcome := models.OutcomeFailed
	if summary.NoMatchCount == 0 && summary.TotalChecked > 0 {
		// ceil(total * 70%) in integer arithmetic
		required := (summary.TotalChecked*matchThresholdPercent + 99) / 100
		if summary.MatchCount == summary.TotalChecked ||
			summary.MatchCount+summary.PartialMatchCount >= required {
			outcome = models.OutcomeValidated
		}
	}

	if outcome == models.OutcomeFailed && len(errs) == 0 {
		errs = append(errs, InsufficientMatchesMessage)
	}

	fields := make([]models.FieldVerdict, len(verdicts))
	copy(fields, verdicts)

	return Aggregation{
		Result: models.ValidationResult{
			Fields:  fields,
			Summary: summary,
		},
		Outcome: outcome,
		Errors:  errs,
	}
}
