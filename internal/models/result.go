package models

type SubmissionResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	DocumentID string `json:"document_id"`
}

type ResultResponse struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	Outcome          *Outcome          `json:"outcome,omitempty"`
	ValidationResult *ValidationResult `json:"validation_result,omitempty"`
	ValidationErrors []string          `json:"validation_errors,omitempty"`
	ValidatedAt      *string           `json:"validated_at,omitempty"`
}

type SearchHit struct {
	SubmissionID string  `json:"submission_id"`
	Score        float32 `json:"score"`
	Snippet      string  `json:"snippet"`
}

type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}
