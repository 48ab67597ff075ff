package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/cv-validator/internal/models"
)

const notProvided = "Not provided"

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildFormValidationPrompt asks the vision model to check each form field against the attached CV.
func (pb *PromptBuilder) BuildFormValidationPrompt(form models.FormData) string {
	return fmt.Sprintf(`You are an expert HR document verifier. The attached PDF is a candidate's CV.
Compare the form data submitted by the candidate with the content of the CV and judge every field.

FORM DATA:
- name: %s
- email: %s
- phone: %s
- skills: %s
- experience: %s

For each field above, decide one status:
- "match": the CV clearly contains the same information
- "partial_match": the CV contains similar or partially overlapping information
- "no_match": the CV contains information that contradicts the submitted value
- "not_found": the CV does not mention this information at all

Respond with ONLY a JSON object, with no explanation before or after it and no markdown code fences.
Use exactly this structure:
{
  "fields": [
    {
      "field": "<field name>",
      "status": "match" | "partial_match" | "no_match" | "not_found",
      "confidence": <number between 0.0 and 1.0>,
      "reason": "<short explanation of the decision>",
      "extractedValue": "<value found in the CV, omit when not found>"
    }
  ]
}

Every field listed in FORM DATA must appear exactly once in "fields", with a confidence score and a reason.`,
		orNotProvided(form.Name),
		orNotProvided(form.Email),
		optional(form.Phone),
		optional(form.Skills),
		optional(form.Experience),
	)
}

func optional(v *string) string {
	if v == nil {
		return notProvided
	}
	return orNotProvided(*v)
}

func orNotProvided(v string) string {
	if strings.TrimSpace(v) == "" {
		return notProvided
	}
	return v
}
