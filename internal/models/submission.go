package models

import (
	"time"

	"github.com/google/uuid"
)

type ValidationStatus string

const (
	StatusPending    ValidationStatus = "pending"
	StatusValidating ValidationStatus = "validating"
	StatusValidated  ValidationStatus = "validated"
	StatusFailed     ValidationStatus = "failed"
)

func (s ValidationStatus) IsTerminal() bool {
	return s == StatusValidated || s == StatusFailed
}

// StatusForOutcome maps an aggregation outcome onto the terminal record state.
func StatusForOutcome(o Outcome) ValidationStatus {
	if o == OutcomeValidated {
		return StatusValidated
	}
	return StatusFailed
}

type Submission struct {
	ID               uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FullName         string            `gorm:"type:text;not null" json:"name"`
	Email            string            `gorm:"type:text;not null" json:"email"`
	Phone            *string           `gorm:"type:text" json:"phone,omitempty"`
	Skills           *string           `gorm:"type:text" json:"skills,omitempty"`
	Experience       *string           `gorm:"type:text" json:"experience,omitempty"`
	DocumentID       uuid.UUID         `gorm:"type:uuid;not null" json:"document_id"`
	Status           ValidationStatus  `gorm:"not null;default:'pending';index" json:"status"`
	Version          int               `gorm:"not null;default:0" json:"-"`
	ValidationResult *ValidationResult `gorm:"type:jsonb" json:"validation_result,omitempty"`
	ValidationErrors StringList        `gorm:"type:jsonb" json:"validation_errors,omitempty"`
	ValidatedAt      *time.Time        `json:"validated_at,omitempty"`
	CreatedAt        time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Document Document `gorm:"foreignKey:DocumentID" json:"-"`
}

func (Submission) TableName() string {
	return "submissions"
}

// FormData returns the submitted form fields as fed to the prompt.
func (s *Submission) FormData() FormData {
	return FormData{
		Name:       s.FullName,
		Email:      s.Email,
		Phone:      s.Phone,
		Skills:     s.Skills,
		Experience: s.Experience,
	}
}

// FormData is the user-entered data checked against the CV.
type FormData struct {
	Name       string
	Email      string
	Phone      *string
	Skills     *string
	Experience *string
}
