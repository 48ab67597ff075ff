package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/cv-validator/internal/models"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrStaleSubmission means the row moved on (status or version) since it was read.
	ErrStaleSubmission = errors.New("submission was modified concurrently")
)

type SubmissionRepository interface {
	Create(sub *models.Submission) error
	FindByID(id uuid.UUID) (*models.Submission, error)
	MarkValidating(id uuid.UUID, version int) error
	Complete(id uuid.UUID, version int, data *ValidationUpdateData) error
	Fail(id uuid.UUID, version int, errorMsg string) error
	FindPending(limit int) ([]models.Submission, error)
	FindValidated(limit, offset int) ([]models.Submission, error)
}

type ValidationUpdateData struct {
	Outcome models.Outcome
	Result  *models.ValidationResult
	Errors  []string
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(sub *models.Submission) error {
	if err := r.db.Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) FindByID(id uuid.UUID) (*models.Submission, error) {
	var sub models.Submission
	if err := r.db.Where("id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to find submission: %w", err)
	}
	return &sub, nil
}

// MarkValidating moves a pending submission at the given version to validating.
func (r *submissionRepository) MarkValidating(id uuid.UUID, version int) error {
	return r.transition(id, version, models.StatusPending, map[string]interface{}{
		"status": models.StatusValidating,
	})
}

// Complete writes the terminal state derived from the aggregation outcome.
func (r *submissionRepository) Complete(id uuid.UUID, version int, data *ValidationUpdateData) error {
	now := time.Now()
	return r.transition(id, version, models.StatusValidating, map[string]interface{}{
		"status":            models.StatusForOutcome(data.Outcome),
		"validation_result": data.Result,
		"validation_errors": models.StringList(data.Errors),
		"validated_at":      &now,
	})
}

// Fail forces a validating submission to failed with errorMsg as its only error.
func (r *submissionRepository) Fail(id uuid.UUID, version int, errorMsg string) error {
	now := time.Now()
	return r.transition(id, version, models.StatusValidating, map[string]interface{}{
		"status":            models.StatusFailed,
		"validation_result": nil,
		"validation_errors": models.StringList{errorMsg},
		"validated_at":      &now,
	})
}

func (r *submissionRepository) transition(id uuid.UUID, version int, from models.ValidationStatus, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now()

	result := r.db.Model(&models.Submission{}).
		Where("id = ? AND version = ? AND status = ?", id, version, from).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update submission: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		if _, err := r.FindByID(id); err != nil {
			return err
		}
		return ErrStaleSubmission
	}

	return nil
}

func (r *submissionRepository) FindPending(limit int) ([]models.Submission, error) {
	var subs []models.Submission
	err := r.db.
		Where("status = ?", models.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&subs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending submissions: %w", err)
	}

	return subs, nil
}

func (r *submissionRepository) FindValidated(limit, offset int) ([]models.Submission, error) {
	var subs []models.Submission
	err := r.db.
		Preload("Document").
		Where("status = ?", models.StatusValidated).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&subs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find validated submissions: %w", err)
	}

	return subs, nil
}
