package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-validator/internal/models"
	"alfredoptarigan/cv-validator/internal/repositories"
)

type ValidatorService interface {
	// ValidateSubmission runs the whole check for one pending submission. Business
	// failures (outcome "failed") are not errors.
	ValidateSubmission(ctx context.Context, id uuid.UUID) error
}

type validatorService struct {
	subRepo       repositories.SubmissionRepository
	docRepo       repositories.DocumentRepository
	storage       StorageService
	comparer      DocumentComparer
	indexer       CVIndexService
	promptBuilder *PromptBuilder
	temperature   float32
	taskTimeout   time.Duration
	log           *zap.Logger
}

// NewValidatorService wires the validation pipeline. indexer may be nil to skip CV indexing.
func NewValidatorService(
	subRepo repositories.SubmissionRepository,
	docRepo repositories.DocumentRepository,
	storage StorageService,
	comparer DocumentComparer,
	indexer CVIndexService,
	temperature float32,
	taskTimeout time.Duration,
	log *zap.Logger,
) ValidatorService {
	return &validatorService{
		subRepo:       subRepo,
		docRepo:       docRepo,
		storage:       storage,
		comparer:      comparer,
		indexer:       indexer,
		promptBuilder: NewPromptBuilder(),
		temperature:   temperature,
		taskTimeout:   taskTimeout,
		log:           log,
	}
}

func (v *validatorService) ValidateSubmission(ctx context.Context, id uuid.UUID) error {
	if v.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.taskTimeout)
		defer cancel()
	}

	sub, err := v.subRepo.FindByID(id)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}
	if sub.Status != models.StatusPending {
		return fmt.Errorf("%w: submission is %s", repositories.ErrStaleSubmission, sub.Status)
	}

	if err := v.subRepo.MarkValidating(id, sub.Version); err != nil {
		return fmt.Errorf("failed to mark submission validating: %w", err)
	}
	version := sub.Version + 1

	v.log.Info("🔄 Starting validation", zap.Stringer("submission_id", id))

	agg, document, err := v.run(ctx, sub)
	if err != nil {
		if ferr := v.subRepo.Fail(id, version, err.Error()); ferr != nil {
			return fmt.Errorf("validation failed (%v) and could not be recorded: %w", err, ferr)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := v.subRepo.Complete(id, version, &repositories.ValidationUpdateData{
		Outcome: agg.Outcome,
		Result:  &agg.Result,
		Errors:  agg.Errors,
	}); err != nil {
		err = fmt.Errorf("failed to save validation result: %w", err)
		if errors.Is(err, repositories.ErrStaleSubmission) {
			return err
		}
		if ferr := v.subRepo.Fail(id, version, err.Error()); ferr != nil {
			return fmt.Errorf("%w (and could not be recorded: %v)", err, ferr)
		}
		return err
	}

	v.log.Info("✅ Validation completed",
		zap.Stringer("submission_id", id),
		zap.String("outcome", string(agg.Outcome)),
		zap.Int("total_checked", agg.Result.Summary.TotalChecked),
		zap.Float64("overall_confidence", agg.Result.Summary.OverallConfidence),
	)

	if agg.Outcome == models.OutcomeValidated && v.indexer != nil {
		if _, err := v.indexer.IndexDocument(ctx, id.String(), sub.DocumentID.String(), document); err != nil {
			v.log.Warn("⚠️  Failed to index validated CV", zap.Stringer("submission_id", id), zap.Error(err))
		}
	}

	return nil
}

func (v *validatorService) run(ctx context.Context, sub *models.Submission) (*Aggregation, []byte, error) {
	doc, err := v.docRepo.FindByID(sub.DocumentID)
	if err != nil {
		return nil, nil, fmt.Errorf("CV document not found: %w", err)
	}

	document, err := v.storage.ReadDocument(doc.FilePath)
	if err != nil {
		return nil, nil, err
	}

	prompt := v.promptBuilder.BuildFormValidationPrompt(sub.FormData())

	reply, err := v.comparer.CompareDocument(ctx, document, doc.MimeType, prompt, v.temperature)
	if err != nil {
		return nil, nil, fmt.Errorf("AI validation request failed: %w", err)
	}

	verdicts, err := ParseValidationReply(reply)
	if err != nil {
		return nil, nil, err
	}

	agg := AggregateVerdicts(verdicts)
	return &agg, document, nil
}
