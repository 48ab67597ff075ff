package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-validator/internal/models"
	"alfredoptarigan/cv-validator/internal/repositories"
)

type ResultHandler struct {
	subRepo repositories.SubmissionRepository
	log     *zap.Logger
}

func NewResultHandler(subRepo repositories.SubmissionRepository, log *zap.Logger) *ResultHandler {
	return &ResultHandler{
		subRepo: subRepo,
		log:     log,
	}
}

// HandleGetResult handles GET /submissions/:id
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	subID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid submission ID format")
	}

	sub, err := h.subRepo.FindByID(subID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Submission not found",
			})
		}
		h.log.Error("❌ Failed to load submission", zap.Stringer("submission_id", subID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load submission")
	}

	response := models.ResultResponse{
		ID:     sub.ID.String(),
		Status: string(sub.Status),
	}

	// Only terminal submissions carry an outcome; it is read back from the status
	// the verdicts produced, never stored on its own.
	if sub.Status.IsTerminal() {
		outcome := models.OutcomeFailed
		if sub.Status == models.StatusValidated {
			outcome = models.OutcomeValidated
		}
		response.Outcome = &outcome
		response.ValidationResult = sub.ValidationResult
		response.ValidationErrors = sub.ValidationErrors
		if sub.ValidatedAt != nil {
			ts := sub.ValidatedAt.Format(time.RFC3339)
			response.ValidatedAt = &ts
		}
	}

	return c.JSON(response)
}
