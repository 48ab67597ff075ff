package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/cv-validator/internal/models"
	"alfredoptarigan/cv-validator/internal/services"
)

const maxSearchLimit = 20

type SearchHandler struct {
	index services.CVIndexService
	log   *zap.Logger
}

func NewSearchHandler(index services.CVIndexService, log *zap.Logger) *SearchHandler {
	return &SearchHandler{
		index: index,
		log:   log,
	}
}

// HandleSearch handles GET /submissions/search?q=&limit=
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	limit := c.QueryInt("limit", 5)
	if limit <= 0 || limit > maxSearchLimit {
		return badRequest(c, "limit must be between 1 and 20")
	}

	hits, err := h.index.Search(c.UserContext(), query, limit)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuery) {
			return badRequest(c, "q is required")
		}
		h.log.Error("❌ CV search failed", zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "search is temporarily unavailable")
	}

	response := models.SearchResponse{
		Query:   query,
		Results: make([]models.SearchHit, 0, len(hits)),
	}
	for _, hit := range hits {
		response.Results = append(response.Results, models.SearchHit{
			SubmissionID: hit.SubmissionID,
			Score:        hit.Score,
			Snippet:      hit.Text,
		})
	}

	return c.JSON(response)
}
