package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(
	app *fiber.App,
	submissionH *SubmissionHandler,
	resultH *ResultHandler,
	searchH *SearchHandler,
) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	submissions := api.Group("/submissions")
	submissions.Post("/", submissionH.HandleSubmit)
	if searchH != nil {
		submissions.Get("/search", searchH.HandleSearch)
	}
	submissions.Get("/:id", resultH.HandleGetResult)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "CV Form Validator API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/submissions",
				"GET /api/v1/submissions/:id",
				"GET /api/v1/submissions/search?q=",
			},
		})
	})
}

func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
