package handlers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"projecthub/recommender/internal/models"
	"projecthub/recommender/internal/services"
)

type FeedbackHandler struct {
	analytics services.QualityAnalytics
	validate  *validator.Validate
}

func NewFeedbackHandler(analytics services.QualityAnalytics, validate *validator.Validate) *FeedbackHandler {
	return &FeedbackHandler{
		analytics: analytics,
		validate:  validate,
	}
}

// HandleCreateFeedback handles POST /api/v1/feedback
func (h *FeedbackHandler) HandleCreateFeedback(c *fiber.Ctx) error {
	var req models.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	feedback, err := h.analytics.RecordFeedback(&req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(feedback)
}

// HandleQualityReport handles GET /api/v1/analytics/quality?days=7
func (h *FeedbackHandler) HandleQualityReport(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	if days < 1 || days > 365 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "days must be between 1 and 365",
		})
	}

	to := time.Now()
	from := to.AddDate(0, 0, -days)

	report, err := h.analytics.Report(from, to)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build quality report",
		})
	}

	return c.JSON(report)
}
