package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"projecthub/recommender/internal/models"
	"projecthub/recommender/internal/services"
)

type RecommendationHandler struct {
	recommender services.RecommendationService
	validate    *validator.Validate
}

func NewRecommendationHandler(recommender services.RecommendationService, validate *validator.Validate) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		validate:    validate,
	}
}

// HandleRecommend handles POST /api/v1/recommendations/:studentId. The body
// is optional; an empty one runs with defaults.
func (h *RecommendationHandler) HandleRecommend(c *fiber.Ctx) error {
	studentID, err := uuid.Parse(c.Params("studentId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID format",
		})
	}

	var req models.RecommendRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request payload",
			})
		}
	}

	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	opts := &services.RecommendOptions{
		Limit:                  req.Limit,
		MinSimilarityScore:     req.MinSimilarityScore,
		IncludeSpecializations: req.IncludeSpecializations,
		ExcludeSpecializations: req.ExcludeSpecializations,
		MaxDifficulty:          models.DifficultyLevel(req.MaxDifficulty),
		ForceRefresh:           req.ForceRefresh,
	}

	result, err := h.recommender.GenerateRecommendations(c.Context(), studentID, opts)
	if err != nil {
		if errors.Is(err, models.ErrStudentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Student not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate recommendations",
		})
	}

	return c.JSON(result)
}
