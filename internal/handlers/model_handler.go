package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"projecthub/recommender/internal/models"
	"projecthub/recommender/internal/services"
)

type ModelHandler struct {
	router   services.ModelRouter
	validate *validator.Validate
}

func NewModelHandler(router services.ModelRouter, validate *validator.Validate) *ModelHandler {
	return &ModelHandler{
		router:   router,
		validate: validate,
	}
}

// HandleListModels handles GET /api/v1/models
func (h *ModelHandler) HandleListModels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"models": h.router.GetAvailableModels(),
	})
}

// HandleUpdateAvailability handles PATCH /api/v1/models/:modelId/availability
func (h *ModelHandler) HandleUpdateAvailability(c *fiber.Ctx) error {
	modelID := c.Params("modelId")

	var req models.ModelAvailabilityRequest
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

	if err := h.router.UpdateModelAvailability(modelID, *req.IsAvailable); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Model not found",
		})
	}

	return c.JSON(fiber.Map{
		"model_id":     modelID,
		"is_available": *req.IsAvailable,
	})
}

// HandleBudgetStatus handles GET /api/v1/budget
func (h *ModelHandler) HandleBudgetStatus(c *fiber.Ctx) error {
	status, err := h.router.GetBudgetStatus(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read budget status",
		})
	}

	return c.JSON(status)
}
