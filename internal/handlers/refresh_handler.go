package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"projecthub/recommender/internal/models"
	"projecthub/recommender/internal/services"
)

type RefreshHandler struct {
	scheduler services.RefreshScheduler
}

func NewRefreshHandler(scheduler services.RefreshScheduler) *RefreshHandler {
	return &RefreshHandler{
		scheduler: scheduler,
	}
}

// HandleStats handles GET /api/v1/refresh/stats
func (h *RefreshHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.scheduler.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read refresh stats",
		})
	}

	return c.JSON(stats)
}

// HandleForceRefresh handles POST /api/v1/refresh/:studentId
func (h *RefreshHandler) HandleForceRefresh(c *fiber.Ctx) error {
	studentID, err := uuid.Parse(c.Params("studentId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID format",
		})
	}

	if err := h.scheduler.ForceRefreshStudent(c.Context(), studentID); err != nil {
		if errors.Is(err, models.ErrStudentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Student not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to refresh recommendations",
		})
	}

	return c.JSON(fiber.Map{
		"student_id": studentID.String(),
		"refreshed":  true,
	})
}
