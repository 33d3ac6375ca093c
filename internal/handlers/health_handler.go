package handlers

import (
	"github.com/gofiber/fiber/v2"

	"projecthub/recommender/internal/services"
)

type HealthHandler struct {
	router services.ModelRouter
}

func NewHealthHandler(router services.ModelRouter) *HealthHandler {
	return &HealthHandler{
		router: router,
	}
}

// HandleHealth handles GET /api/v1/health. The AI check is advisory: the
// service stays healthy on the fallback path even with every provider down.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"ai_provider": h.router.HealthCheck(c.Context()),
	})
}
