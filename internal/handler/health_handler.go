package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the coupon store is reachable.
type HealthHandler struct {
	pool    Pinger
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler that pings the store with the given timeout.
func NewHealthHandler(pool Pinger, timeout time.Duration) *HealthHandler {
	return &HealthHandler{pool: pool, timeout: timeout}
}

// Check handles GET /health.
// 200 {"status":"healthy"} when the database answers within the timeout,
// 503 {"status":"unhealthy"} otherwise.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	if err := h.pool.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}
	return c.JSON(fiber.Map{
		"status":         "healthy",
		"databasePingMs": time.Since(start).Milliseconds(),
	})
}
