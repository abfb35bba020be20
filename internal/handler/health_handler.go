package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-classroom/internal/config"
	"github.com/noah-isme/gema-classroom/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	ViewStore   string    `json:"view_store"`
}

// StorePinger checks the view store; nil means the in-memory store is used.
type StorePinger func(ctx context.Context) error

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config, ping StorePinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			ViewStore:   "memory",
		}

		if ping != nil {
			payload.ViewStore = "redis"
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				payload.Status = "degraded"
				return utils.Fail(c, fiber.StatusServiceUnavailable, "view store unavailable", payload)
			}
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
