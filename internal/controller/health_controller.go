package controller

import (
	"time"

	"qnagen-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

// SessionCounter reports how many workspaces are live.
type SessionCounter interface {
	Count() int
}

type healthController struct {
	sessions  SessionCounter
	startedAt time.Time
}

func NewHealthController(sessions SessionCounter) IHealthController {
	return &healthController{sessions: sessions, startedAt: time.Now()}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", fiber.Map{
		"sessions": c.sessions.Count(),
		"uptime":   time.Since(c.startedAt).Round(time.Second).String(),
	}))
}
