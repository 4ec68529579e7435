package handler

import (
	"qnagen-be/internal/pkg/logger"
	"qnagen-be/internal/pkg/serverutils"
	"qnagen-be/internal/service"
	internalWS "qnagen-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionEventsHandler streams answer settlements and ledger changes of one
// workspace to the browser tab that owns it.
type SessionEventsHandler struct {
	generation service.IGenerationService
	hub        *internalWS.Hub
	jwtSecret  string
	logger     logger.ILogger
}

func NewSessionEventsHandler(generation service.IGenerationService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *SessionEventsHandler {
	return &SessionEventsHandler{
		generation: generation,
		hub:        hub,
		jwtSecret:  jwtSecret,
		logger:     log,
	}
}

func (h *SessionEventsHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/:id", h.ServeWs)
}

// ServeWs upgrades the request. Anonymous workspaces may listen too, but a
// token that is present has to be valid.
func (h *SessionEventsHandler) ServeWs(c *fiber.Ctx) error {
	// Priority 1: Query Param (Browser standard)
	tokenStr := c.Query("token")

	// Priority 2: Authorization Header (Tooling/Non-browser standard)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr != "" {
		if _, _, err := serverutils.ParseToken(tokenStr, h.jwtSecret); err != nil {
			h.logger.Warn("SessionEventsHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}
	}

	sessionID := c.Params("id")
	if !h.generation.Exists(sessionID) {
		return c.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(fiber.StatusNotFound, "Session not found"))
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("SessionEventsHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(h.hub, conn, sessionID)
			h.logger.Info("SessionEventsHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
