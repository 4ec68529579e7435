package controller

import (
	"errors"

	"qnagen-be/internal/dto"
	"qnagen-be/internal/pkg/logger"
	"qnagen-be/internal/pkg/serverutils"
	"qnagen-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router)
	Checkout(ctx *fiber.Ctx) error
	Webhook(ctx *fiber.Ctx) error
	GetOrder(ctx *fiber.Ctx) error
	ListOrders(ctx *fiber.Ctx) error
}

type paymentController struct {
	service   service.IPaymentService
	jwtSecret string
	logger    logger.ILogger
}

func NewPaymentController(service service.IPaymentService, jwtSecret string, logger logger.ILogger) IPaymentController {
	return &paymentController{service: service, jwtSecret: jwtSecret, logger: logger}
}

func (c *paymentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/payment")
	h.Post("/midtrans/notification", c.Webhook)

	// Protected Routes
	auth := serverutils.JwtMiddleware(c.jwtSecret)
	h.Post("/checkout", auth, c.Checkout)
	h.Get("/orders", auth, c.ListOrders)
	h.Get("/orders/:id", auth, c.GetOrder)
}

func (c *paymentController) Checkout(ctx *fiber.Ctx) error {
	var req dto.CheckoutRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	userId, email, _ := serverutils.UserFromLocals(ctx)
	res, err := c.service.Checkout(ctx.Context(), userId, email, &req)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Checkout created", res))
}

func (c *paymentController) Webhook(ctx *fiber.Ctx) error {
	var req dto.MidtransWebhookRequest
	if err := ctx.BodyParser(&req); err != nil {
		c.logger.Warn("PaymentController", "Webhook body parsing failed", map[string]interface{}{"error": err.Error()})
		return ctx.SendStatus(fiber.StatusBadRequest)
	}

	sigPreview := req.SignatureKey
	if len(sigPreview) > 8 {
		sigPreview = sigPreview[:8] + "..."
	}
	c.logger.Info("PaymentController", "Webhook received", map[string]interface{}{
		"order_id": req.OrderId, "status": req.TransactionStatus, "signature": sigPreview,
	})

	raw := append([]byte(nil), ctx.Body()...)
	err := c.service.HandleNotification(ctx.Context(), &req, raw)
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		return ctx.SendStatus(fiber.StatusForbidden)
	case errors.Is(err, service.ErrOrderNotFound):
		return ctx.SendStatus(fiber.StatusNotFound)
	case errors.Is(err, service.ErrAmountMismatch):
		return ctx.SendStatus(fiber.StatusBadRequest)
	case err != nil:
		c.logger.Error("PaymentController", "Webhook handling failed", map[string]interface{}{
			"order_id": req.OrderId, "error": err.Error(),
		})
		// Return 500 so Midtrans will retry the notification
		return ctx.SendStatus(fiber.StatusInternalServerError)
	}
	return ctx.SendStatus(fiber.StatusOK)
}

func (c *paymentController) GetOrder(ctx *fiber.Ctx) error {
	orderId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid order id"))
	}
	userId, _, _ := serverutils.UserFromLocals(ctx)

	res, err := c.service.GetOrder(ctx.Context(), userId, orderId)
	if errors.Is(err, service.ErrOrderNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	}
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Payment order", res))
}

func (c *paymentController) ListOrders(ctx *fiber.Ctx) error {
	userId, _, _ := serverutils.UserFromLocals(ctx)
	res, err := c.service.ListOrders(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Payment orders", res))
}
