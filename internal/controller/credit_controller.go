package controller

import (
	"time"

	"qnagen-be/internal/dto"
	"qnagen-be/internal/entity"
	"qnagen-be/internal/pkg/serverutils"
	"qnagen-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICreditController interface {
	RegisterRoutes(r fiber.Router)
	GetBalance(ctx *fiber.Ctx) error
	GetTransactions(ctx *fiber.Ctx) error
}

type creditController struct {
	service   service.ICreditService
	jwtSecret string
}

func NewCreditController(service service.ICreditService, jwtSecret string) ICreditController {
	return &creditController{service: service, jwtSecret: jwtSecret}
}

func (c *creditController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/credits", serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("", c.GetBalance)
	h.Get("/transactions", c.GetTransactions)
}

func (c *creditController) GetBalance(ctx *fiber.Ctx) error {
	userId, _, _ := serverutils.UserFromLocals(ctx)

	snap, err := c.service.Load(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get credits", dto.CreditBalanceResponse{
		UserId:                snap.UserID,
		Credits:               snap.CreditBalance,
		SubscriptionExpiresAt: snap.SubscriptionExpiry,
		SubscriptionActive:    snap.SubscriptionActive(time.Now()),
	}))
}

func (c *creditController) GetTransactions(ctx *fiber.Ctx) error {
	userId, _, _ := serverutils.UserFromLocals(ctx)

	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	txs, total, err := c.service.History(ctx.Context(), userId, limit, offset)
	if err != nil {
		return err
	}

	res := dto.CreditHistoryResponse{
		Transactions: make([]dto.CreditTransactionResponse, 0, len(txs)),
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	}
	for _, tx := range txs {
		res.Transactions = append(res.Transactions, toTransactionResponse(tx))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get credit history", res))
}

func toTransactionResponse(tx *entity.CreditTransaction) dto.CreditTransactionResponse {
	res := dto.CreditTransactionResponse{
		Id:           tx.Id,
		Type:         string(tx.TransactionType),
		Amount:       tx.Amount,
		BalanceAfter: tx.BalanceAfter,
		RelatedId:    tx.RelatedId,
		CreatedAt:    tx.CreatedAt,
	}
	if tx.Reason != nil {
		res.Reason = *tx.Reason
	}
	return res
}
