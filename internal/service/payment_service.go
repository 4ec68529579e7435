package service

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"qnagen-be/internal/dto"
	"qnagen-be/internal/entity"
	"qnagen-be/internal/pkg/logger"
	"qnagen-be/internal/pkg/mailer"
	"qnagen-be/internal/repository/specification"
	"qnagen-be/internal/repository/unitofwork"
	"qnagen-be/pkg/events"
	"qnagen-be/pkg/qgen"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

const paymentModule = "PaymentService"

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrOrderNotFound    = errors.New("payment order not found")
	ErrAmountMismatch   = errors.New("gross amount does not match order")
)

// SnapClient is the part of the Midtrans Snap client checkout needs.
type SnapClient interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

func NewSnapClient(serverKey string, production bool) SnapClient {
	var sClient snap.Client
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	sClient.New(serverKey, env)
	return &sClient
}

type PaymentSettings struct {
	ServerKey string
	Price     int64
	Currency  string
	Months    int
	Credits   int
	ClientURL string
	// LedgerTopic is the in-process topic told about every top-up.
	LedgerTopic string
}

type IPaymentService interface {
	Checkout(ctx context.Context, userId uuid.UUID, email string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest, raw []byte) error
	GetOrder(ctx context.Context, userId, orderId uuid.UUID) (*dto.PaymentOrderResponse, error)
	ListOrders(ctx context.Context, userId uuid.UUID) ([]*dto.PaymentOrderResponse, error)
}

type paymentService struct {
	uowFactory     unitofwork.RepositoryFactory
	snapClient     SnapClient
	eventPublisher EventPublisher
	ledgerBus      message.Publisher
	emailService   mailer.IEmailService
	logger         logger.ILogger
	settings       PaymentSettings
	now            func() time.Time
}

func NewPaymentService(
	uowFactory unitofwork.RepositoryFactory,
	snapClient SnapClient,
	eventPublisher EventPublisher,
	ledgerBus message.Publisher,
	emailService mailer.IEmailService,
	logger logger.ILogger,
	settings PaymentSettings,
) IPaymentService {
	return &paymentService{
		uowFactory:     uowFactory,
		snapClient:     snapClient,
		eventPublisher: eventPublisher,
		ledgerBus:      ledgerBus,
		emailService:   emailService,
		logger:         logger,
		settings:       settings,
		now:            time.Now,
	}
}

func (s *paymentService) Checkout(ctx context.Context, userId uuid.UUID, email string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	if req.Email != "" {
		email = req.Email
	}

	order := &entity.PaymentOrder{
		Id:            uuid.New(),
		UserId:        userId,
		Email:         email,
		PaymentStatus: entity.PaymentStatusPending,
		Amount:        s.settings.Price,
		Currency:      s.settings.Currency,
		Months:        s.settings.Months,
		Credits:       s.settings.Credits,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.PaymentOrderRepository().Create(ctx, order); err != nil {
		return nil, err
	}

	// Midtrans is called after the order row exists so the webhook can
	// always find it.
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  order.Id.String(),
			GrossAmt: order.Amount,
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		Callbacks: &snap.Callbacks{
			Finish: fmt.Sprintf("%s/?payment=success", s.settings.ClientURL),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.FirstName,
			LName: req.LastName,
			Email: email,
			Phone: req.Phone,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    "subscription",
				Price: order.Amount,
				Qty:   1,
				Name:  fmt.Sprintf("Subscription (%d month(s), %d credits)", order.Months, order.Credits),
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}

	snapResp, midErr := s.snapClient.CreateTransaction(snapReq)
	if midErr != nil {
		s.logger.Error(paymentModule, "Midtrans checkout failed", map[string]interface{}{
			"order_id": order.Id, "error": midErr.GetMessage(),
		})
		return nil, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}

	order.SnapToken = &snapResp.Token
	if err := uow.PaymentOrderRepository().Update(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info(paymentModule, "Checkout created", map[string]interface{}{
		"order_id": order.Id, "user_id": userId, "amount": order.Amount,
	})

	return &dto.CheckoutResponse{
		OrderId:         order.Id,
		Amount:          order.Amount,
		Currency:        order.Currency,
		SnapToken:       snapResp.Token,
		SnapRedirectUrl: snapResp.RedirectURL,
	}, nil
}

// Signature is sha512(order_id + status_code + gross_amount + server_key).
func Signature(orderId, statusCode, grossAmount, serverKey string) string {
	return fmt.Sprintf("%x", sha512.Sum512([]byte(orderId+statusCode+grossAmount+serverKey)))
}

// amountMatches compares Midtrans' decimal gross_amount ("49000.00") with
// the whole-unit order amount.
func amountMatches(gross string, amount int64) bool {
	v, err := strconv.ParseFloat(gross, 64)
	if err != nil {
		return false
	}
	return int64(v) == amount && v == float64(int64(v))
}

// HandleNotification applies a Midtrans status update. Repeated
// notifications for a settled order change nothing.
func (s *paymentService) HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest, raw []byte) error {
	if s.settings.ServerKey == "" {
		s.logger.Error(paymentModule, "MIDTRANS_SERVER_KEY not configured", nil)
		return fmt.Errorf("server configuration error")
	}
	expected := Signature(req.OrderId, req.StatusCode, req.GrossAmount, s.settings.ServerKey)
	if subtle.ConstantTimeCompare([]byte(req.SignatureKey), []byte(expected)) != 1 {
		s.logger.Warn(paymentModule, "Signature mismatch", map[string]interface{}{"order_id": req.OrderId})
		return ErrInvalidSignature
	}

	orderId, err := uuid.Parse(req.OrderId)
	if err != nil {
		return fmt.Errorf("invalid order id format")
	}

	var newStatus entity.PaymentStatus
	switch req.TransactionStatus {
	case "capture":
		if req.FraudStatus == "challenge" {
			s.logger.Info(paymentModule, "Payment under fraud review", map[string]interface{}{"order_id": orderId})
			return nil
		}
		newStatus = entity.PaymentStatusPaid
	case "settlement":
		newStatus = entity.PaymentStatusPaid
	case "deny", "cancel", "expire", "failure":
		newStatus = entity.PaymentStatusFailed
	default:
		s.logger.Info(paymentModule, "No action for transaction status", map[string]interface{}{
			"order_id": orderId, "status": req.TransactionStatus,
		})
		return nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	order, err := uow.PaymentOrderRepository().FindOneForUpdate(ctx, orderId)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.PaymentStatus != entity.PaymentStatusPending {
		s.logger.Info(paymentModule, "Order already settled, skipping", map[string]interface{}{
			"order_id": orderId, "status": order.PaymentStatus,
		})
		return nil
	}

	if newStatus == entity.PaymentStatusPaid && !amountMatches(req.GrossAmount, order.Amount) {
		s.logger.Warn(paymentModule, "Gross amount mismatch", map[string]interface{}{
			"order_id": orderId, "gross_amount": req.GrossAmount, "expected": order.Amount,
		})
		return ErrAmountMismatch
	}

	s.logger.Info(paymentModule, "State transition", map[string]interface{}{
		"order_id": orderId, "from": order.PaymentStatus, "to": newStatus,
	})

	now := s.now()
	order.PaymentStatus = newStatus
	order.Notification = raw
	if req.TransactionId != "" {
		order.MidtransTransactionId = &req.TransactionId
	}

	var snap qgen.Snapshot
	if newStatus == entity.PaymentStatusPaid {
		order.PaidAt = &now
		snap, err = applySubscription(ctx, uow, order.UserId, order.Months, order.Credits, &order.Id, now)
		if err != nil {
			return err
		}
	}
	if err := uow.PaymentOrderRepository().Update(ctx, order); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if newStatus != entity.PaymentStatusPaid {
		s.publish(ctx, events.BaseEvent{
			Type:       events.PaymentFailed,
			Data:       map[string]interface{}{"order_id": order.Id.String(), "user_id": order.UserId.String(), "status": req.TransactionStatus},
			OccurredAt: now,
		})
		return nil
	}

	s.publish(ctx, ledgerEvent(events.SubscriptionActivated, snap, order.Credits, "order "+order.Id.String()))
	s.announceLedgerChange(order.UserId, "subscription")
	s.sendReceipt(order, snap)
	return nil
}

func (s *paymentService) GetOrder(ctx context.Context, userId, orderId uuid.UUID) (*dto.PaymentOrderResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	order, err := uow.PaymentOrderRepository().FindOne(ctx,
		specification.ByID{ID: orderId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return toOrderResponse(order), nil
}

func (s *paymentService) ListOrders(ctx context.Context, userId uuid.UUID) ([]*dto.PaymentOrderResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	orders, err := uow.PaymentOrderRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.PaymentOrderResponse, 0, len(orders))
	for _, o := range orders {
		res = append(res, toOrderResponse(o))
	}
	return res, nil
}

func toOrderResponse(o *entity.PaymentOrder) *dto.PaymentOrderResponse {
	return &dto.PaymentOrderResponse{
		Id:            o.Id,
		PaymentStatus: string(o.PaymentStatus),
		Amount:        o.Amount,
		Currency:      o.Currency,
		Months:        o.Months,
		Credits:       o.Credits,
		PaidAt:        o.PaidAt,
		CreatedAt:     o.CreatedAt,
	}
}

func (s *paymentService) publish(ctx context.Context, evt events.BaseEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.logger.Warn(paymentModule, "Failed to publish event", map[string]interface{}{
			"event": evt.Type, "error": err.Error(),
		})
	}
}

func (s *paymentService) announceLedgerChange(userId uuid.UUID, reason string) {
	if s.ledgerBus == nil {
		return
	}
	payload, err := json.Marshal(dto.LedgerChangedMessage{UserId: userId, Reason: reason})
	if err != nil {
		return
	}
	if err := s.ledgerBus.Publish(s.settings.LedgerTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		s.logger.Warn(paymentModule, "Failed to announce ledger change", map[string]interface{}{"error": err.Error()})
	}
}

func (s *paymentService) sendReceipt(order *entity.PaymentOrder, snap qgen.Snapshot) {
	if s.emailService == nil || order.Email == "" || snap.SubscriptionExpiry == nil {
		return
	}
	receipt := mailer.Receipt{
		OrderID:   order.Id.String(),
		Amount:    order.Amount,
		Currency:  order.Currency,
		Months:    order.Months,
		Credits:   order.Credits,
		Balance:   snap.CreditBalance,
		ExpiresAt: *snap.SubscriptionExpiry,
	}
	go func() {
		if err := s.emailService.SendSubscriptionReceipt(order.Email, receipt); err != nil {
			s.logger.Warn(paymentModule, "Receipt mail failed", map[string]interface{}{
				"order_id": order.Id, "error": err.Error(),
			})
		}
	}()
}
