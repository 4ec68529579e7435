package dto

import (
	"time"

	"github.com/google/uuid"
)

type CheckoutRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty"`
}

type CheckoutResponse struct {
	OrderId         uuid.UUID `json:"order_id"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	SnapRedirectUrl string    `json:"snap_redirect_url"`
	SnapToken       string    `json:"snap_token"`
}

type PaymentOrderResponse struct {
	Id            uuid.UUID  `json:"id"`
	PaymentStatus string     `json:"payment_status"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Months        int        `json:"months"`
	Credits       int        `json:"credits"`
	PaidAt        *time.Time `json:"paid_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

type MidtransWebhookRequest struct {
	TransactionStatus string `json:"transaction_status"`
	TransactionId     string `json:"transaction_id"`
	OrderId           string `json:"order_id"`
	FraudStatus       string `json:"fraud_status"`
	// Signature validation fields
	SignatureKey string `json:"signature_key"`
	StatusCode   string `json:"status_code"`
	GrossAmount  string `json:"gross_amount"`
}
