package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type PaymentOrder struct {
	Id                    uuid.UUID
	UserId                uuid.UUID
	Email                 string
	PaymentStatus         PaymentStatus
	Amount                int64
	Currency              string
	Months                int
	Credits               int
	SnapToken             *string
	MidtransTransactionId *string
	Notification          []byte
	PaidAt                *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
