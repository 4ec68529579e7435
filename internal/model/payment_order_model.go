package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PaymentOrder struct {
	Id                    uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId                uuid.UUID      `gorm:"type:uuid;not null;index"`
	Email                 string         `gorm:"type:varchar(255)"`
	PaymentStatus         string         `gorm:"type:payment_status;not null;default:'pending'"`
	Amount                int64          `gorm:"not null"`
	Currency              string         `gorm:"type:varchar(10);not null"`
	Months                int            `gorm:"not null"`
	Credits               int            `gorm:"not null"`
	SnapToken             *string        `gorm:"type:varchar(255)"`
	MidtransTransactionId *string        `gorm:"type:varchar(255)"`
	Notification          datatypes.JSON `gorm:"type:jsonb"`
	PaidAt                *time.Time
	CreatedAt             time.Time `gorm:"autoCreateTime"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime"`
}

func (PaymentOrder) TableName() string {
	return "payment_orders"
}
