package model

import (
	"time"

	"github.com/google/uuid"
)

type CreditTransaction struct {
	Id              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId          uuid.UUID  `gorm:"type:uuid;not null;index"`
	TransactionType string     `gorm:"type:credit_transaction_type;not null"`
	Amount          int        `gorm:"not null"`
	BalanceAfter    int        `gorm:"not null"`
	Reason          *string    `gorm:"type:text"`
	RelatedId       *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt       time.Time  `gorm:"default:now();not null"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
