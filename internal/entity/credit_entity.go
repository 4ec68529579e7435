package entity

import (
	"time"

	"github.com/google/uuid"
)

type CreditTransactionType string

const (
	CreditTransactionGrant        CreditTransactionType = "grant"
	CreditTransactionSpend        CreditTransactionType = "spend"
	CreditTransactionRefund       CreditTransactionType = "refund"
	CreditTransactionSubscription CreditTransactionType = "subscription"
)

type CreditTransaction struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	TransactionType CreditTransactionType
	Amount          int
	BalanceAfter    int
	Reason          *string
	RelatedId       *uuid.UUID
	CreatedAt       time.Time
}
