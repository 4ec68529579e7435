package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreditBalanceResponse struct {
	UserId                uuid.UUID  `json:"user_id"`
	Credits               int        `json:"credits"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at"`
	SubscriptionActive    bool       `json:"subscription_active"`
}

type CreditTransactionResponse struct {
	Id           uuid.UUID  `json:"id"`
	Type         string     `json:"type"`
	Amount       int        `json:"amount"`
	BalanceAfter int        `json:"balance_after"`
	Reason       string     `json:"reason,omitempty"`
	RelatedId    *uuid.UUID `json:"related_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type CreditHistoryResponse struct {
	Transactions []CreditTransactionResponse `json:"transactions"`
	Total        int64                       `json:"total"`
	Limit        int                         `json:"limit"`
	Offset       int                         `json:"offset"`
}

// LedgerChangedMessage travels on the in-process bus after an external top-up.
type LedgerChangedMessage struct {
	UserId uuid.UUID `json:"user_id"`
	Reason string    `json:"reason"`
}
