package qgen

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the cached read-only view of a user's ledger entry.
type Snapshot struct {
	UserID             uuid.UUID
	Email              string
	CreditBalance      int
	SubscriptionExpiry *time.Time
}

// IsSubscriptionActive is true only for a set expiry strictly after now.
func IsSubscriptionActive(expiry *time.Time, now time.Time) bool {
	return expiry != nil && expiry.After(now)
}

func (s Snapshot) SubscriptionActive(now time.Time) bool {
	return IsSubscriptionActive(s.SubscriptionExpiry, now)
}

// CanAttempt reports whether the quota gate lets a metered attempt through.
func (s Snapshot) CanAttempt(now time.Time) bool {
	return s.CreditBalance > 0 || s.SubscriptionActive(now)
}

// ErrInsufficientCredit is returned by Debit when the stored balance is
// lower than the amount.
var ErrInsufficientCredit = errors.New("insufficient credit")

// Ledger is the external credit store. Debit must never take a balance
// below zero and returns the entry as it stands after the write.
type Ledger interface {
	Load(ctx context.Context, userID uuid.UUID) (Snapshot, error)
	Debit(ctx context.Context, userID uuid.UUID, amount int) (Snapshot, error)
}

// Refunder is implemented by ledgers that can give a credit back.
type Refunder interface {
	Refund(ctx context.Context, userID uuid.UUID, amount int, reason string) (Snapshot, error)
}

// SettlementPolicy decides what happens to an already-debited credit when
// the attempt fails afterwards.
type SettlementPolicy interface {
	// Settle returns the snapshot to keep, or nil when nothing changed.
	Settle(ctx context.Context, ledger Ledger, userID uuid.UUID, cause error) (*Snapshot, error)
}

// KeepDebit never refunds: an attempt is at most one success per debit.
type KeepDebit struct{}

func (KeepDebit) Settle(context.Context, Ledger, uuid.UUID, error) (*Snapshot, error) {
	return nil, nil
}

// RefundOnFailure gives the credit back when the ledger supports it.
type RefundOnFailure struct{}

func (RefundOnFailure) Settle(ctx context.Context, ledger Ledger, userID uuid.UUID, cause error) (*Snapshot, error) {
	r, ok := ledger.(Refunder)
	if !ok {
		return nil, nil
	}
	reason := "generation attempt failed"
	if k := KindOf(cause); k != "" {
		reason = string(k)
	}
	snap, err := r.Refund(ctx, userID, 1, reason)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
