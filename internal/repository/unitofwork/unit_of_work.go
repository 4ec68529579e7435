package unitofwork

import (
	"context"

	"qnagen-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	CreditTransactionRepository() contract.CreditTransactionRepository
	PaymentOrderRepository() contract.PaymentOrderRepository
}
