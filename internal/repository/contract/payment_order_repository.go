package contract

import (
	"context"

	"qnagen-be/internal/entity"
	"qnagen-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PaymentOrderRepository interface {
	Create(ctx context.Context, order *entity.PaymentOrder) error
	Update(ctx context.Context, order *entity.PaymentOrder) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PaymentOrder, error)
	FindOneForUpdate(ctx context.Context, id uuid.UUID) (*entity.PaymentOrder, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PaymentOrder, error)
}
