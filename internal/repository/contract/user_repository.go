package contract

import (
	"context"
	"time"

	"qnagen-be/internal/entity"
	"qnagen-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	// CreateIfAbsent inserts the row unless one with the same id exists and
	// reports whether it inserted.
	CreateIfAbsent(ctx context.Context, user *entity.User) (bool, error)
	Update(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// FindOneForUpdate locks the row for the rest of the transaction.
	FindOneForUpdate(ctx context.Context, id uuid.UUID) (*entity.User, error)
	// DebitCredits subtracts amount only when the balance covers it and
	// reports whether a row was changed.
	DebitCredits(ctx context.Context, id uuid.UUID, amount int) (bool, error)
	AddCredits(ctx context.Context, id uuid.UUID, amount int) error
	UpdateSubscriptionExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
}
