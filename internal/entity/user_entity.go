package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id                    uuid.UUID
	Email                 string
	Credits               int
	SubscriptionExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
