package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the ledger account of an externally authenticated user. Id is the
// identity provider's user id.
type User struct {
	Id                    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email                 string    `gorm:"type:varchar(255);index"`
	Credits               int       `gorm:"not null;default:0;check:credits_non_negative,credits >= 0"`
	SubscriptionExpiresAt *time.Time
	CreatedAt             time.Time      `gorm:"autoCreateTime"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime"`
	DeletedAt             gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
