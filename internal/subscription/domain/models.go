// Package domain contains persistence models for user subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status represents lifecycle states for a user subscription.
type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// UserSubscription is an entitlement grant produced by a verified checkout
// session. CheckoutSessionID is unique: a session is consumed by its first
// successful reconciliation.
type UserSubscription struct {
	ID                   snowflake.ID      `gorm:"primaryKey"`
	UserID               string            `gorm:"type:text;not null;index"`
	PlanID               string            `gorm:"type:text;not null"`
	Status               Status            `gorm:"type:text;not null"`
	RenewsOn             time.Time         `gorm:"not null"`
	StripeSubscriptionID *string           `gorm:"type:text"`
	CheckoutSessionID    string            `gorm:"type:text;not null;uniqueIndex"`
	Metadata             datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UserSubscription) TableName() string { return "user_subscriptions" }
