package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type GrantStatus string

const (
	GrantStatusPending GrantStatus = "pending"
	GrantStatusApplied GrantStatus = "applied"
	GrantStatusFailed  GrantStatus = "failed"
)

// CreditGrant is a durable record of credits owed to a user for an
// activated subscription. Grants are applied inline when possible; the
// outbox worker retries the ones that were not.
type CreditGrant struct {
	ID             string       `gorm:"primaryKey"`
	SubscriptionID snowflake.ID `gorm:"column:subscription_id"`
	UserID         string       `gorm:"column:user_id"`
	PlanID         string       `gorm:"column:plan_id"`
	Credits        int64        `gorm:"column:credits"`
	Status         GrantStatus  `gorm:"column:status"`
	Attempts       int          `gorm:"column:attempts"`
	LastError      string       `gorm:"column:last_error"`
	NextAttemptAt  time.Time    `gorm:"column:next_attempt_at"`
	CreatedAt      time.Time    `gorm:"column:created_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at"`
}

func (CreditGrant) TableName() string {
	return "credit_grants"
}
