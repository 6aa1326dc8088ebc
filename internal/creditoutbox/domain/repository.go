package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, grant *CreditGrant) error
	// ClaimDue returns pending grants whose next attempt is due.
	ClaimDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]CreditGrant, error)
	MarkApplied(ctx context.Context, db *gorm.DB, id string, now time.Time) error
	Reschedule(ctx context.Context, db *gorm.DB, id string, lastError string, nextAttemptAt time.Time, now time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id string, lastError string, now time.Time) error
	CountPending(ctx context.Context, db *gorm.DB) (int64, error)
}
