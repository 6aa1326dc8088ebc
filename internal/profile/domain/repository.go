package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// AddCredits increments the balance in the store (no application-side
	// read-modify-write), creating the profile row on first grant.
	AddCredits(ctx context.Context, db *gorm.DB, userID string, amount int64) error
	Balance(ctx context.Context, db *gorm.DB, userID string) (int64, error)
}
