package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	// Insert writes the subscription row. The store's unique indexes on
	// (user_id WHERE active) and checkout_session_id are the authoritative
	// guards; a row they reject comes back as ErrAlreadyGranted.
	Insert(ctx context.Context, db *gorm.DB, sub *UserSubscription) error
	FindActiveByUserID(ctx context.Context, db *gorm.DB, userID string) (*UserSubscription, error)
	FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*UserSubscription, error)
}

var (
	ErrAlreadyGranted = errors.New("subscription_already_granted")
)
